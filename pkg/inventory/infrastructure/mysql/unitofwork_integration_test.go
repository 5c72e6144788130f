package mysql

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory/pkg/common/domain"
	"inventory/pkg/inventory/domain/model"
	"inventory/pkg/inventory/domain/service"
)

// Runs against a disposable database named by INVENTORY_TEST_DB_DSN.
func setupDatabase(t *testing.T) *UnitOfWork {
	t.Helper()
	dsn := os.Getenv("INVENTORY_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("INVENTORY_TEST_DB_DSN is not set")
	}

	require.NoError(t, Migrate(dsn))
	db, err := Open(context.Background(), Config{DSN: dsn, MaxConns: 8, LockTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUnitOfWork(db)
}

func addProduct(t *testing.T, uow *UnitOfWork, price string, quantity int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	product := &model.Product{
		ID:        uuid.New(),
		Name:      "Integration " + price,
		Category:  "Test",
		Price:     decimal.RequireFromString(price),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		if err := provider.Products().Store(ctx, product); err != nil {
			return err
		}
		return provider.Stock().Create(ctx, &model.StockRecord{ProductID: product.ID, Quantity: quantity, MinStockLevel: 1, UpdatedAt: now})
	})
	require.NoError(t, err)
	return product.ID
}

func TestMySQLSaleCommit(t *testing.T) {
	uow := setupDatabase(t)
	ctx := context.Background()
	ledger := service.NewStockLedger(time.Second)
	sales := service.NewSaleService(uow, ledger, nopDispatcher{})
	inventory := service.NewInventoryService(uow, ledger, nopDispatcher{})
	productID := addProduct(t, uow, "4.25", 5)

	t.Run("Exactly one of two competing commits wins", func(t *testing.T) {
		lines := []model.SaleLineRequest{{ProductID: productID, Quantity: 3}}
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := sales.Commit(ctx, lines, nil)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}()
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, model.ErrInsufficientStock)
				failures++
			}
		}
		assert.Equal(t, 1, failures)

		record, err := inventory.Find(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, 2, record.Quantity)
	})

	t.Run("Stored sale keeps lines and totals", func(t *testing.T) {
		sale, err := sales.Commit(ctx, []model.SaleLineRequest{{ProductID: productID, Quantity: 2}}, nil)
		require.NoError(t, err)

		stored, err := sales.Find(ctx, sale.ID)
		require.NoError(t, err)
		require.Len(t, stored.Lines, 1)
		assert.True(t, decimal.RequireFromString("8.50").Equal(stored.TotalAmount))
		assert.True(t, decimal.RequireFromString("4.25").Equal(stored.Lines[0].UnitPrice))

		require.NoError(t, sales.Reverse(ctx, sale.ID, true))
		record, err := inventory.Find(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, 2, record.Quantity)
	})
}

func TestMySQLReplay(t *testing.T) {
	uow := setupDatabase(t)
	ctx := context.Background()
	ledger := service.NewStockLedger(time.Second)
	sales := service.NewSaleService(uow, ledger, nopDispatcher{})
	queue := service.NewSyncQueueService(uow)
	replay := service.NewSyncReplayService(uow, queue, sales, nopDispatcher{})
	productID := addProduct(t, uow, "1.00", 10)

	enqueue := func(quantity int) *model.SyncQueueEntry {
		payload, err := service.EncodeSaleCommand(service.SaleCommand{
			Lines: []model.SaleLineRequest{{ProductID: productID, Quantity: quantity}},
		})
		require.NoError(t, err)
		entry, err := queue.Enqueue(ctx, model.TransactionTypeSale, payload)
		require.NoError(t, err)
		return entry
	}
	first := enqueue(10)
	second := enqueue(10)

	_, err := replay.ReplayAll(ctx)
	require.NoError(t, err)

	stored, err := queue.Find(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncSynced, stored.Status)
	require.NotNil(t, stored.SaleID)

	stored, err = queue.Find(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "Insufficient stock")
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(domain.Event) error { return nil }
