package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"inventory/pkg/common/domain"
	"inventory/pkg/inventory/domain/model"
	"inventory/pkg/inventory/domain/service"
	"inventory/pkg/inventory/infrastructure/memory"
)

const testLockTimeout = 2 * time.Second

type fixture struct {
	store      *memory.Store
	dispatcher *mockEventDispatcher
	ledger     service.StockLedger
	sales      service.SaleService
	inventory  service.InventoryService
	queue      service.SyncQueueService
	replay     service.SyncReplayService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithTimeout(t, testLockTimeout)
}

func setupWithTimeout(t *testing.T, lockTimeout time.Duration) *fixture {
	t.Helper()
	store := memory.NewStore()
	dispatcher := &mockEventDispatcher{}
	ledger := service.NewStockLedger(lockTimeout)
	sales := service.NewSaleService(store, ledger, dispatcher)
	queue := service.NewSyncQueueService(store)
	return &fixture{
		store:      store,
		dispatcher: dispatcher,
		ledger:     ledger,
		sales:      sales,
		inventory:  service.NewInventoryService(store, ledger, dispatcher),
		queue:      queue,
		replay:     service.NewSyncReplayService(store, queue, sales, dispatcher),
	}
}

func (f *fixture) addProduct(t *testing.T, name, price string, quantity int) uuid.UUID {
	t.Helper()
	product := &model.Product{
		ID:    uuid.New(),
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
	err := f.store.Execute(context.Background(), func(provider model.RepositoryProvider) error {
		if err := provider.Products().Store(context.Background(), product); err != nil {
			return err
		}
		return provider.Stock().Create(context.Background(), &model.StockRecord{
			ProductID:     product.ID,
			Quantity:      quantity,
			MinStockLevel: 10,
		})
	})
	require.NoError(t, err)
	return product.ID
}

func (f *fixture) addProductWithoutStock(t *testing.T) uuid.UUID {
	t.Helper()
	product := &model.Product{ID: uuid.New(), Name: "Discontinued", Price: decimal.NewFromInt(1)}
	err := f.store.Execute(context.Background(), func(provider model.RepositoryProvider) error {
		return provider.Products().Store(context.Background(), product)
	})
	require.NoError(t, err)
	return product.ID
}

func (f *fixture) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	record, err := f.inventory.Find(context.Background(), productID)
	require.NoError(t, err)
	return record.Quantity
}

func (f *fixture) countSales(t *testing.T) int {
	t.Helper()
	sales, err := f.sales.List(context.Background(), model.SaleFilter{})
	require.NoError(t, err)
	return len(sales)
}

func (f *fixture) enqueueSale(t *testing.T, saleDate *time.Time, lines ...model.SaleLineRequest) *model.SyncQueueEntry {
	t.Helper()
	payload, err := service.EncodeSaleCommand(service.SaleCommand{Lines: lines, SaleDate: saleDate})
	require.NoError(t, err)
	entry, err := f.queue.Enqueue(context.Background(), model.TransactionTypeSale, payload)
	require.NoError(t, err)
	return entry
}

func line(productID uuid.UUID, quantity int) model.SaleLineRequest {
	return model.SaleLineRequest{ProductID: productID, Quantity: quantity}
}

type mockEventDispatcher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockEventDispatcher) Dispatch(event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *mockEventDispatcher) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.events...)
}
