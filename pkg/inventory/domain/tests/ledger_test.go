package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory/pkg/inventory/domain/model"
	"inventory/pkg/inventory/domain/service"
)

func TestStockLedger(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	product := f.addProduct(t, "Salt", "0.60", 4)

	withHandle := func(t *testing.T, fn func(stock model.StockRepository, handle *service.StockHandle) error) error {
		t.Helper()
		return f.store.Execute(ctx, func(provider model.RepositoryProvider) error {
			handle, err := f.ledger.Acquire(ctx, provider.Stock(), product)
			if err != nil {
				return err
			}
			return fn(provider.Stock(), handle)
		})
	}

	t.Run("Reserve stages the decrement until applied", func(t *testing.T) {
		err := withHandle(t, func(stock model.StockRepository, handle *service.StockHandle) error {
			require.NoError(t, f.ledger.CheckAndReserve(handle, 3))
			assert.Equal(t, 1, handle.Quantity())
			committed, err := stock.Find(ctx, product)
			require.NoError(t, err)
			assert.Equal(t, 4, committed.Quantity)
			return f.ledger.Apply(ctx, stock, handle)
		})

		require.NoError(t, err)
		assert.Equal(t, 1, f.stockOf(t, product))
	})

	t.Run("Fail on insufficient stock", func(t *testing.T) {
		err := withHandle(t, func(_ model.StockRepository, handle *service.StockHandle) error {
			return f.ledger.CheckAndReserve(handle, 2)
		})

		assert.ErrorIs(t, err, model.ErrInsufficientStock)
		assert.Equal(t, 1, f.stockOf(t, product))
	})

	t.Run("Fail on non-positive quantities", func(t *testing.T) {
		err := withHandle(t, func(_ model.StockRepository, handle *service.StockHandle) error {
			assert.ErrorIs(t, f.ledger.CheckAndReserve(handle, 0), model.ErrInvalidQuantity)
			assert.ErrorIs(t, f.ledger.Restore(handle, -1), model.ErrInvalidQuantity)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Restore adds back", func(t *testing.T) {
		err := withHandle(t, func(stock model.StockRepository, handle *service.StockHandle) error {
			require.NoError(t, f.ledger.Restore(handle, 3))
			return f.ledger.Apply(ctx, stock, handle)
		})

		require.NoError(t, err)
		assert.Equal(t, 4, f.stockOf(t, product))
	})

	t.Run("Rollback discards staged changes", func(t *testing.T) {
		err := withHandle(t, func(stock model.StockRepository, handle *service.StockHandle) error {
			require.NoError(t, f.ledger.CheckAndReserve(handle, 4))
			require.NoError(t, f.ledger.Apply(ctx, stock, handle))
			return model.ErrEmptySale
		})

		assert.ErrorIs(t, err, model.ErrEmptySale)
		assert.Equal(t, 4, f.stockOf(t, product))
	})

	t.Run("Fail on missing stock record", func(t *testing.T) {
		err := f.store.Execute(ctx, func(provider model.RepositoryProvider) error {
			_, err := f.ledger.Acquire(ctx, provider.Stock(), f.addProductWithoutStock(t))
			return err
		})
		assert.ErrorIs(t, err, model.ErrStockRecordNotFound)
	})
}

func TestAdjustStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	product := f.addProduct(t, "Pepper", "1.90", 5)

	t.Run("Restock", func(t *testing.T) {
		f.dispatcher.Reset()
		record, err := f.inventory.Adjust(ctx, product, 10)

		require.NoError(t, err)
		assert.Equal(t, 15, record.Quantity)
		events := f.dispatcher.Events()
		require.Len(t, events, 1)
		assert.Equal(t, 10, events[0].(model.StockAdjusted).Delta)
	})

	t.Run("Shrinkage down to zero", func(t *testing.T) {
		record, err := f.inventory.Adjust(ctx, product, -15)

		require.NoError(t, err)
		assert.Equal(t, 0, record.Quantity)
	})

	t.Run("Fail below zero", func(t *testing.T) {
		_, err := f.inventory.Adjust(ctx, product, -1)

		assert.ErrorIs(t, err, model.ErrInsufficientStock)
		assert.Equal(t, 0, f.stockOf(t, product))
	})

	t.Run("List low stock", func(t *testing.T) {
		plenty := f.addProduct(t, "Cinnamon", "2.40", 50)

		low, err := f.inventory.List(ctx, true)
		require.NoError(t, err)
		require.Len(t, low, 1)
		assert.Equal(t, product, low[0].ProductID)

		all, err := f.inventory.List(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		assert.Contains(t, []any{all[0].ProductID, all[1].ProductID}, plenty)
	})

	t.Run("Fail on delta beyond row capacity", func(t *testing.T) {
		_, err := f.inventory.Adjust(ctx, product, model.MaxStockQuantity+1)
		assert.ErrorIs(t, err, model.ErrQuantityOutOfRange)

		_, err = f.inventory.Adjust(ctx, product, -model.MaxStockQuantity-1)
		assert.ErrorIs(t, err, model.ErrQuantityOutOfRange)
		assert.Equal(t, 0, f.stockOf(t, product))
	})

	t.Run("Fail when result exceeds row capacity", func(t *testing.T) {
		record, err := f.inventory.Adjust(ctx, product, model.MaxStockQuantity)
		require.NoError(t, err)
		assert.Equal(t, model.MaxStockQuantity, record.Quantity)

		_, err = f.inventory.Adjust(ctx, product, 1)
		assert.ErrorIs(t, err, model.ErrQuantityOutOfRange)
		assert.Equal(t, model.MaxStockQuantity, f.stockOf(t, product))
	})
}
