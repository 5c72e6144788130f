package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory/pkg/inventory/domain/model"
)

func TestEnqueue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		entry, err := f.queue.Enqueue(ctx, "sale", `{"items":[]}`)

		require.NoError(t, err)
		assert.Equal(t, model.SyncPending, entry.Status)
		assert.False(t, entry.CreatedAt.IsZero())
		assert.Nil(t, entry.SyncedAt)

		stored, err := f.queue.Find(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, `{"items":[]}`, stored.Payload)
	})

	t.Run("Fail on empty transaction type", func(t *testing.T) {
		_, err := f.queue.Enqueue(ctx, "  ", `{}`)
		assert.ErrorIs(t, err, model.ErrEmptyTransactionType)
	})
}

func TestListPending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	product := f.addProduct(t, "Napkins", "1.00", 1000)

	const total = 250
	var ids []string
	for range total {
		ids = append(ids, f.enqueueSale(t, nil, line(product, 1)).ID.String())
	}

	t.Run("Yield every entry in creation order across pages", func(t *testing.T) {
		var seen []string
		for entry, err := range f.queue.ListPending(ctx) {
			require.NoError(t, err)
			seen = append(seen, entry.ID.String())
		}
		assert.Equal(t, ids, seen)
	})

	t.Run("Stop early", func(t *testing.T) {
		count := 0
		for range f.queue.ListPending(ctx) {
			count++
			if count == 3 {
				break
			}
		}
		assert.Equal(t, 3, count)
	})

	t.Run("Ranging again reflects current state", func(t *testing.T) {
		result, err := f.replay.ReplayAll(ctx)
		require.NoError(t, err)
		require.Equal(t, total, result.Processed)

		count := 0
		for range f.queue.ListPending(ctx) {
			count++
		}
		assert.Zero(t, count)

		synced, err := f.queue.List(ctx, model.SyncSynced)
		require.NoError(t, err)
		assert.Len(t, synced, total)
		assert.Equal(t, 1000-total, f.stockOf(t, product))
	})

	t.Run("List without filter returns the audit trail", func(t *testing.T) {
		all, err := f.queue.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, total)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].CreatedAt.Before(all[i-1].CreatedAt))
		}
	})
}
