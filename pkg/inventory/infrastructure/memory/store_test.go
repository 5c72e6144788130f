package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory/pkg/inventory/domain/model"
)

func TestRowLocksAreDroppedAfterUse(t *testing.T) {
	s := NewStore()
	productID := uuid.New()
	require.NoError(t, s.Execute(context.Background(), func(provider model.RepositoryProvider) error {
		return provider.Stock().Create(context.Background(), &model.StockRecord{ProductID: productID, Quantity: 100})
	}))

	decrement := func(ctx context.Context) error {
		return s.Execute(ctx, func(provider model.RepositoryProvider) error {
			record, err := provider.Stock().FindForUpdate(ctx, productID)
			if err != nil {
				return err
			}
			record.Quantity--
			return provider.Stock().Update(ctx, record)
		})
	}

	t.Run("Drop locks once concurrent writers finish", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, decrement(context.Background()))
			}()
		}
		wg.Wait()

		assert.Zero(t, lockCount(s))
		record, err := findStock(s, productID)
		require.NoError(t, err)
		assert.Equal(t, 80, record.Quantity)
	})

	t.Run("Drop locks of writers that gave up waiting", func(t *testing.T) {
		locked := make(chan struct{})
		unlock := make(chan struct{})
		holder := make(chan error, 1)
		go func() {
			holder <- s.Execute(context.Background(), func(provider model.RepositoryProvider) error {
				if _, err := provider.Stock().FindForUpdate(context.Background(), productID); err != nil {
					return err
				}
				close(locked)
				<-unlock
				return nil
			})
		}()
		<-locked

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, decrement(ctx), context.DeadlineExceeded)
		assert.Equal(t, 1, lockCount(s))

		close(unlock)
		require.NoError(t, <-holder)
		assert.Zero(t, lockCount(s))
	})

	t.Run("Keep one lock per row while a transaction holds it", func(t *testing.T) {
		err := s.Execute(context.Background(), func(provider model.RepositoryProvider) error {
			for i := 0; i < 3; i++ {
				if _, err := provider.Stock().FindForUpdate(context.Background(), productID); err != nil {
					return err
				}
			}
			assert.Equal(t, 1, lockCount(s))
			return nil
		})

		require.NoError(t, err)
		assert.Zero(t, lockCount(s))
	})
}

func lockCount(s *Store) int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

func findStock(s *Store, productID uuid.UUID) (record *model.StockRecord, err error) {
	err = s.Execute(context.Background(), func(provider model.RepositoryProvider) error {
		record, err = provider.Stock().Find(context.Background(), productID)
		return err
	})
	return record, err
}
