package tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory/pkg/inventory/application/service"
	"inventory/pkg/inventory/domain/model"
	domainservice "inventory/pkg/inventory/domain/service"
)

func TestSyncWorkerProcess(t *testing.T) {
	replay := &mockReplayService{result: domainservice.ReplayResult{Processed: 3, Failed: 1}}
	worker := service.NewSyncWorker(replay, 0)

	result, err := worker.Process(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domainservice.ReplayResult{Processed: 3, Failed: 1}, result)
}

func TestSyncWorkerRun(t *testing.T) {
	t.Run("Return at once without interval", func(t *testing.T) {
		replay := &mockReplayService{}
		worker := service.NewSyncWorker(replay, 0)

		require.NoError(t, worker.Run(context.Background()))
		assert.Zero(t, replay.calls.Load())
	})

	t.Run("Replay on every tick until cancelled", func(t *testing.T) {
		replay := &mockReplayService{}
		worker := service.NewSyncWorker(replay, 5*time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- worker.Run(ctx) }()

		require.Eventually(t, func() bool { return replay.calls.Load() >= 3 }, time.Second, time.Millisecond)
		cancel()
		assert.NoError(t, <-done)
	})

	t.Run("Keep going after a failed pass", func(t *testing.T) {
		replay := &mockReplayService{err: errors.New("store unavailable")}
		worker := service.NewSyncWorker(replay, 5*time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- worker.Run(ctx) }()

		require.Eventually(t, func() bool { return replay.calls.Load() >= 2 }, time.Second, time.Millisecond)
		cancel()
		assert.NoError(t, <-done)
	})
}

type mockReplayService struct {
	result domainservice.ReplayResult
	err    error
	calls  atomic.Int32
}

func (m *mockReplayService) ReplayAll(context.Context) (domainservice.ReplayResult, error) {
	m.calls.Add(1)
	return m.result, m.err
}

func (m *mockReplayService) Retry(context.Context, uuid.UUID) (*model.SyncQueueEntry, error) {
	return nil, model.ErrSyncEntryNotFound
}
