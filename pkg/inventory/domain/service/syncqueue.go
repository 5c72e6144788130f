package service

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"

	"inventory/pkg/inventory/domain/model"
)

const pendingPageSize = 100

type SyncQueueService interface {
	Enqueue(ctx context.Context, transactionType, payload string) (*model.SyncQueueEntry, error)
	// ListPending yields PENDING entries by created_at ascending. Every range
	// over the sequence queries the store again and stops at entries created
	// after the range started.
	ListPending(ctx context.Context) iter.Seq2[model.SyncQueueEntry, error]
	List(ctx context.Context, status model.SyncStatus) ([]model.SyncQueueEntry, error)
	Find(ctx context.Context, entryID uuid.UUID) (*model.SyncQueueEntry, error)
}

func NewSyncQueueService(uow model.UnitOfWork) SyncQueueService {
	return &syncQueueService{uow: uow}
}

type syncQueueService struct {
	uow model.UnitOfWork
}

func (s *syncQueueService) Enqueue(ctx context.Context, transactionType, payload string) (*model.SyncQueueEntry, error) {
	transactionType = strings.TrimSpace(transactionType)
	if transactionType == "" {
		return nil, model.ErrEmptyTransactionType
	}

	var entry *model.SyncQueueEntry
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		entryID, err := provider.SyncQueue().NextID()
		if err != nil {
			return err
		}

		entry = &model.SyncQueueEntry{
			ID:              entryID,
			TransactionType: transactionType,
			Payload:         payload,
			Status:          model.SyncPending,
			CreatedAt:       time.Now().UTC(),
		}
		return provider.SyncQueue().Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *syncQueueService) ListPending(ctx context.Context) iter.Seq2[model.SyncQueueEntry, error] {
	return func(yield func(model.SyncQueueEntry, error) bool) {
		horizon := time.Now().UTC()
		var cursor *model.SyncCursor
		for {
			page, err := s.page(ctx, model.SyncQueueFilter{
				Status: model.SyncPending,
				After:  cursor,
				Limit:  pendingPageSize,
			})
			if err != nil {
				yield(model.SyncQueueEntry{}, err)
				return
			}

			for _, entry := range page {
				if entry.CreatedAt.After(horizon) {
					return
				}
				if !yield(entry, nil) {
					return
				}
			}
			if len(page) < pendingPageSize {
				return
			}

			last := page[len(page)-1]
			cursor = &model.SyncCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		}
	}
}

func (s *syncQueueService) List(ctx context.Context, status model.SyncStatus) ([]model.SyncQueueEntry, error) {
	return s.page(ctx, model.SyncQueueFilter{Status: status})
}

func (s *syncQueueService) Find(ctx context.Context, entryID uuid.UUID) (*model.SyncQueueEntry, error) {
	var entry *model.SyncQueueEntry
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		entry, err = provider.SyncQueue().Find(ctx, entryID)
		return err
	})
	return entry, err
}

func (s *syncQueueService) page(ctx context.Context, filter model.SyncQueueFilter) ([]model.SyncQueueEntry, error) {
	var entries []model.SyncQueueEntry
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		entries, err = provider.SyncQueue().List(ctx, filter)
		return err
	})
	return entries, err
}
