package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"inventory/pkg/common/domain"
	"inventory/pkg/inventory/domain/model"
)

const manualReviewSuffix = ". Manual review required."

type ReplayResult struct {
	Processed int
	Failed    int
}

type SyncReplayService interface {
	// ReplayAll drains pending entries in creation order. A failing entry is
	// marked FAILED and the pass goes on; only a store that cannot record the
	// outcome aborts it.
	ReplayAll(ctx context.Context) (ReplayResult, error)
	// Retry moves a FAILED entry back to PENDING for the next pass.
	Retry(ctx context.Context, entryID uuid.UUID) (*model.SyncQueueEntry, error)
}

func NewSyncReplayService(
	uow model.UnitOfWork,
	queue SyncQueueService,
	sales SaleService,
	dispatcher domain.EventDispatcher,
) SyncReplayService {
	return &syncReplayService{
		uow:        uow,
		queue:      queue,
		sales:      sales,
		dispatcher: dispatcher,
	}
}

type syncReplayService struct {
	mu         sync.Mutex
	uow        model.UnitOfWork
	queue      SyncQueueService
	sales      SaleService
	dispatcher domain.EventDispatcher
}

type replayOutcome int

const (
	outcomeSkipped replayOutcome = iota
	outcomeSynced
	outcomeFailed
)

func (s *syncReplayService) ReplayAll(ctx context.Context) (ReplayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result ReplayResult
	for entry, err := range s.queue.ListPending(ctx) {
		if err != nil {
			return result, err
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, err := s.replayEntry(ctx, entry)
		if err != nil {
			return result, err
		}
		switch outcome {
		case outcomeSynced:
			result.Processed++
		case outcomeFailed:
			result.Failed++
		}
	}
	return result, nil
}

func (s *syncReplayService) Retry(ctx context.Context, entryID uuid.UUID) (*model.SyncQueueEntry, error) {
	var entry *model.SyncQueueEntry
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		entry, err = provider.SyncQueue().FindForUpdate(ctx, entryID)
		if err != nil {
			return err
		}

		switch entry.Status {
		case model.SyncSynced:
			return model.ErrSyncEntryTerminal
		case model.SyncPending:
			return nil
		}

		entry.Status = model.SyncPending
		entry.ErrorMessage = ""
		return provider.SyncQueue().Update(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *syncReplayService) replayEntry(ctx context.Context, entry model.SyncQueueEntry) (replayOutcome, error) {
	var (
		sale    *model.Sale
		skipped bool
	)
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		current, err := provider.SyncQueue().FindForUpdate(ctx, entry.ID)
		if err != nil {
			return err
		}
		if current.Status != model.SyncPending {
			skipped = true
			return nil
		}

		command, err := DecodeSaleCommand(current.TransactionType, current.Payload)
		if err != nil {
			return err
		}

		sale, err = s.sales.CommitWithin(ctx, provider, command.Lines, command.SaleDate, model.OriginSync)
		if err != nil {
			return err
		}

		syncedAt := time.Now().UTC()
		current.Status = model.SyncSynced
		current.SyncedAt = &syncedAt
		current.SaleID = &sale.ID
		current.ErrorMessage = ""
		return provider.SyncQueue().Update(ctx, current)
	})
	if err == nil {
		if skipped {
			return outcomeSkipped, nil
		}
		log.WithFields(log.Fields{"entry": entry.ID, "sale": sale.ID}).Info("sync entry replayed")
		dispatchEvents(s.dispatcher,
			model.SaleCommitted{
				SaleID:      sale.ID,
				Origin:      sale.Origin,
				TotalAmount: sale.TotalAmount,
				Lines:       len(sale.Lines),
			},
			model.SyncEntryResolved{EntryID: entry.ID, Status: model.SyncSynced, SaleID: sale.ID},
		)
		return outcomeSynced, nil
	}

	if ctx.Err() != nil {
		return outcomeSkipped, ctx.Err()
	}

	message := failureMessage(err)
	log.WithError(err).WithField("entry", entry.ID).Warn("sync entry failed")
	marked, markErr := s.markFailed(ctx, entry.ID, message)
	if markErr != nil {
		return outcomeSkipped, errors.WithMessagef(markErr, "record failure of sync entry %s", entry.ID)
	}
	if !marked {
		return outcomeSkipped, nil
	}

	dispatchEvents(s.dispatcher, model.SyncEntryResolved{
		EntryID:      entry.ID,
		Status:       model.SyncFailed,
		ErrorMessage: message,
	})
	return outcomeFailed, nil
}

func (s *syncReplayService) markFailed(ctx context.Context, entryID uuid.UUID, message string) (bool, error) {
	marked := false
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		current, err := provider.SyncQueue().FindForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != model.SyncPending {
			return nil
		}

		current.Status = model.SyncFailed
		current.ErrorMessage = message
		marked = true
		return provider.SyncQueue().Update(ctx, current)
	})
	return marked, err
}

func failureMessage(err error) string {
	var shortage *model.InsufficientStockError
	if errors.As(err, &shortage) {
		return shortage.Error() + manualReviewSuffix
	}
	return err.Error()
}
