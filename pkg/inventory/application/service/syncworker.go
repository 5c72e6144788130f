package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	domainservice "inventory/pkg/inventory/domain/service"
)

// SyncWorker replays the sync queue on demand and, when an interval is set,
// in the background.
type SyncWorker struct {
	replay   domainservice.SyncReplayService
	interval time.Duration
}

func NewSyncWorker(replay domainservice.SyncReplayService, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		replay:   replay,
		interval: interval,
	}
}

func (w *SyncWorker) Process(ctx context.Context) (domainservice.ReplayResult, error) {
	ctx, span := tracer.Start(ctx, "sync.replay")
	defer span.End()

	result, err := w.replay.ReplayAll(ctx)
	span.SetAttributes(
		attribute.Int("sync.processed", result.Processed),
		attribute.Int("sync.failed", result.Failed),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	span.SetStatus(codes.Ok, "sync pass complete")
	return result, nil
}

// Run blocks until ctx is done. It returns immediately when no interval is
// configured.
func (w *SyncWorker) Run(ctx context.Context) error {
	if w.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			result, err := w.Process(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.WithError(err).Error("background sync pass failed")
				continue
			}
			if result.Processed+result.Failed > 0 {
				log.WithFields(log.Fields{
					"processed": result.Processed,
					"failed":    result.Failed,
				}).Info("background sync pass complete")
			}
		}
	}
}
