package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"inventory/pkg/common/domain"
	appservice "inventory/pkg/inventory/application/service"
	"inventory/pkg/inventory/domain/model"
	domainservice "inventory/pkg/inventory/domain/service"
	"inventory/pkg/inventory/infrastructure/events"
	"inventory/pkg/inventory/infrastructure/kafka"
	"inventory/pkg/inventory/infrastructure/memory"
	"inventory/pkg/inventory/infrastructure/mysql"
	"inventory/pkg/inventory/infrastructure/seed"
)

type store interface {
	model.UnitOfWork
	PingContext(ctx context.Context) error
}

type container struct {
	store       store
	sales       domainservice.SaleService
	inventory   domainservice.InventoryService
	queue       domainservice.SyncQueueService
	replay      domainservice.SyncReplayService
	pointOfSale appservice.PointOfSale
	syncWorker  *appservice.SyncWorker

	closers []func() error
}

func newContainer(ctx context.Context, cfg config) (*container, error) {
	c := &container{}

	storage, err := c.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.store = storage

	dispatcher := c.newDispatcher(cfg)
	ledger := domainservice.NewStockLedger(cfg.LockTimeout)
	c.sales = domainservice.NewSaleService(storage, ledger, dispatcher)
	c.inventory = domainservice.NewInventoryService(storage, ledger, dispatcher)
	c.queue = domainservice.NewSyncQueueService(storage)
	c.replay = domainservice.NewSyncReplayService(storage, c.queue, c.sales, dispatcher)
	c.pointOfSale = appservice.NewPointOfSale(c.sales, cfg.CommitWorkers)
	c.syncWorker = appservice.NewSyncWorker(c.replay, cfg.SyncInterval)
	return c, nil
}

func (c *container) openStore(ctx context.Context, cfg config) (store, error) {
	if cfg.Storage == storageMemory {
		storage := memory.NewStore()
		count, err := seed.LoadDemoCatalog(ctx, storage)
		if err != nil {
			return nil, err
		}
		log.WithField("products", count).Info("in-memory store seeded with demo catalog")
		return storage, nil
	}

	db, err := mysql.Open(ctx, mysql.Config{
		DSN:         cfg.DBDSN,
		MaxConns:    cfg.DBMaxConns,
		LockTimeout: cfg.LockTimeout,
	})
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, db.Close)
	return mysql.NewUnitOfWork(db), nil
}

func (c *container) newDispatcher(cfg config) domain.EventDispatcher {
	if cfg.KafkaBroker == "" {
		return events.NewLogDispatcher(log.WithField("component", "events"))
	}

	dispatcher := kafka.NewDispatcher(kafka.NewWriter(cfg.KafkaBroker, cfg.KafkaTopic))
	c.closers = append(c.closers, dispatcher.Close)
	log.WithFields(log.Fields{
		"broker": cfg.KafkaBroker,
		"topic":  cfg.KafkaTopic,
	}).Info("publishing domain events to kafka")
	return dispatcher
}

func (c *container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.WithError(err).Warn("close resource")
		}
	}
}
