package service

import (
	"context"

	"github.com/google/uuid"

	"inventory/pkg/common/domain"
	"inventory/pkg/inventory/domain/model"
)

type InventoryService interface {
	Find(ctx context.Context, productID uuid.UUID) (*model.StockRecord, error)
	List(ctx context.Context, lowStockOnly bool) ([]model.StockRecord, error)
	// Adjust applies a signed restock or shrinkage delta under the row lock.
	Adjust(ctx context.Context, productID uuid.UUID, delta int) (*model.StockRecord, error)
}

func NewInventoryService(uow model.UnitOfWork, ledger StockLedger, dispatcher domain.EventDispatcher) InventoryService {
	return &inventoryService{
		uow:        uow,
		ledger:     ledger,
		dispatcher: dispatcher,
	}
}

type inventoryService struct {
	uow        model.UnitOfWork
	ledger     StockLedger
	dispatcher domain.EventDispatcher
}

func (s *inventoryService) Find(ctx context.Context, productID uuid.UUID) (*model.StockRecord, error) {
	var record *model.StockRecord
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		record, err = provider.Stock().Find(ctx, productID)
		return err
	})
	return record, err
}

func (s *inventoryService) List(ctx context.Context, lowStockOnly bool) ([]model.StockRecord, error) {
	var records []model.StockRecord
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		records, err = provider.Stock().List(ctx, lowStockOnly)
		return err
	})
	return records, err
}

func (s *inventoryService) Adjust(ctx context.Context, productID uuid.UUID, delta int) (*model.StockRecord, error) {
	var record model.StockRecord
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		handle, err := s.ledger.Acquire(ctx, provider.Stock(), productID)
		if err != nil {
			return err
		}
		if err := s.ledger.Adjust(handle, delta); err != nil {
			return err
		}
		if err := s.ledger.Apply(ctx, provider.Stock(), handle); err != nil {
			return err
		}
		record = handle.Record()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if delta != 0 {
		dispatchEvents(s.dispatcher, model.StockAdjusted{
			ProductID:   productID,
			Delta:       delta,
			NewQuantity: record.Quantity,
		})
	}
	return &record, nil
}
