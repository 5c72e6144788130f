package service

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"inventory/pkg/common/domain"
	"inventory/pkg/inventory/domain/model"
)

type SaleService interface {
	// Commit validates lines against stock and records the sale in one unit of
	// work. A nil originTimestamp dates the sale at commit time.
	Commit(ctx context.Context, lines []model.SaleLineRequest, originTimestamp *time.Time) (*model.Sale, error)
	// CommitWithin runs the commit inside a unit of work owned by the caller.
	// No event is dispatched.
	CommitWithin(ctx context.Context, provider model.RepositoryProvider, lines []model.SaleLineRequest, originTimestamp *time.Time, origin model.SaleOrigin) (*model.Sale, error)
	Reverse(ctx context.Context, saleID uuid.UUID, restoreInventory bool) error
	Find(ctx context.Context, saleID uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, filter model.SaleFilter) ([]model.Sale, error)
}

func NewSaleService(uow model.UnitOfWork, ledger StockLedger, dispatcher domain.EventDispatcher) SaleService {
	return &saleService{
		uow:        uow,
		ledger:     ledger,
		dispatcher: dispatcher,
	}
}

type saleService struct {
	uow        model.UnitOfWork
	ledger     StockLedger
	dispatcher domain.EventDispatcher
}

func (s *saleService) Commit(ctx context.Context, lines []model.SaleLineRequest, originTimestamp *time.Time) (*model.Sale, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	var sale *model.Sale
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		sale, err = s.CommitWithin(ctx, provider, lines, originTimestamp, model.OriginLive)
		return err
	})
	if err != nil {
		return nil, err
	}

	dispatchEvents(s.dispatcher, model.SaleCommitted{
		SaleID:      sale.ID,
		Origin:      sale.Origin,
		TotalAmount: sale.TotalAmount,
		Lines:       len(sale.Lines),
	})
	return sale, nil
}

func (s *saleService) CommitWithin(
	ctx context.Context,
	provider model.RepositoryProvider,
	lines []model.SaleLineRequest,
	originTimestamp *time.Time,
	origin model.SaleOrigin,
) (*model.Sale, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	products := make(map[uuid.UUID]*model.Product, len(lines))
	requested := make(map[uuid.UUID]int, len(lines))
	var order []uuid.UUID
	for _, line := range lines {
		if _, ok := products[line.ProductID]; !ok {
			product, err := provider.Products().Find(ctx, line.ProductID)
			if err != nil {
				return nil, errors.WithMessagef(err, "product %s", line.ProductID)
			}
			products[line.ProductID] = product
			order = append(order, line.ProductID)
		}
		requested[line.ProductID] += line.Quantity
	}

	handles, err := s.ledger.AcquireAll(ctx, provider.Stock(), order)
	if err != nil {
		return nil, err
	}

	for _, productID := range order {
		if err := s.ledger.CheckAndReserve(handles[productID], requested[productID]); err != nil {
			var shortage *model.InsufficientStockError
			if errors.As(err, &shortage) {
				shortage.ProductName = products[productID].Name
			}
			return nil, err
		}
	}

	saleID, err := provider.Sales().NextID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sale := &model.Sale{
		ID:          saleID,
		SaleDate:    now,
		TotalAmount: decimal.Zero,
		Status:      model.SaleCompleted,
		Origin:      origin,
		CreatedAt:   now,
		Lines:       make([]model.SaleLine, 0, len(lines)),
	}
	if originTimestamp != nil {
		sale.SaleDate = originTimestamp.UTC()
	}

	for _, line := range lines {
		product := products[line.ProductID]
		subtotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		sale.Lines = append(sale.Lines, model.SaleLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
			Subtotal:    subtotal,
		})
		sale.TotalAmount = sale.TotalAmount.Add(subtotal)
	}

	if err := provider.Sales().Create(ctx, sale); err != nil {
		return nil, err
	}

	staged := make([]*StockHandle, 0, len(handles))
	for _, productID := range order {
		staged = append(staged, handles[productID])
	}
	if err := s.ledger.Apply(ctx, provider.Stock(), staged...); err != nil {
		return nil, err
	}

	return sale, nil
}

func (s *saleService) Reverse(ctx context.Context, saleID uuid.UUID, restoreInventory bool) error {
	restored := 0
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		sale, err := provider.Sales().Find(ctx, saleID)
		if err != nil {
			return err
		}

		if restoreInventory {
			restored, err = s.restoreStock(ctx, provider.Stock(), sale)
			if err != nil {
				return err
			}
		}

		return provider.Sales().Delete(ctx, saleID)
	})
	if err != nil {
		return err
	}

	dispatchEvents(s.dispatcher, model.SaleReversed{
		SaleID:          saleID,
		StockRestored:   restoreInventory,
		RestoredRecords: restored,
	})
	return nil
}

func (s *saleService) Find(ctx context.Context, saleID uuid.UUID) (*model.Sale, error) {
	var sale *model.Sale
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		sale, err = provider.Sales().Find(ctx, saleID)
		return err
	})
	return sale, err
}

func (s *saleService) List(ctx context.Context, filter model.SaleFilter) ([]model.Sale, error) {
	var sales []model.Sale
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		var err error
		sales, err = provider.Sales().List(ctx, filter)
		return err
	})
	return sales, err
}

// restoreStock returns every line's quantity to its stock row. Rows removed
// together with their product are skipped.
func (s *saleService) restoreStock(ctx context.Context, stock model.StockRepository, sale *model.Sale) (int, error) {
	quantities := make(map[uuid.UUID]int, len(sale.Lines))
	for _, line := range sale.Lines {
		quantities[line.ProductID] += line.Quantity
	}

	ids := make([]uuid.UUID, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, model.CompareIDs)

	handles := make([]*StockHandle, 0, len(ids))
	for _, id := range ids {
		handle, err := s.ledger.Acquire(ctx, stock, id)
		if errors.Is(err, model.ErrStockRecordNotFound) {
			log.WithFields(log.Fields{"sale": sale.ID, "product": id}).Warn("stock record missing, skipping restore")
			continue
		}
		if err != nil {
			return 0, err
		}
		if err := s.ledger.Restore(handle, quantities[id]); err != nil {
			return 0, err
		}
		handles = append(handles, handle)
	}

	if err := s.ledger.Apply(ctx, stock, handles...); err != nil {
		return 0, err
	}
	return len(handles), nil
}

func validateLines(lines []model.SaleLineRequest) error {
	if len(lines) == 0 {
		return model.ErrEmptySale
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return errors.Wrapf(model.ErrInvalidQuantity, "product %s", line.ProductID)
		}
	}
	return nil
}

func dispatchEvents(dispatcher domain.EventDispatcher, events ...domain.Event) {
	for _, event := range events {
		if err := dispatcher.Dispatch(event); err != nil {
			log.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
		}
	}
}
