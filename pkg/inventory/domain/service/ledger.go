package service

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"inventory/pkg/inventory/domain/model"
)

// StockHandle is a stock row locked inside a unit of work. Changes are staged
// on the handle and written by Apply.
type StockHandle struct {
	record  model.StockRecord
	pending int
}

func (h *StockHandle) ProductID() uuid.UUID { return h.record.ProductID }

// Quantity is the row quantity including staged changes.
func (h *StockHandle) Quantity() int { return h.record.Quantity + h.pending }

func (h *StockHandle) Record() model.StockRecord {
	record := h.record
	record.Quantity = h.Quantity()
	return record
}

type StockLedger interface {
	Acquire(ctx context.Context, stock model.StockRepository, productID uuid.UUID) (*StockHandle, error)
	// AcquireAll locks every distinct product in ascending id order within one
	// bounded wait.
	AcquireAll(ctx context.Context, stock model.StockRepository, productIDs []uuid.UUID) (map[uuid.UUID]*StockHandle, error)
	CheckAndReserve(handle *StockHandle, quantity int) error
	Restore(handle *StockHandle, quantity int) error
	Adjust(handle *StockHandle, delta int) error
	Apply(ctx context.Context, stock model.StockRepository, handles ...*StockHandle) error
}

func NewStockLedger(lockTimeout time.Duration) StockLedger {
	return &stockLedger{lockTimeout: lockTimeout}
}

type stockLedger struct {
	lockTimeout time.Duration
}

func (l *stockLedger) Acquire(ctx context.Context, stock model.StockRepository, productID uuid.UUID) (*StockHandle, error) {
	handles, err := l.AcquireAll(ctx, stock, []uuid.UUID{productID})
	if err != nil {
		return nil, err
	}
	return handles[productID], nil
}

func (l *stockLedger) AcquireAll(ctx context.Context, stock model.StockRepository, productIDs []uuid.UUID) (map[uuid.UUID]*StockHandle, error) {
	ids := slices.Clone(productIDs)
	slices.SortFunc(ids, model.CompareIDs)
	ids = slices.Compact(ids)

	lockCtx, cancel := l.lockContext(ctx)
	defer cancel()

	handles := make(map[uuid.UUID]*StockHandle, len(ids))
	for _, id := range ids {
		record, err := stock.FindForUpdate(lockCtx, id)
		if err != nil {
			return nil, l.lockError(ctx, err, id)
		}
		handles[id] = &StockHandle{record: *record}
	}
	return handles, nil
}

func (l *stockLedger) CheckAndReserve(handle *StockHandle, quantity int) error {
	if quantity <= 0 {
		return model.ErrInvalidQuantity
	}
	if handle.Quantity() < quantity {
		return &model.InsufficientStockError{
			ProductID: handle.ProductID(),
			Available: handle.Quantity(),
			Requested: quantity,
		}
	}
	handle.pending -= quantity
	return nil
}

func (l *stockLedger) Restore(handle *StockHandle, quantity int) error {
	if quantity <= 0 {
		return model.ErrInvalidQuantity
	}
	if err := checkRange(handle, quantity); err != nil {
		return err
	}
	handle.pending += quantity
	return nil
}

func (l *stockLedger) Adjust(handle *StockHandle, delta int) error {
	if err := checkRange(handle, delta); err != nil {
		return err
	}
	if handle.Quantity()+delta < 0 {
		return &model.InsufficientStockError{
			ProductID: handle.ProductID(),
			Available: handle.Quantity(),
			Requested: -delta,
		}
	}
	handle.pending += delta
	return nil
}

func (l *stockLedger) Apply(ctx context.Context, stock model.StockRepository, handles ...*StockHandle) error {
	now := time.Now().UTC()
	for _, handle := range handles {
		if handle.pending == 0 {
			continue
		}
		if handle.Quantity() < 0 {
			return errors.Wrapf(model.ErrNegativeStockDetected, "product %s", handle.ProductID())
		}

		record := handle.Record()
		record.UpdatedAt = now
		if err := stock.Update(ctx, &record); err != nil {
			return err
		}
		handle.record = record
		handle.pending = 0
	}
	return nil
}

// checkRange keeps delta and the resulting quantity within what a stock row
// can hold. A bounded delta cannot overflow int.
func checkRange(handle *StockHandle, delta int) error {
	if delta > model.MaxStockQuantity || delta < -model.MaxStockQuantity ||
		handle.Quantity()+delta > model.MaxStockQuantity {
		return errors.Wrapf(model.ErrQuantityOutOfRange, "product %s", handle.ProductID())
	}
	return nil
}

func (l *stockLedger) lockContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.lockTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.lockTimeout)
}

func (l *stockLedger) lockError(parent context.Context, err error, productID uuid.UUID) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, model.ErrLockTimeout) {
		return errors.Wrapf(model.ErrLockTimeout, "product %s", productID)
	}
	if errors.Is(err, model.ErrStockRecordNotFound) {
		return errors.Wrapf(model.ErrStockRecordNotFound, "product %s", productID)
	}
	return err
}
