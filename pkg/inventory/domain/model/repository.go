package model

import (
	"bytes"
	"context"

	"github.com/google/uuid"
)

type ProductRepository interface {
	Find(ctx context.Context, id uuid.UUID) (*Product, error)
	Store(ctx context.Context, product *Product) error
}

type StockRepository interface {
	Find(ctx context.Context, productID uuid.UUID) (*StockRecord, error)
	// FindForUpdate blocks until the row lock is held or ctx is done. The lock
	// is released when the enclosing unit of work ends.
	FindForUpdate(ctx context.Context, productID uuid.UUID) (*StockRecord, error)
	Create(ctx context.Context, record *StockRecord) error
	Update(ctx context.Context, record *StockRecord) error
	List(ctx context.Context, lowStockOnly bool) ([]StockRecord, error)
}

type SaleRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, sale *Sale) error
	Find(ctx context.Context, id uuid.UUID) (*Sale, error)
	List(ctx context.Context, filter SaleFilter) ([]Sale, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type SyncQueueRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, entry *SyncQueueEntry) error
	Find(ctx context.Context, id uuid.UUID) (*SyncQueueEntry, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*SyncQueueEntry, error)
	List(ctx context.Context, filter SyncQueueFilter) ([]SyncQueueEntry, error)
	Update(ctx context.Context, entry *SyncQueueEntry) error
}

type RepositoryProvider interface {
	Products() ProductRepository
	Stock() StockRepository
	Sales() SaleRepository
	SyncQueue() SyncQueueRepository
}

// UnitOfWork runs fn in one transaction: fn returning nil commits every write
// made through the provider, any error rolls all of them back. Row locks taken
// inside fn are held until Execute returns.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(provider RepositoryProvider) error) error
}

// CompareIDs is the canonical lock order for product and queue rows.
func CompareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
