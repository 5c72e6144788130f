package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"inventory/pkg/inventory/domain/model"
)

// Store keeps the whole inventory in process memory. Writes are staged per
// unit of work and become visible atomically on commit; row locks are
// exclusive semaphores held until the unit of work ends.
type Store struct {
	mu       sync.RWMutex
	products map[uuid.UUID]model.Product
	stock    map[uuid.UUID]model.StockRecord
	sales    map[uuid.UUID]*model.Sale
	queue    map[uuid.UUID]model.SyncQueueEntry

	locksMu sync.Mutex
	locks   map[string]*rowLock
}

// rowLock is dropped from the store once no transaction holds or waits on it.
type rowLock struct {
	sem  *semaphore.Weighted
	refs int
}

func NewStore() *Store {
	return &Store{
		products: make(map[uuid.UUID]model.Product),
		stock:    make(map[uuid.UUID]model.StockRecord),
		sales:    make(map[uuid.UUID]*model.Sale),
		queue:    make(map[uuid.UUID]model.SyncQueueEntry),
		locks:    make(map[string]*rowLock),
	}
}

func (s *Store) Execute(ctx context.Context, fn func(provider model.RepositoryProvider) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := newTransaction(s)
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (s *Store) PingContext(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) acquireRow(ctx context.Context, key string) error {
	s.locksMu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &rowLock{sem: semaphore.NewWeighted(1)}
		s.locks[key] = lock
	}
	lock.refs++
	s.locksMu.Unlock()

	if err := lock.sem.Acquire(ctx, 1); err != nil {
		s.unref(key, lock)
		return err
	}
	return nil
}

func (s *Store) releaseRow(key string) {
	s.locksMu.Lock()
	lock := s.locks[key]
	s.locksMu.Unlock()

	lock.sem.Release(1)
	s.unref(key, lock)
}

func (s *Store) unref(key string, lock *rowLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, key)
	}
}

type transaction struct {
	store *Store
	held  map[string]struct{}

	products     map[uuid.UUID]model.Product
	stock        map[uuid.UUID]model.StockRecord
	sales        map[uuid.UUID]*model.Sale
	deletedSales map[uuid.UUID]struct{}
	queue        map[uuid.UUID]model.SyncQueueEntry
}

func newTransaction(store *Store) *transaction {
	return &transaction{
		store:        store,
		held:         make(map[string]struct{}),
		products:     make(map[uuid.UUID]model.Product),
		stock:        make(map[uuid.UUID]model.StockRecord),
		sales:        make(map[uuid.UUID]*model.Sale),
		deletedSales: make(map[uuid.UUID]struct{}),
		queue:        make(map[uuid.UUID]model.SyncQueueEntry),
	}
}

func (tx *transaction) Products() model.ProductRepository   { return &productRepository{tx: tx} }
func (tx *transaction) Stock() model.StockRepository         { return &stockRepository{tx: tx} }
func (tx *transaction) Sales() model.SaleRepository          { return &saleRepository{tx: tx} }
func (tx *transaction) SyncQueue() model.SyncQueueRepository { return &syncQueueRepository{tx: tx} }

// lock is reentrant within the transaction.
func (tx *transaction) lock(ctx context.Context, key string) error {
	if _, ok := tx.held[key]; ok {
		return nil
	}
	if err := tx.store.acquireRow(ctx, key); err != nil {
		return err
	}
	tx.held[key] = struct{}{}
	return nil
}

func (tx *transaction) release() {
	for key := range tx.held {
		tx.store.releaseRow(key)
		delete(tx.held, key)
	}
}

func (tx *transaction) commit() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	for id, record := range tx.stock {
		if record.Quantity < 0 {
			return &model.StorageError{
				Op:  "commit",
				Err: errors.Wrapf(model.ErrNegativeStockDetected, "product %s", id),
			}
		}
	}

	for id, product := range tx.products {
		tx.store.products[id] = product
	}
	for id, record := range tx.stock {
		tx.store.stock[id] = record
	}
	for id := range tx.deletedSales {
		delete(tx.store.sales, id)
	}
	for id, sale := range tx.sales {
		tx.store.sales[id] = sale
	}
	for id, entry := range tx.queue {
		tx.store.queue[id] = entry
	}
	return nil
}

func stockKey(id uuid.UUID) string { return "stock:" + id.String() }
func queueKey(id uuid.UUID) string { return "sync_queue:" + id.String() }
func saleKey(id uuid.UUID) string  { return "sale:" + id.String() }

type productRepository struct {
	tx *transaction
}

func (r *productRepository) Find(_ context.Context, id uuid.UUID) (*model.Product, error) {
	if product, ok := r.tx.products[id]; ok {
		return &product, nil
	}

	r.tx.store.mu.RLock()
	defer r.tx.store.mu.RUnlock()
	product, ok := r.tx.store.products[id]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	return &product, nil
}

func (r *productRepository) Store(_ context.Context, product *model.Product) error {
	r.tx.products[product.ID] = *product
	return nil
}

type stockRepository struct {
	tx *transaction
}

func (r *stockRepository) Find(_ context.Context, productID uuid.UUID) (*model.StockRecord, error) {
	if record, ok := r.tx.stock[productID]; ok {
		return &record, nil
	}

	r.tx.store.mu.RLock()
	defer r.tx.store.mu.RUnlock()
	record, ok := r.tx.store.stock[productID]
	if !ok {
		return nil, model.ErrStockRecordNotFound
	}
	return &record, nil
}

func (r *stockRepository) FindForUpdate(ctx context.Context, productID uuid.UUID) (*model.StockRecord, error) {
	if _, err := r.Find(ctx, productID); err != nil {
		return nil, err
	}
	if err := r.tx.lock(ctx, stockKey(productID)); err != nil {
		return nil, err
	}
	// re-read: the row may have changed while waiting for the lock
	return r.Find(ctx, productID)
}

func (r *stockRepository) Create(ctx context.Context, record *model.StockRecord) error {
	if _, err := r.Find(ctx, record.ProductID); err == nil {
		return &model.StorageError{Op: "create stock record", Err: errors.Errorf("duplicate product %s", record.ProductID)}
	}
	r.tx.stock[record.ProductID] = *record
	return nil
}

func (r *stockRepository) Update(ctx context.Context, record *model.StockRecord) error {
	if _, err := r.Find(ctx, record.ProductID); err != nil {
		return err
	}
	if err := r.tx.lock(ctx, stockKey(record.ProductID)); err != nil {
		return err
	}
	r.tx.stock[record.ProductID] = *record
	return nil
}

func (r *stockRepository) List(_ context.Context, lowStockOnly bool) ([]model.StockRecord, error) {
	r.tx.store.mu.RLock()
	merged := make(map[uuid.UUID]model.StockRecord, len(r.tx.store.stock))
	for id, record := range r.tx.store.stock {
		merged[id] = record
	}
	r.tx.store.mu.RUnlock()
	for id, record := range r.tx.stock {
		merged[id] = record
	}

	records := make([]model.StockRecord, 0, len(merged))
	for _, record := range merged {
		if lowStockOnly && !record.IsLow() {
			continue
		}
		records = append(records, record)
	}
	slices.SortFunc(records, func(a, b model.StockRecord) int {
		return model.CompareIDs(a.ProductID, b.ProductID)
	})
	return records, nil
}

type saleRepository struct {
	tx *transaction
}

func (r *saleRepository) NextID() (uuid.UUID, error) {
	return uuid.NewV7()
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	if _, err := r.Find(ctx, sale.ID); err == nil {
		return &model.StorageError{Op: "create sale", Err: errors.Errorf("duplicate sale %s", sale.ID)}
	}
	delete(r.tx.deletedSales, sale.ID)
	r.tx.sales[sale.ID] = sale.Clone()
	return nil
}

func (r *saleRepository) Find(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	if _, deleted := r.tx.deletedSales[id]; deleted {
		return nil, model.ErrSaleNotFound
	}
	if sale, ok := r.tx.sales[id]; ok {
		return sale.Clone(), nil
	}

	r.tx.store.mu.RLock()
	defer r.tx.store.mu.RUnlock()
	sale, ok := r.tx.store.sales[id]
	if !ok {
		return nil, model.ErrSaleNotFound
	}
	return sale.Clone(), nil
}

func (r *saleRepository) List(_ context.Context, filter model.SaleFilter) ([]model.Sale, error) {
	r.tx.store.mu.RLock()
	merged := make(map[uuid.UUID]*model.Sale, len(r.tx.store.sales))
	for id, sale := range r.tx.store.sales {
		merged[id] = sale
	}
	r.tx.store.mu.RUnlock()
	for id := range r.tx.deletedSales {
		delete(merged, id)
	}
	for id, sale := range r.tx.sales {
		merged[id] = sale
	}

	sales := make([]model.Sale, 0, len(merged))
	for _, sale := range merged {
		if !filter.Since.IsZero() && sale.SaleDate.Before(filter.Since) {
			continue
		}
		sales = append(sales, *sale.Clone())
	}
	slices.SortFunc(sales, func(a, b model.Sale) int {
		if c := b.SaleDate.Compare(a.SaleDate); c != 0 {
			return c
		}
		return model.CompareIDs(b.ID, a.ID)
	})

	return paginate(sales, filter.Offset, filter.Limit), nil
}

func (r *saleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.tx.lock(ctx, saleKey(id)); err != nil {
		return err
	}
	if _, err := r.Find(ctx, id); err != nil {
		return err
	}
	delete(r.tx.sales, id)
	r.tx.deletedSales[id] = struct{}{}
	return nil
}

type syncQueueRepository struct {
	tx *transaction
}

func (r *syncQueueRepository) NextID() (uuid.UUID, error) {
	return uuid.NewV7()
}

func (r *syncQueueRepository) Create(ctx context.Context, entry *model.SyncQueueEntry) error {
	if _, err := r.Find(ctx, entry.ID); err == nil {
		return &model.StorageError{Op: "create sync queue entry", Err: errors.Errorf("duplicate entry %s", entry.ID)}
	}
	r.tx.queue[entry.ID] = *cloneEntry(*entry)
	return nil
}

func (r *syncQueueRepository) Find(_ context.Context, id uuid.UUID) (*model.SyncQueueEntry, error) {
	if entry, ok := r.tx.queue[id]; ok {
		return cloneEntry(entry), nil
	}

	r.tx.store.mu.RLock()
	defer r.tx.store.mu.RUnlock()
	entry, ok := r.tx.store.queue[id]
	if !ok {
		return nil, model.ErrSyncEntryNotFound
	}
	return cloneEntry(entry), nil
}

func (r *syncQueueRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.SyncQueueEntry, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}
	if err := r.tx.lock(ctx, queueKey(id)); err != nil {
		return nil, err
	}
	return r.Find(ctx, id)
}

func (r *syncQueueRepository) List(_ context.Context, filter model.SyncQueueFilter) ([]model.SyncQueueEntry, error) {
	r.tx.store.mu.RLock()
	merged := make(map[uuid.UUID]model.SyncQueueEntry, len(r.tx.store.queue))
	for id, entry := range r.tx.store.queue {
		merged[id] = entry
	}
	r.tx.store.mu.RUnlock()
	for id, entry := range r.tx.queue {
		merged[id] = entry
	}

	entries := make([]model.SyncQueueEntry, 0, len(merged))
	for _, entry := range merged {
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		if filter.After != nil && !filter.After.Before(entry) {
			continue
		}
		entries = append(entries, *cloneEntry(entry))
	}
	slices.SortFunc(entries, func(a, b model.SyncQueueEntry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return model.CompareIDs(a.ID, b.ID)
	})

	return paginate(entries, 0, filter.Limit), nil
}

func (r *syncQueueRepository) Update(ctx context.Context, entry *model.SyncQueueEntry) error {
	if _, err := r.Find(ctx, entry.ID); err != nil {
		return err
	}
	if err := r.tx.lock(ctx, queueKey(entry.ID)); err != nil {
		return err
	}
	r.tx.queue[entry.ID] = *cloneEntry(*entry)
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneEntry(entry model.SyncQueueEntry) *model.SyncQueueEntry {
	if entry.SyncedAt != nil {
		syncedAt := *entry.SyncedAt
		entry.SyncedAt = &syncedAt
	}
	if entry.SaleID != nil {
		saleID := *entry.SaleID
		entry.SaleID = &saleID
	}
	return &entry
}

var _ model.UnitOfWork = (*Store)(nil)
