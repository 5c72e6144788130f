package mysql

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"inventory/pkg/inventory/domain/model"
)

type UnitOfWork struct {
	db *sqlx.DB
}

func NewUnitOfWork(db *sqlx.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Execute(ctx context.Context, fn func(provider model.RepositoryProvider) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return translate("begin transaction", err, nil)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&provider{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate("commit transaction", err, nil)
	}
	committed = true
	return nil
}

func (u *UnitOfWork) PingContext(ctx context.Context) error {
	return u.db.PingContext(ctx)
}

type provider struct {
	tx *sqlx.Tx
}

func (p *provider) Products() model.ProductRepository   { return &productRepository{tx: p.tx} }
func (p *provider) Stock() model.StockRepository         { return &stockRepository{tx: p.tx} }
func (p *provider) Sales() model.SaleRepository          { return &saleRepository{tx: p.tx} }
func (p *provider) SyncQueue() model.SyncQueueRepository { return &syncQueueRepository{tx: p.tx} }

// DATETIME(6) keeps microseconds; rounding on insert could move a timestamp
// past a reader's horizon.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

var _ model.UnitOfWork = (*UnitOfWork)(nil)
