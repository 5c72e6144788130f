package mysql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"inventory/pkg/inventory/domain/model"
)

// MySQL needs a LIMIT whenever OFFSET is used.
const unlimited = uint64(18446744073709551615)

type saleRow struct {
	ID          uuid.UUID       `db:"id"`
	SaleDate    time.Time       `db:"sale_date"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	Status      string          `db:"status"`
	SyncOrigin  string          `db:"sync_origin"`
	CreatedAt   time.Time       `db:"created_at"`
}

type saleItemRow struct {
	SaleID      uuid.UUID       `db:"sale_id"`
	LineNo      int             `db:"line_no"`
	ProductID   uuid.UUID       `db:"product_id"`
	ProductName string          `db:"product_name"`
	Quantity    int             `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	Subtotal    decimal.Decimal `db:"subtotal"`
}

type saleRepository struct {
	tx *sqlx.Tx
}

func (r *saleRepository) NextID() (uuid.UUID, error) {
	return uuid.NewV7()
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	_, err := r.tx.NamedExecContext(ctx, `
		INSERT INTO sales (id, sale_date, total_amount, status, sync_origin, created_at)
		VALUES (:id, :sale_date, :total_amount, :status, :sync_origin, :created_at)`,
		saleRow{
			ID:          sale.ID,
			SaleDate:    dbTime(sale.SaleDate),
			TotalAmount: sale.TotalAmount,
			Status:      string(sale.Status),
			SyncOrigin:  string(sale.Origin),
			CreatedAt:   dbTime(sale.CreatedAt),
		})
	if err != nil {
		return translate("create sale", err, nil)
	}

	items := make([]saleItemRow, 0, len(sale.Lines))
	for i, line := range sale.Lines {
		items = append(items, saleItemRow{
			SaleID:      sale.ID,
			LineNo:      i + 1,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Subtotal:    line.Subtotal,
		})
	}
	if len(items) == 0 {
		return nil
	}

	_, err = r.tx.NamedExecContext(ctx, `
		INSERT INTO sale_items (sale_id, line_no, product_id, product_name, quantity, unit_price, subtotal)
		VALUES (:sale_id, :line_no, :product_id, :product_name, :quantity, :unit_price, :subtotal)`, items)
	return translate("create sale items", err, nil)
}

func (r *saleRepository) Find(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var row saleRow
	err := r.tx.GetContext(ctx, &row, `
		SELECT id, sale_date, total_amount, status, sync_origin, created_at
		FROM sales
		WHERE id = ?`, id)
	if err != nil {
		return nil, translate("find sale", err, model.ErrSaleNotFound)
	}

	sales, err := r.withItems(ctx, []saleRow{row})
	if err != nil {
		return nil, err
	}
	return &sales[0], nil
}

func (r *saleRepository) List(ctx context.Context, filter model.SaleFilter) ([]model.Sale, error) {
	limit := unlimited
	if filter.Limit > 0 {
		limit = uint64(filter.Limit)
	}
	offset := uint64(0)
	if filter.Offset > 0 {
		offset = uint64(filter.Offset)
	}

	query := `SELECT id, sale_date, total_amount, status, sync_origin, created_at FROM sales`
	var args []any
	if !filter.Since.IsZero() {
		query += ` WHERE sale_date >= ?`
		args = append(args, dbTime(filter.Since))
	}
	query += ` ORDER BY sale_date DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []saleRow
	if err := r.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translate("list sales", err, nil)
	}
	return r.withItems(ctx, rows)
}

func (r *saleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.tx.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, id)
	if err != nil {
		return translate("delete sale", err, nil)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return translate("delete sale", err, nil)
	}
	if affected == 0 {
		return model.ErrSaleNotFound
	}
	return nil
}

func (r *saleRepository) withItems(ctx context.Context, rows []saleRow) ([]model.Sale, error) {
	if len(rows) == 0 {
		return []model.Sale{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	query, args, err := sqlx.In(`
		SELECT sale_id, line_no, product_id, product_name, quantity, unit_price, subtotal
		FROM sale_items
		WHERE sale_id IN (?)
		ORDER BY sale_id, line_no`, ids)
	if err != nil {
		return nil, translate("list sale items", err, nil)
	}

	var items []saleItemRow
	if err := r.tx.SelectContext(ctx, &items, r.tx.Rebind(query), args...); err != nil {
		return nil, translate("list sale items", err, nil)
	}

	lines := make(map[uuid.UUID][]model.SaleLine, len(rows))
	for _, item := range items {
		lines[item.SaleID] = append(lines[item.SaleID], model.SaleLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}

	sales := make([]model.Sale, 0, len(rows))
	for _, row := range rows {
		sales = append(sales, model.Sale{
			ID:          row.ID,
			SaleDate:    row.SaleDate,
			TotalAmount: row.TotalAmount,
			Status:      model.SaleStatus(row.Status),
			Origin:      model.SaleOrigin(row.SyncOrigin),
			CreatedAt:   row.CreatedAt,
			Lines:       lines[row.ID],
		})
	}
	return sales, nil
}
