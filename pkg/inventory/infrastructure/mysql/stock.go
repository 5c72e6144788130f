package mysql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"inventory/pkg/inventory/domain/model"
)

const selectStock = `
	SELECT product_id, quantity, min_stock_level, last_updated
	FROM inventory`

type stockRow struct {
	ProductID     uuid.UUID `db:"product_id"`
	Quantity      int       `db:"quantity"`
	MinStockLevel int       `db:"min_stock_level"`
	LastUpdated   time.Time `db:"last_updated"`
}

func (row stockRow) toModel() model.StockRecord {
	return model.StockRecord{
		ProductID:     row.ProductID,
		Quantity:      row.Quantity,
		MinStockLevel: row.MinStockLevel,
		UpdatedAt:     row.LastUpdated,
	}
}

type stockRepository struct {
	tx *sqlx.Tx
}

func (r *stockRepository) Find(ctx context.Context, productID uuid.UUID) (*model.StockRecord, error) {
	return r.find(ctx, selectStock+` WHERE product_id = ?`, productID)
}

func (r *stockRepository) FindForUpdate(ctx context.Context, productID uuid.UUID) (*model.StockRecord, error) {
	return r.find(ctx, selectStock+` WHERE product_id = ? FOR UPDATE`, productID)
}

func (r *stockRepository) Create(ctx context.Context, record *model.StockRecord) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO inventory (product_id, quantity, min_stock_level, last_updated)
		VALUES (?, ?, ?, ?)`,
		record.ProductID, record.Quantity, record.MinStockLevel, dbTime(record.UpdatedAt))
	return translate("create stock record", err, nil)
}

func (r *stockRepository) Update(ctx context.Context, record *model.StockRecord) error {
	result, err := r.tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = ?, min_stock_level = ?, last_updated = ?
		WHERE product_id = ?`,
		record.Quantity, record.MinStockLevel, dbTime(record.UpdatedAt), record.ProductID)
	if err != nil {
		return translate("update stock record", err, nil)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return translate("update stock record", err, nil)
	}
	if affected == 0 {
		return model.ErrStockRecordNotFound
	}
	return nil
}

func (r *stockRepository) List(ctx context.Context, lowStockOnly bool) ([]model.StockRecord, error) {
	query := selectStock
	if lowStockOnly {
		query += ` WHERE quantity <= min_stock_level`
	}
	query += ` ORDER BY product_id`

	var rows []stockRow
	if err := r.tx.SelectContext(ctx, &rows, query); err != nil {
		return nil, translate("list stock records", err, nil)
	}

	records := make([]model.StockRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toModel())
	}
	return records, nil
}

func (r *stockRepository) find(ctx context.Context, query string, productID uuid.UUID) (*model.StockRecord, error) {
	var row stockRow
	if err := r.tx.GetContext(ctx, &row, query, productID); err != nil {
		return nil, translate("find stock record", err, model.ErrStockRecordNotFound)
	}
	record := row.toModel()
	return &record, nil
}
