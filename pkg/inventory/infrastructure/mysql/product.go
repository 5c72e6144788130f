package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"inventory/pkg/inventory/domain/model"
)

type productRow struct {
	ID          uuid.UUID       `db:"id"`
	Name        string          `db:"name"`
	Description sql.NullString  `db:"description"`
	Category    string          `db:"category"`
	Barcode     sql.NullString  `db:"barcode"`
	Price       decimal.Decimal `db:"price"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

type productRepository struct {
	tx *sqlx.Tx
}

func (r *productRepository) Find(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var row productRow
	err := r.tx.GetContext(ctx, &row, `
		SELECT id, name, description, category, barcode, price, created_at, updated_at
		FROM products
		WHERE id = ?`, id)
	if err != nil {
		return nil, translate("find product", err, model.ErrProductNotFound)
	}

	return &model.Product{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description.String,
		Category:    row.Category,
		Barcode:     row.Barcode.String,
		Price:       row.Price,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func (r *productRepository) Store(ctx context.Context, product *model.Product) error {
	row := productRow{
		ID:          product.ID,
		Name:        product.Name,
		Description: sql.NullString{String: product.Description, Valid: product.Description != ""},
		Category:    product.Category,
		Barcode:     sql.NullString{String: product.Barcode, Valid: product.Barcode != ""},
		Price:       product.Price,
		CreatedAt:   dbTime(product.CreatedAt),
		UpdatedAt:   dbTime(product.UpdatedAt),
	}
	_, err := r.tx.NamedExecContext(ctx, `
		INSERT INTO products (id, name, description, category, barcode, price, created_at, updated_at)
		VALUES (:id, :name, :description, :category, :barcode, :price, :created_at, :updated_at)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			description = VALUES(description),
			category = VALUES(category),
			barcode = VALUES(barcode),
			price = VALUES(price),
			updated_at = VALUES(updated_at)`, row)
	return translate("store product", err, nil)
}
