package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is owned by the catalog; the sale path only reads it.
type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Category    string
	Barcode     string
	Price       decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MaxStockQuantity is the largest quantity a stock row can hold.
const MaxStockQuantity = math.MaxInt32

type StockRecord struct {
	ProductID     uuid.UUID
	Quantity      int
	MinStockLevel int // advisory only
	UpdatedAt     time.Time
}

func (r StockRecord) IsLow() bool {
	return r.Quantity <= r.MinStockLevel
}
