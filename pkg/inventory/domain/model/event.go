package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SaleCommitted struct {
	SaleID      uuid.UUID
	Origin      SaleOrigin
	TotalAmount decimal.Decimal
	Lines       int
}

func (e SaleCommitted) Type() string { return "SaleCommitted" }

type SaleReversed struct {
	SaleID          uuid.UUID
	StockRestored   bool
	RestoredRecords int
}

func (e SaleReversed) Type() string { return "SaleReversed" }

type StockAdjusted struct {
	ProductID   uuid.UUID
	Delta       int // positive is restock, negative is shrinkage
	NewQuantity int
}

func (e StockAdjusted) Type() string { return "StockAdjusted" }

type SyncEntryResolved struct {
	EntryID      uuid.UUID
	Status       SyncStatus
	SaleID       uuid.UUID
	ErrorMessage string
}

func (e SyncEntryResolved) Type() string { return "SyncEntryResolved" }
