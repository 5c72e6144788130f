package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SaleStatus string

const (
	SaleCompleted SaleStatus = "completed"
	SalePending   SaleStatus = "pending"
	SaleFailed    SaleStatus = "failed"
)

type SaleOrigin string

const (
	OriginLive SaleOrigin = "live"
	OriginSync SaleOrigin = "sync"
)

type SaleLineRequest struct {
	ProductID uuid.UUID
	Quantity  int
}

type SaleLine struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

type Sale struct {
	ID          uuid.UUID
	SaleDate    time.Time
	TotalAmount decimal.Decimal
	Status      SaleStatus
	Origin      SaleOrigin
	CreatedAt   time.Time
	Lines       []SaleLine
}

func (s *Sale) Clone() *Sale {
	clone := *s
	clone.Lines = append([]SaleLine(nil), s.Lines...)
	return &clone
}

// SaleFilter selects sales newest first. Zero Since means no lower bound,
// zero Limit means no limit.
type SaleFilter struct {
	Since  time.Time
	Offset int
	Limit  int
}
