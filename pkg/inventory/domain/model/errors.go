package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrEmptySale             = errors.New("sale must contain at least one item")
	ErrInvalidQuantity       = errors.New("item quantity must be a positive number")
	ErrProductNotFound       = errors.New("product not found")
	ErrStockRecordNotFound   = errors.New("inventory record not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrLockTimeout           = errors.New("timed out waiting for stock lock")
	ErrMalformedPayload      = errors.New("malformed sync payload")
	ErrUnknownTransaction    = errors.New("unknown transaction type")
	ErrEmptyTransactionType  = errors.New("transaction type is required")
	ErrSaleNotFound          = errors.New("sale not found")
	ErrSyncEntryNotFound     = errors.New("sync queue entry not found")
	ErrSyncEntryTerminal     = errors.New("sync queue entry is already synced")
	ErrStorageFailure        = errors.New("storage failure")
	ErrNegativeStockDetected = errors.New("stock quantity would become negative")
	ErrQuantityOutOfRange    = errors.New("stock quantity out of range")
)

// InsufficientStockError carries the figures shown to the cashier or written
// to a failed sync entry.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID.String()
	}
	return fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d", name, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// StorageError marks a durability failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageFailure }

type UnknownTransactionTypeError struct {
	TransactionType string
}

func (e *UnknownTransactionTypeError) Error() string {
	return "Unknown transaction type: " + e.TransactionType
}

func (e *UnknownTransactionTypeError) Unwrap() error { return ErrUnknownTransaction }
