package model

import (
	"time"

	"github.com/google/uuid"
)

const TransactionTypeSale = "sale"

type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

func (s SyncStatus) Valid() bool {
	switch s {
	case SyncPending, SyncSynced, SyncFailed:
		return true
	}
	return false
}

type SyncQueueEntry struct {
	ID              uuid.UUID
	TransactionType string
	Payload         string
	Status          SyncStatus
	CreatedAt       time.Time
	SyncedAt        *time.Time
	ErrorMessage    string
	SaleID          *uuid.UUID
}

// SyncCursor is the keyset position (created_at, id) of the last entry seen.
type SyncCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func (c SyncCursor) Before(e SyncQueueEntry) bool {
	if !c.CreatedAt.Equal(e.CreatedAt) {
		return c.CreatedAt.Before(e.CreatedAt)
	}
	return CompareIDs(c.ID, e.ID) < 0
}

// SyncQueueFilter lists entries ordered by created_at, then id. Empty Status
// matches every status.
type SyncQueueFilter struct {
	Status SyncStatus
	After  *SyncCursor
	Limit  int
}
