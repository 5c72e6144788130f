package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"inventory/pkg/inventory/domain/model"
)

const selectSyncQueue = `
	SELECT id, transaction_type, payload, status, created_at, synced_at, error_message, sale_id
	FROM sync_queue`

type syncQueueRow struct {
	ID              uuid.UUID      `db:"id"`
	TransactionType string         `db:"transaction_type"`
	Payload         string         `db:"payload"`
	Status          string         `db:"status"`
	CreatedAt       time.Time      `db:"created_at"`
	SyncedAt        sql.NullTime   `db:"synced_at"`
	ErrorMessage    sql.NullString `db:"error_message"`
	SaleID          uuid.NullUUID  `db:"sale_id"`
}

func newSyncQueueRow(entry *model.SyncQueueEntry) syncQueueRow {
	row := syncQueueRow{
		ID:              entry.ID,
		TransactionType: entry.TransactionType,
		Payload:         entry.Payload,
		Status:          string(entry.Status),
		CreatedAt:       dbTime(entry.CreatedAt),
		ErrorMessage:    sql.NullString{String: entry.ErrorMessage, Valid: entry.ErrorMessage != ""},
	}
	if entry.SyncedAt != nil {
		row.SyncedAt = sql.NullTime{Time: dbTime(*entry.SyncedAt), Valid: true}
	}
	if entry.SaleID != nil {
		row.SaleID = uuid.NullUUID{UUID: *entry.SaleID, Valid: true}
	}
	return row
}

func (row syncQueueRow) toModel() model.SyncQueueEntry {
	entry := model.SyncQueueEntry{
		ID:              row.ID,
		TransactionType: row.TransactionType,
		Payload:         row.Payload,
		Status:          model.SyncStatus(row.Status),
		CreatedAt:       row.CreatedAt,
		ErrorMessage:    row.ErrorMessage.String,
	}
	if row.SyncedAt.Valid {
		syncedAt := row.SyncedAt.Time
		entry.SyncedAt = &syncedAt
	}
	if row.SaleID.Valid {
		saleID := row.SaleID.UUID
		entry.SaleID = &saleID
	}
	return entry
}

type syncQueueRepository struct {
	tx *sqlx.Tx
}

func (r *syncQueueRepository) NextID() (uuid.UUID, error) {
	return uuid.NewV7()
}

func (r *syncQueueRepository) Create(ctx context.Context, entry *model.SyncQueueEntry) error {
	_, err := r.tx.NamedExecContext(ctx, `
		INSERT INTO sync_queue (id, transaction_type, payload, status, created_at, synced_at, error_message, sale_id)
		VALUES (:id, :transaction_type, :payload, :status, :created_at, :synced_at, :error_message, :sale_id)`,
		newSyncQueueRow(entry))
	return translate("create sync queue entry", err, nil)
}

func (r *syncQueueRepository) Find(ctx context.Context, id uuid.UUID) (*model.SyncQueueEntry, error) {
	return r.find(ctx, selectSyncQueue+` WHERE id = ?`, id)
}

func (r *syncQueueRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.SyncQueueEntry, error) {
	return r.find(ctx, selectSyncQueue+` WHERE id = ? FOR UPDATE`, id)
}

func (r *syncQueueRepository) List(ctx context.Context, filter model.SyncQueueFilter) ([]model.SyncQueueEntry, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Status != "" {
		conditions = append(conditions, `status = ?`)
		args = append(args, string(filter.Status))
	}
	if filter.After != nil {
		after := dbTime(filter.After.CreatedAt)
		conditions = append(conditions, `(created_at > ? OR (created_at = ? AND id > ?))`)
		args = append(args, after, after, filter.After.ID)
	}

	query := selectSyncQueue
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var rows []syncQueueRow
	if err := r.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translate("list sync queue", err, nil)
	}

	entries := make([]model.SyncQueueEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toModel())
	}
	return entries, nil
}

func (r *syncQueueRepository) Update(ctx context.Context, entry *model.SyncQueueEntry) error {
	row := newSyncQueueRow(entry)
	result, err := r.tx.NamedExecContext(ctx, `
		UPDATE sync_queue
		SET status = :status, synced_at = :synced_at, error_message = :error_message, sale_id = :sale_id
		WHERE id = :id`, row)
	if err != nil {
		return translate("update sync queue entry", err, nil)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return translate("update sync queue entry", err, nil)
	}
	if affected == 0 {
		return model.ErrSyncEntryNotFound
	}
	return nil
}

func (r *syncQueueRepository) find(ctx context.Context, query string, id uuid.UUID) (*model.SyncQueueEntry, error) {
	var row syncQueueRow
	if err := r.tx.GetContext(ctx, &row, query, id); err != nil {
		return nil, translate("find sync queue entry", err, model.ErrSyncEntryNotFound)
	}
	entry := row.toModel()
	return &entry, nil
}
