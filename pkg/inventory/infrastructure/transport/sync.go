package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"inventory/pkg/inventory/domain/model"
)

type enqueueRequest struct {
	TransactionType string          `json:"transaction_type"`
	Payload         json.RawMessage `json:"payload"`
}

type syncEntryResponse struct {
	ID              uuid.UUID        `json:"id"`
	TransactionType string           `json:"transaction_type"`
	Payload         string           `json:"payload"`
	Status          model.SyncStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	SyncedAt        *time.Time       `json:"synced_at"`
	ErrorMessage    *string          `json:"error_message"`
	SaleID          *uuid.UUID       `json:"sale_id"`
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	var request enqueueRequest
	if err := decodeBody(r, &request); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	payload, err := payloadText(request.Payload)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	entry, err := h.queue.Enqueue(r.Context(), request.TransactionType, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.WithFields(log.Fields{
		"entry":   entry.ID,
		"type":    entry.TransactionType,
		"subject": subjectFrom(r.Context()),
	}).Info("sync entry queued")
	writeJSON(w, http.StatusCreated, toSyncEntryResponse(entry))
}

func (h *Handler) listQueue(w http.ResponseWriter, r *http.Request) {
	status := model.SyncStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid status: %s", status))
		return
	}

	entries, err := h.queue.List(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]syncEntryResponse, 0, len(entries))
	for i := range entries {
		response = append(response, toSyncEntryResponse(&entries[i]))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	result, err := h.processor.Process(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if result.Processed == 0 && result.Failed == 0 {
		writeMessage(w, "No pending items to sync")
		return
	}
	writeMessage(w, fmt.Sprintf("Sync complete. Processed: %d, Failed: %d", result.Processed, result.Failed))
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	entry, err := h.replay.Retry(r.Context(), entryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSyncEntryResponse(entry))
}

// payloadText accepts the payload either as a JSON string holding the
// document or as the document itself.
func payloadText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("payload is required")
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}
	return string(raw), nil
}

func toSyncEntryResponse(entry *model.SyncQueueEntry) syncEntryResponse {
	response := syncEntryResponse{
		ID:              entry.ID,
		TransactionType: entry.TransactionType,
		Payload:         entry.Payload,
		Status:          entry.Status,
		CreatedAt:       entry.CreatedAt,
		SyncedAt:        entry.SyncedAt,
		SaleID:          entry.SaleID,
	}
	if entry.ErrorMessage != "" {
		message := entry.ErrorMessage
		response.ErrorMessage = &message
	}
	return response
}
