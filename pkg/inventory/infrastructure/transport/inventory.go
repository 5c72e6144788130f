package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"inventory/pkg/inventory/domain/model"
)

type stockResponse struct {
	ProductID     uuid.UUID `json:"product_id"`
	Quantity      int       `json:"quantity"`
	MinStockLevel int       `json:"min_stock_level"`
	LowStock      bool      `json:"low_stock"`
	LastUpdated   time.Time `json:"last_updated"`
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	lowStockOnly := false
	if raw := r.URL.Query().Get("low_stock"); raw != "" {
		var err error
		if lowStockOnly, err = strconv.ParseBool(raw); err != nil {
			writeDetail(w, http.StatusBadRequest, "low_stock must be true or false")
			return
		}
	}

	records, err := h.inventory.List(r.Context(), lowStockOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]stockResponse, 0, len(records))
	for _, record := range records {
		response = append(response, toStockResponse(record))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) getInventory(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}

	record, err := h.inventory.Find(r.Context(), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStockResponse(*record))
}

func (h *Handler) adjustInventory(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}

	parsed, err := strconv.ParseInt(r.URL.Query().Get("adjustment"), 10, 32)
	if err != nil || parsed < -model.MaxStockQuantity {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf(
			"adjustment must be an integer between %d and %d", -model.MaxStockQuantity, model.MaxStockQuantity))
		return
	}
	adjustment := int(parsed)

	record, err := h.inventory.Adjust(r.Context(), productID, adjustment)
	if err != nil {
		var shortage *model.InsufficientStockError
		if errors.As(err, &shortage) {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf(
				"Adjustment would result in negative inventory (%d)", shortage.Available-shortage.Requested))
			return
		}
		writeError(w, r, err)
		return
	}

	log.WithFields(log.Fields{
		"product":    productID,
		"adjustment": adjustment,
		"quantity":   record.Quantity,
		"subject":    subjectFrom(r.Context()),
	}).Info("stock adjusted")
	writeJSON(w, http.StatusOK, toStockResponse(*record))
}

func toStockResponse(record model.StockRecord) stockResponse {
	return stockResponse{
		ProductID:     record.ProductID,
		Quantity:      record.Quantity,
		MinStockLevel: record.MinStockLevel,
		LowStock:      record.IsLow(),
		LastUpdated:   record.UpdatedAt,
	}
}
