package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"inventory/pkg/inventory/domain/model"
)

const defaultSalesLimit = 100

type saleItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type saleRequest struct {
	Items []saleItemRequest `json:"items"`
}

type saleItemResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type saleResponse struct {
	ID          uuid.UUID          `json:"id"`
	SaleDate    time.Time          `json:"sale_date"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Status      model.SaleStatus   `json:"status"`
	Origin      model.SaleOrigin   `json:"origin"`
	CreatedAt   time.Time          `json:"created_at"`
	Items       []saleItemResponse `json:"items"`
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var request saleRequest
	if err := decodeBody(r, &request); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	lines := make([]model.SaleLineRequest, 0, len(request.Items))
	for _, item := range request.Items {
		lines = append(lines, model.SaleLineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	sale, err := h.pos.Sell(r.Context(), lines)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.WithFields(log.Fields{
		"sale":    sale.ID,
		"subject": subjectFrom(r.Context()),
	}).Info("sale recorded")
	writeJSON(w, http.StatusCreated, toSaleResponse(sale))
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.SaleFilter{Limit: defaultSalesLimit}

	var err error
	if filter.Offset, err = intParam(query.Get("skip"), 0); err != nil || filter.Offset < 0 {
		writeDetail(w, http.StatusBadRequest, "skip must be a non-negative integer")
		return
	}
	if filter.Limit, err = intParam(query.Get("limit"), defaultSalesLimit); err != nil || filter.Limit < 1 {
		writeDetail(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if raw := query.Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			writeDetail(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		filter.Since = time.Now().UTC().AddDate(0, 0, -days)
	}

	sales, err := h.sales.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]saleResponse, 0, len(sales))
	for i := range sales {
		response = append(response, toSaleResponse(&sales[i]))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	saleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	sale, err := h.sales.Find(r.Context(), saleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleResponse(sale))
}

func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	saleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	restore := true
	if raw := r.URL.Query().Get("restore_inventory"); raw != "" {
		var err error
		if restore, err = strconv.ParseBool(raw); err != nil {
			writeDetail(w, http.StatusBadRequest, "restore_inventory must be true or false")
			return
		}
	}

	if err := h.sales.Reverse(r.Context(), saleID, restore); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Sale "+saleID.String()+" deleted successfully")
}

func toSaleResponse(sale *model.Sale) saleResponse {
	items := make([]saleItemResponse, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		items = append(items, saleItemResponse{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Subtotal:    line.Subtotal,
		})
	}
	return saleResponse{
		ID:          sale.ID,
		SaleDate:    sale.SaleDate,
		TotalAmount: sale.TotalAmount,
		Status:      sale.Status,
		Origin:      sale.Origin,
		CreatedAt:   sale.CreatedAt,
		Items:       items,
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid "+name+": "+mux.Vars(r)[name])
		return uuid.Nil, false
	}
	return id, true
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
