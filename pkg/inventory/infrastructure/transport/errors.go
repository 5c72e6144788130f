package transport

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"inventory/pkg/inventory/domain/model"
)

type detailResponse struct {
	Detail  string `json:"detail"`
	Success bool   `json:"success"`
}

type messageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrEmptySale),
		errors.Is(err, model.ErrInvalidQuantity),
		errors.Is(err, model.ErrQuantityOutOfRange),
		errors.Is(err, model.ErrInsufficientStock),
		errors.Is(err, model.ErrMalformedPayload),
		errors.Is(err, model.ErrEmptyTransactionType):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrProductNotFound),
		errors.Is(err, model.ErrStockRecordNotFound),
		errors.Is(err, model.ErrSaleNotFound),
		errors.Is(err, model.ErrSyncEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrLockTimeout),
		errors.Is(err, model.ErrSyncEntryTerminal):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"url":    r.URL.String(),
		}).Error("request failed")
		detail = "Internal server error"
	}
	writeDetail(w, status, detail)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail, Success: false})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, messageResponse{Message: message, Success: true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(b); err != nil {
		log.WithField("err", err).Error("write response")
	}
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}
