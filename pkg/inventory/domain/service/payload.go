package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"inventory/pkg/inventory/domain/model"
)

const salePayloadVersion = 1

// offline clients send naive timestamps, read as UTC
var saleDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// SaleCommand is a decoded "sale" queue payload.
type SaleCommand struct {
	Lines    []model.SaleLineRequest
	SaleDate *time.Time
}

type salePayload struct {
	Version  int               `json:"version,omitempty"`
	Items    []salePayloadItem `json:"items"`
	SaleDate string            `json:"sale_date,omitempty"`
}

type salePayloadItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func DecodeSaleCommand(transactionType, payload string) (*SaleCommand, error) {
	if transactionType != model.TransactionTypeSale {
		return nil, &model.UnknownTransactionTypeError{TransactionType: transactionType}
	}

	var body salePayload
	decoder := json.NewDecoder(strings.NewReader(payload))
	if err := decoder.Decode(&body); err != nil {
		return nil, errors.Wrap(model.ErrMalformedPayload, err.Error())
	}
	if decoder.More() {
		return nil, errors.Wrap(model.ErrMalformedPayload, "trailing data after payload")
	}
	if body.Version > salePayloadVersion {
		return nil, errors.Wrapf(model.ErrMalformedPayload, "unsupported payload version %d", body.Version)
	}

	command := &SaleCommand{Lines: make([]model.SaleLineRequest, 0, len(body.Items))}
	for i, item := range body.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, errors.Wrapf(model.ErrMalformedPayload, "item %d: invalid product_id %q", i, item.ProductID)
		}
		command.Lines = append(command.Lines, model.SaleLineRequest{ProductID: productID, Quantity: item.Quantity})
	}

	if body.SaleDate != "" {
		saleDate, err := parseSaleDate(body.SaleDate)
		if err != nil {
			return nil, err
		}
		command.SaleDate = &saleDate
	}

	return command, nil
}

func EncodeSaleCommand(command SaleCommand) (string, error) {
	body := salePayload{
		Version: salePayloadVersion,
		Items:   make([]salePayloadItem, 0, len(command.Lines)),
	}
	for _, line := range command.Lines {
		body.Items = append(body.Items, salePayloadItem{ProductID: line.ProductID.String(), Quantity: line.Quantity})
	}
	if command.SaleDate != nil {
		body.SaleDate = command.SaleDate.UTC().Format(time.RFC3339Nano)
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func parseSaleDate(value string) (time.Time, error) {
	for _, layout := range saleDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Wrapf(model.ErrMalformedPayload, "invalid sale_date %q", value)
}
