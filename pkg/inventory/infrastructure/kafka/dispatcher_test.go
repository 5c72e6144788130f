package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory/pkg/inventory/domain/model"
)

func TestDispatch(t *testing.T) {
	t.Run("Publish keyed envelope", func(t *testing.T) {
		writer := &mockWriter{}
		dispatcher := NewDispatcher(writer)
		saleID := uuid.New()

		err := dispatcher.Dispatch(model.SaleCommitted{
			SaleID:      saleID,
			Origin:      model.OriginSync,
			TotalAmount: decimal.RequireFromString("10.50"),
			Lines:       2,
		})

		require.NoError(t, err)
		require.Len(t, writer.messages, 1)
		message := writer.messages[0]
		assert.Equal(t, saleID.String(), string(message.Key))
		assert.Equal(t, "SaleCommitted", string(message.Headers[0].Value))

		var body struct {
			Type    string `json:"type"`
			Payload struct {
				TotalAmount string
				Origin      string
			} `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(message.Value, &body))
		assert.Equal(t, "SaleCommitted", body.Type)
		assert.Equal(t, "10.5", body.Payload.TotalAmount)
		assert.Equal(t, "sync", body.Payload.Origin)
	})

	t.Run("Fail when the broker rejects the write", func(t *testing.T) {
		writer := &mockWriter{err: errors.New("broker down")}
		dispatcher := NewDispatcher(writer)

		err := dispatcher.Dispatch(model.StockAdjusted{ProductID: uuid.New(), Delta: 3})

		assert.ErrorContains(t, err, "publish StockAdjusted")
	})
}

func TestWriterDoesNotBlockCommits(t *testing.T) {
	writer := NewWriter("localhost:9092", "inventory-events")
	t.Cleanup(func() { _ = writer.Close() })

	assert.True(t, writer.Async)
	require.NotNil(t, writer.Completion)

	t.Run("Log undelivered events", func(t *testing.T) {
		hook := test.NewGlobal()
		defer hook.Reset()
		saleID := uuid.New()

		writer.Completion([]kafka.Message{{
			Topic:   "inventory-events",
			Key:     []byte(saleID.String()),
			Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte("SaleCommitted")}},
		}}, errors.New("broker down"))

		require.Len(t, hook.AllEntries(), 1)
		entry := hook.LastEntry()
		assert.Equal(t, log.ErrorLevel, entry.Level)
		assert.Equal(t, saleID.String(), entry.Data["key"])
		assert.Equal(t, "SaleCommitted", entry.Data["event"])
	})

	t.Run("Stay quiet on delivery", func(t *testing.T) {
		hook := test.NewGlobal()
		defer hook.Reset()

		writer.Completion([]kafka.Message{{Key: []byte("k")}}, nil)

		assert.Empty(t, hook.AllEntries())
	})
}

type mockWriter struct {
	messages []kafka.Message
	err      error
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error { return nil }
