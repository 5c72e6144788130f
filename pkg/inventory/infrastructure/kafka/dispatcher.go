package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"inventory/pkg/common/domain"
	"inventory/pkg/inventory/domain/model"
)

const (
	writeTimeout    = 5 * time.Second
	eventTypeHeader = "event-type"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type envelope struct {
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurred_at"`
	Payload    domain.Event `json:"payload"`
}

// Dispatcher publishes domain events to one topic, keyed by the aggregate
// they belong to so events of one sale or entry stay ordered.
type Dispatcher struct {
	writer MessageWriter
}

// NewWriter returns an async writer: WriteMessages returns once the message
// is queued, and delivery failures are reported to logCompletion.
func NewWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		BatchSize:              100,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             logCompletion,
	}
}

func logCompletion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, message := range messages {
		log.WithError(err).WithFields(log.Fields{
			"topic": message.Topic,
			"key":   string(message.Key),
			"event": eventType(message),
		}).Error("failed to deliver event")
	}
}

func eventType(message kafka.Message) string {
	for _, header := range message.Headers {
		if header.Key == eventTypeHeader {
			return string(header.Value)
		}
	}
	return ""
}

func NewDispatcher(writer MessageWriter) *Dispatcher {
	return &Dispatcher{writer: writer}
}

func (d *Dispatcher) Dispatch(event domain.Event) error {
	value, err := json.Marshal(envelope{
		Type:       event.Type(),
		OccurredAt: time.Now().UTC(),
		Payload:    event,
	})
	if err != nil {
		return errors.Wrapf(err, "encode %s", event.Type())
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(eventKey(event)),
		Value: value,
		Headers: []kafka.Header{
			{Key: eventTypeHeader, Value: []byte(event.Type())},
		},
	})
	return errors.Wrapf(err, "publish %s", event.Type())
}

func (d *Dispatcher) Close() error {
	return d.writer.Close()
}

func eventKey(event domain.Event) string {
	switch e := event.(type) {
	case model.SaleCommitted:
		return e.SaleID.String()
	case model.SaleReversed:
		return e.SaleID.String()
	case model.StockAdjusted:
		return e.ProductID.String()
	case model.SyncEntryResolved:
		return e.EntryID.String()
	}
	return event.Type()
}

var _ domain.EventDispatcher = (*Dispatcher)(nil)
