package events

import (
	log "github.com/sirupsen/logrus"

	"inventory/pkg/common/domain"
)

// LogDispatcher writes domain events to the application log. It is used when
// no broker is configured.
type LogDispatcher struct {
	logger *log.Entry
}

func NewLogDispatcher(logger *log.Entry) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(event domain.Event) error {
	d.logger.WithFields(log.Fields{
		"event":   event.Type(),
		"payload": event,
	}).Info("domain event")
	return nil
}

var _ domain.EventDispatcher = (*LogDispatcher)(nil)
