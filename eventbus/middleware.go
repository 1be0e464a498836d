package eventbus

import (
	"context"
	"log"
)

// LoggingMiddleware logs all event traffic.
type LoggingMiddleware struct{}

// NewLoggingMiddleware creates a new LoggingMiddleware.
func NewLoggingMiddleware() *LoggingMiddleware {
	return &LoggingMiddleware{}
}

// Before logs event receipt.
func (m *LoggingMiddleware) Before(ctx context.Context, event Event) (Event, error) {
	log.Printf("EventBus: publishing %s", event.EventType())
	return event, nil
}

// After logs event completion.
func (m *LoggingMiddleware) After(ctx context.Context, event Event, err error) error {
	if err != nil {
		log.Printf("EventBus: %s had a failing subscriber: %v", event.EventType(), err)
	}
	return nil
}

var _ Middleware = (*LoggingMiddleware)(nil)
