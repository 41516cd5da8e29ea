package interfaces

import (
	"context"

	"github.com/igorsal/bitbucket-notifier/internal/models"
	"github.com/igorsal/bitbucket-notifier/internal/payload"
)

// EventRouter classifies an event key and builds the notification for it
type EventRouter interface {
	Route(eventKey string, p payload.Payload) (*models.Notification, error)
	Supports(eventKey string) bool
}

// Relay delivers a built notification to the chat endpoint
type Relay interface {
	Send(ctx context.Context, notification *models.Notification) (*models.RelayResult, error)
}

// NotifierService runs one inbound event through classification, building and delivery
type NotifierService interface {
	Notify(ctx context.Context, eventKey string, p payload.Payload) (*models.RelayResult, error)
}

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Fatal(msg string, err error, fields ...interface{})
}

// MetricsCollector defines the interface for collecting metrics
type MetricsCollector interface {
	IncrementCounter(name string, labels map[string]string)
	RecordDuration(name string, duration float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}

// CircuitBreaker defines the interface for circuit breaker pattern
type CircuitBreaker interface {
	Execute(req func() (interface{}, error)) (interface{}, error)
	Name() string
	State() string
}
