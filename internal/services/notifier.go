package services

import (
	"context"
	"time"

	"github.com/igorsal/bitbucket-notifier/internal/interfaces"
	"github.com/igorsal/bitbucket-notifier/internal/models"
	"github.com/igorsal/bitbucket-notifier/internal/payload"
	pkgerrors "github.com/igorsal/bitbucket-notifier/pkg/errors"
)

// NotifierService runs inbound events through the router and hands the
// resulting notification to the relay
type NotifierService struct {
	router  interfaces.EventRouter
	relay   interfaces.Relay
	logger  interfaces.Logger
	metrics interfaces.MetricsCollector
}

// NewNotifierService creates a new notifier service
func NewNotifierService(router interfaces.EventRouter, relay interfaces.Relay, logger interfaces.Logger, metrics interfaces.MetricsCollector) *NotifierService {
	return &NotifierService{
		router:  router,
		relay:   relay,
		logger:  logger,
		metrics: metrics,
	}
}

// Notify classifies the event, builds its notification and relays it.
// Exactly one of result or error is returned. Unrecognized events are
// rejected before the payload is read and never reach the relay.
func (s *NotifierService) Notify(ctx context.Context, eventKey string, p payload.Payload) (*models.RelayResult, error) {
	key := models.ParseEventKey(eventKey)
	labels := map[string]string{
		"context": key.Context,
		"action":  key.Action,
	}

	if !s.router.Supports(eventKey) {
		s.logger.Warn("Dropping unrecognized event", "event_key", eventKey)
		s.recordUnrecognized()
		return nil, pkgerrors.NewUnrecognizedEventError(eventKey)
	}

	notification, err := s.router.Route(eventKey, p)
	if err != nil {
		s.recordUnrecognized()
		return nil, err
	}

	s.logger.Info("Relaying notification",
		"event_key", eventKey,
		"pretext", pretext(notification),
	)

	startTime := time.Now()
	result, err := s.relay.Send(ctx, notification)
	if err != nil {
		s.logger.Error("Failed to relay notification", err,
			"event_key", eventKey,
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
		labels["status"] = "failed"
		s.metrics.IncrementCounter("events_total", labels)
		return nil, err
	}

	s.logger.Info("Notification relayed",
		"event_key", eventKey,
		"status_code", result.StatusCode,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	labels["status"] = "success"
	s.metrics.IncrementCounter("events_total", labels)
	return result, nil
}

func (s *NotifierService) recordUnrecognized() {
	s.metrics.IncrementCounter("events_total", map[string]string{
		"context": "unknown",
		"action":  "unknown",
		"status":  "unrecognized",
	})
}

func pretext(n *models.Notification) string {
	if n == nil || len(n.Attachments) == 0 {
		return ""
	}
	return n.Attachments[0].Pretext
}
