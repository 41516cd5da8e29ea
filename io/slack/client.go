package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/igorsal/bitbucket-notifier/internal/config"
	"github.com/igorsal/bitbucket-notifier/internal/interfaces"
	"github.com/igorsal/bitbucket-notifier/internal/models"
	pkgerrors "github.com/igorsal/bitbucket-notifier/pkg/errors"
)

const (
	breakerName = "slack-webhook"
	contentType = "text/plain"
)

// Client posts notifications to the incoming-webhook endpoint
type Client struct {
	httpClient     *http.Client
	config         config.SlackConfig
	logger         interfaces.Logger
	circuitBreaker interfaces.CircuitBreaker
	metrics        interfaces.MetricsCollector
}

// NewClient creates a chat webhook client with circuit breaker. The breaker
// only fails fast on repeated transport errors; it never retries.
func NewClient(cfg config.SlackConfig, logger interfaces.Logger, metrics interfaces.MetricsCollector) *Client {
	// Zero timeout keeps the transport default
	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Chat webhook circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.SetGauge("circuit_breaker_state", float64(to), map[string]string{"name": name})
		},
	})

	return &Client{
		httpClient:     client,
		config:         cfg,
		logger:         logger,
		circuitBreaker: &breakerWrapper{cb: cb},
		metrics:        metrics,
	}
}

// breakerWrapper implements interfaces.CircuitBreaker
type breakerWrapper struct {
	cb *gobreaker.CircuitBreaker
}

func (w *breakerWrapper) Execute(req func() (any, error)) (any, error) {
	return w.cb.Execute(req)
}

func (w *breakerWrapper) Name() string {
	return w.cb.Name()
}

func (w *breakerWrapper) State() string {
	return w.cb.State().String()
}

// Send posts the notification once. Any completed HTTP exchange is a
// success carrying the response body; transport errors come back as
// TransportFailure errors.
func (c *Client) Send(ctx context.Context, notification *models.Notification) (*models.RelayResult, error) {
	startTime := time.Now()
	labels := map[string]string{
		"service": "slack",
	}

	result, err := c.circuitBreaker.Execute(func() (any, error) {
		return c.executeSend(ctx, c.withDefaults(notification))
	})

	duration := time.Since(startTime).Seconds()
	c.metrics.RecordDuration("relay_request_duration_seconds", duration, labels)

	if err != nil {
		labels["status"] = "error"
		c.metrics.IncrementCounter("relay_requests_total", labels)
		if pkgerrors.IsAppError(err) {
			return nil, err
		}
		// Breaker rejections (open or half-open) surface as transport failures
		return nil, pkgerrors.NewTransportError(err)
	}

	labels["status"] = "success"
	c.metrics.IncrementCounter("relay_requests_total", labels)
	return result.(*models.RelayResult), nil
}

func (c *Client) executeSend(ctx context.Context, notification *models.Notification) (*models.RelayResult, error) {
	body, err := json.Marshal(notification)
	if err != nil {
		return nil, pkgerrors.WrapError(err, "failed to marshal notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.NewTransportError(err)
	}

	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.NewTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.NewTransportError(err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("Chat webhook answered with an error status",
			"status_code", resp.StatusCode,
			"body", string(respBody),
		)
	}

	return &models.RelayResult{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
	}, nil
}

// withDefaults fills channel and sender overrides from configuration without
// touching the caller's notification.
func (c *Client) withDefaults(n *models.Notification) *models.Notification {
	out := *n
	if out.Channel == "" {
		out.Channel = c.config.Channel
	}
	if out.Username == "" {
		out.Username = c.config.Username
	}
	if out.IconEmoji == "" {
		out.IconEmoji = c.config.IconEmoji
	}
	return &out
}
