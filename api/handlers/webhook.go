package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/igorsal/bitbucket-notifier/api/middleware"
	"github.com/igorsal/bitbucket-notifier/internal/interfaces"
	"github.com/igorsal/bitbucket-notifier/internal/models"
	"github.com/igorsal/bitbucket-notifier/internal/payload"
	pkgerrors "github.com/igorsal/bitbucket-notifier/pkg/errors"
)

const (
	MaxBodySize = 10 * 1024 * 1024 // 10MB max
)

// SuccessResponse wraps the chat endpoint's reply
type SuccessResponse struct {
	Status string `json:"status"`
	Result string `json:"result"`
}

type WebhookHandler struct {
	notifier interfaces.NotifierService
	logger   interfaces.Logger
	validate *validator.Validate
}

// NewWebhookHandler creates the handler for Bitbucket webhooks and invocation envelopes
func NewWebhookHandler(notifier interfaces.NotifierService, logger interfaces.Logger) *WebhookHandler {
	return &WebhookHandler{
		notifier: notifier,
		logger:   logger,
		validate: validator.New(),
	}
}

// Handle processes a raw Bitbucket webhook; the event key comes from the
// X-Event-Key header.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		middleware.WriteError(w, r, h.logger, pkgerrors.NewValidationError("failed to read request body").WithCause(err))
		return
	}

	p, err := payload.Decode(body)
	if err != nil {
		middleware.WriteError(w, r, h.logger, pkgerrors.NewValidationError("invalid JSON payload").WithCause(err))
		return
	}

	h.notify(w, r, r.Header.Get(models.EventKeyHeader), p)
}

// HandleInvocation processes the {"payload": ..., "_event_key": ...} envelope
func (h *WebhookHandler) HandleInvocation(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	dec.UseNumber()

	var inv models.Invocation
	if err := dec.Decode(&inv); err != nil {
		middleware.WriteError(w, r, h.logger, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}

	if err := h.validate.Struct(inv); err != nil {
		middleware.WriteError(w, r, h.logger, pkgerrors.NewValidationError("payload is required").WithCause(err))
		return
	}

	// A missing or empty _event_key is left to the router to reject
	h.notify(w, r, inv.EventKey, payload.Payload(inv.Payload))
}

func (h *WebhookHandler) notify(w http.ResponseWriter, r *http.Request, eventKey string, p payload.Payload) {
	result, err := h.notifier.Notify(r.Context(), eventKey, p)
	if err != nil {
		middleware.WriteError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(SuccessResponse{
		Status: "success",
		Result: result.Body,
	}); err != nil {
		h.logger.Error("Failed to encode response", err)
	}
}
