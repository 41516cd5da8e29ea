package services

import (
	"sort"

	"github.com/go-playground/webhooks/v6/bitbucket"

	"github.com/igorsal/bitbucket-notifier/internal/config"
	"github.com/igorsal/bitbucket-notifier/internal/interfaces"
	"github.com/igorsal/bitbucket-notifier/internal/models"
	"github.com/igorsal/bitbucket-notifier/internal/payload"
	pkgerrors "github.com/igorsal/bitbucket-notifier/pkg/errors"
)

// HandlerFunc builds the notification for one (context, action) pair
type HandlerFunc func(p payload.Payload) *models.Notification

// Router validates event keys and dispatches to the matching builder. The
// handler table is the whitelist: an event is supported exactly when it has
// an entry.
type Router struct {
	handlers map[string]map[string]HandlerFunc
	logger   interfaces.Logger
}

// NewRouter creates a router with the pull request and repository builders
func NewRouter(cfg config.NotifyConfig, logger interfaces.Logger) *Router {
	b := newMessageBuilder(cfg)

	return newRouterFromEvents(map[bitbucket.Event]HandlerFunc{
		bitbucket.PullRequestCreatedEvent:        b.pullRequestCreated,
		bitbucket.PullRequestUpdatedEvent:        b.pullRequestUpdated,
		bitbucket.PullRequestDeclinedEvent:       b.pullRequestRejected,
		bitbucket.PullRequestMergedEvent:         b.pullRequestFulfilled,
		bitbucket.PullRequestApprovedEvent:       b.pullRequestApproved,
		bitbucket.PullRequestUnapprovedEvent:     b.pullRequestUnapproved,
		bitbucket.PullRequestCommentCreatedEvent: b.pullRequestCommentCreated,
		bitbucket.PullRequestCommentUpdatedEvent: b.pullRequestCommentUpdated,
		bitbucket.PullRequestCommentDeletedEvent: b.pullRequestCommentDeleted,
		bitbucket.RepoPushEvent:                  b.repoPush,
	}, logger)
}

func newRouterFromEvents(events map[bitbucket.Event]HandlerFunc, logger interfaces.Logger) *Router {
	handlers := make(map[string]map[string]HandlerFunc)
	for event, handler := range events {
		key := models.ParseEventKey(string(event))
		if handlers[key.Context] == nil {
			handlers[key.Context] = make(map[string]HandlerFunc)
		}
		handlers[key.Context][key.Action] = handler
	}
	return &Router{handlers: handlers, logger: logger}
}

func (r *Router) lookup(eventKey string) (HandlerFunc, bool) {
	key := models.ParseEventKey(eventKey)
	actions, ok := r.handlers[key.Context]
	if !ok || key.Action == "" {
		return nil, false
	}
	handler, ok := actions[key.Action]
	return handler, ok
}

// Supports reports whether eventKey is a known "<context>:<action>" pair
func (r *Router) Supports(eventKey string) bool {
	_, ok := r.lookup(eventKey)
	return ok
}

// Route builds the notification for eventKey. Unknown or malformed keys fail
// with an unrecognized event error before the payload is read.
func (r *Router) Route(eventKey string, p payload.Payload) (*models.Notification, error) {
	handler, ok := r.lookup(eventKey)
	if !ok {
		r.logger.Warn("Rejecting unrecognized event", "event_key", eventKey)
		return nil, pkgerrors.NewUnrecognizedEventError(eventKey)
	}

	if p == nil {
		p = payload.Payload{}
	}

	r.logger.Debug("Routing event", "event_key", eventKey)
	return handler(p), nil
}

// Events lists every supported event key in sorted order
func (r *Router) Events() []string {
	var events []string
	for context, actions := range r.handlers {
		for action := range actions {
			events = append(events, models.EventKey{Context: context, Action: action}.String())
		}
	}
	sort.Strings(events)
	return events
}
