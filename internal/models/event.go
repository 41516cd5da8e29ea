package models

import "strings"

// Event contexts
const (
	ContextPullRequest = "pullrequest"
	ContextRepo        = "repo"
)

// EventKeyHeader carries the event identifier on inbound webhooks
const EventKeyHeader = "X-Event-Key"

// EventKey is a parsed "<context>:<action>" identifier
type EventKey struct {
	Context string
	Action  string
}

// ParseEventKey splits raw on the first colon. A missing colon yields an
// empty action.
func ParseEventKey(raw string) EventKey {
	context, action, _ := strings.Cut(raw, ":")
	return EventKey{Context: context, Action: action}
}

func (k EventKey) String() string {
	return k.Context + ":" + k.Action
}

// Invocation is the envelope form of an inbound request
type Invocation struct {
	Payload  map[string]interface{} `json:"payload" validate:"required"`
	EventKey string                 `json:"_event_key"`
}
