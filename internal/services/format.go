package services

import (
	"strings"
	"unicode"

	"github.com/igorsal/bitbucket-notifier/internal/config"
	"github.com/igorsal/bitbucket-notifier/internal/payload"
)

const (
	// DefaultTruncateLength is the comment preview length in runes
	DefaultTruncateLength = 100
	// Ellipsis marks a truncated value
	Ellipsis = " [...]"

	commitHashLength = 8
)

// Truncate shortens s to at most maxLength runes. When s is cut and
// showEllipsis is set, Ellipsis is appended. Strings within the limit are
// returned unchanged.
func Truncate(s string, maxLength int, showEllipsis bool) string {
	if maxLength < 0 {
		maxLength = 0
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	out := string(runes[:maxLength])
	if showEllipsis {
		out += Ellipsis
	}
	return out
}

// TruncateComment applies the default comment preview rule
func TruncateComment(s string) string {
	return Truncate(s, DefaultTruncateLength, true)
}

// FormatCommitMessage trims msg and turns the first blank-line separator
// into a quoted continuation under the summary line.
func FormatCommitMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	return strings.Replace(msg, "\n\n", "\n> ", 1)
}

// mentioner renders chat mentions for Bitbucket users
type mentioner struct {
	mapping config.UserMapping
}

// Mention returns "@handle" for a mapped username. Unmapped users fall back
// to "@username", then to their display name.
func (m mentioner) Mention(username, displayName payload.Value) string {
	if username.NonEmpty() {
		if handle, ok := m.mapping.Handle(username.String()); ok && handle != "" {
			return "@" + handle
		}
		return "@" + username.String()
	}
	return displayName.String()
}

// MentionUser renders a mention for a nested Bitbucket user object
func (m mentioner) MentionUser(user payload.Payload) string {
	name := user.Lookup("username")
	if !name.NonEmpty() {
		name = user.Lookup("nickname")
	}
	return m.Mention(name, user.Lookup("display_name"))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
