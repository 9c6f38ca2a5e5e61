// Package notification holds the channel-independent notification model:
// target routing, message composition and dispatch outcomes.
package notification

import (
	"strings"

	"github.com/Strob0t/buildnotify/internal/domain/build"
)

// Priority is the urgency attached to a message. Channels without a
// priority concept ignore it.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// PriorityFor returns the priority used for a build status.
func PriorityFor(s build.Status) Priority {
	switch s {
	case build.StatusBroken, build.StatusStillBroken:
		return PriorityHigh
	case build.StatusSuccessful:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// DefaultLinkLabel is the label attached to the build link.
const DefaultLinkLabel = "Go to build"

// Message is the channel-independent content of one notification.
type Message struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Priority  Priority `json:"priority"`
	Link      string   `json:"link,omitempty"`
	LinkLabel string   `json:"link_label,omitempty"`
	Extra     string   `json:"extra,omitempty"`
}

// Text renders the body followed by the extra message, separated by a
// blank line when both are present.
func (m Message) Text() string {
	if strings.TrimSpace(m.Extra) == "" {
		return m.Body
	}
	return m.Body + "\n\n" + m.Extra
}
