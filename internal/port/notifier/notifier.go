// Package notifier defines the sender port (interface), its capabilities and
// the provider registry.
package notifier

import (
	"context"
	"errors"

	"github.com/Strob0t/buildnotify/internal/domain/notification"
)

// ErrNotConfigured is returned when a sender is missing required settings.
var ErrNotConfigured = errors.New("notifier: not configured")

// ErrNoRecipients is returned when a target contains no usable recipient.
var ErrNoRecipients = errors.New("notifier: no recipients")

// Capabilities declares which message features a sender renders natively.
type Capabilities struct {
	Priority       bool `json:"priority"`
	RichFormatting bool `json:"rich_formatting"`
	Link           bool `json:"link"`
}

// Sender is the port interface for delivering a message to a channel.
type Sender interface {
	// Name returns the provider identifier (e.g. "telegram", "slack").
	Name() string

	// Capabilities returns what this sender supports.
	Capabilities() Capabilities

	// Send delivers msg to target in a single attempt. target may hold
	// several comma-separated recipients; every one is attempted and a
	// non-nil error means at least one of them failed.
	Send(ctx context.Context, target string, msg notification.Message) error
}
