// Package service contains application services.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Strob0t/buildnotify/internal/config"
	"github.com/Strob0t/buildnotify/internal/domain/build"
	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/broadcast"
	"github.com/Strob0t/buildnotify/internal/port/database"
	"github.com/Strob0t/buildnotify/internal/port/messagequeue"
	"github.com/Strob0t/buildnotify/internal/port/notifier"
)

// Channel is one configured notification destination.
type Channel struct {
	Name    string
	Sender  notifier.Sender
	Routing notification.Routing
}

// BuildChannels instantiates a sender for every configured channel.
func BuildChannels(cfgs []config.Channel) ([]Channel, error) {
	channels := make([]Channel, 0, len(cfgs))
	for _, c := range cfgs {
		sender, err := notifier.New(c.Provider, c.Settings)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", c.Name, err)
		}
		channels = append(channels, Channel{Name: c.Name, Sender: sender, Routing: c.Routing})
	}
	return channels, nil
}

// NotificationService dispatches every finished build to all configured
// channels and records the outcomes.
type NotificationService struct {
	dispatcher *Dispatcher
	channels   []Channel
	store      database.Store
	hub        broadcast.Broadcaster
	queue      messagequeue.Queue
}

// NewNotificationService creates a NotificationService for the given channels.
func NewNotificationService(dispatcher *Dispatcher, channels []Channel) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		channels:   channels,
	}
}

// SetStore enables outcome persistence.
func (s *NotificationService) SetStore(store database.Store) { s.store = store }

// SetBroadcaster enables live outcome events.
func (s *NotificationService) SetBroadcaster(hub broadcast.Broadcaster) { s.hub = hub }

// SetQueue enables publishing outcomes on the message queue.
func (s *NotificationService) SetQueue(q messagequeue.Queue) { s.queue = q }

// NotifyBuild dispatches rec to each channel in configuration order. When
// only is non-empty, channels not named in it are left out. Failures on one
// channel never prevent delivery to the others and are not returned.
func (s *NotificationService) NotifyBuild(ctx context.Context, rec *build.Record, only []string) []notification.Outcome {
	outcomes := make([]notification.Outcome, 0, len(s.channels))
	for _, ch := range s.channels {
		if len(only) > 0 && !slices.Contains(only, ch.Name) {
			continue
		}
		out := s.dispatcher.dispatch(ctx, ch.Name, rec, ch.Routing, ch.Sender)
		s.record(ctx, &out)
		outcomes = append(outcomes, out)
	}
	for _, name := range only {
		if !s.hasChannel(name) {
			slog.Warn("unknown channel requested", "channel", name, "project", rec.Project)
		}
	}
	return outcomes
}

func (s *NotificationService) record(ctx context.Context, out *notification.Outcome) {
	if s.store != nil {
		if err := s.store.RecordOutcome(ctx, out); err != nil {
			slog.Error("record dispatch outcome", "channel", out.Channel, "project", out.Project, "error", err)
		}
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, broadcast.EventDispatchOutcome, *out)
	}
	if s.queue != nil {
		data, err := json.Marshal(out)
		if err != nil {
			slog.Error("marshal dispatch outcome", "error", err)
			return
		}
		if err := s.queue.Publish(ctx, messagequeue.SubjectDispatchOutcome, data); err != nil {
			slog.Warn("publish dispatch outcome", "channel", out.Channel, "error", err)
		}
	}
}

func (s *NotificationService) hasChannel(name string) bool {
	for _, ch := range s.channels {
		if ch.Name == name {
			return true
		}
	}
	return false
}

// Channels returns the configured channel names in order.
func (s *NotificationService) Channels() []string {
	names := make([]string, len(s.channels))
	for i, ch := range s.channels {
		names[i] = ch.Name
	}
	return names
}
