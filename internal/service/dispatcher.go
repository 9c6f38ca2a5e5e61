package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/buildnotify/internal/adapter/otel"
	"github.com/Strob0t/buildnotify/internal/domain/build"
	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/notifier"
	"github.com/Strob0t/buildnotify/internal/resilience"
)

// Dispatcher runs the classify, resolve, compose and send pipeline for one
// build on one channel. It holds no per-build state and is safe for
// concurrent use.
type Dispatcher struct {
	composer notification.Composer
	breakers *resilience.Set
	metrics  *otel.Metrics
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher. breakers and metrics may be nil.
func NewDispatcher(composer notification.Composer, breakers *resilience.Set, metrics *otel.Metrics) *Dispatcher {
	return &Dispatcher{
		composer: composer,
		breakers: breakers,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Dispatch notifies sender about rec according to routing. The returned
// outcome is skipped when no target applies, in which case no message is
// built and the sender is not called.
func (d *Dispatcher) Dispatch(ctx context.Context, rec *build.Record, routing notification.Routing, sender notifier.Sender) notification.Outcome {
	return d.dispatch(ctx, sender.Name(), rec, routing, sender)
}

func (d *Dispatcher) dispatch(ctx context.Context, channel string, rec *build.Record, routing notification.Routing, sender notifier.Sender) notification.Outcome {
	status := build.StatusOf(rec)
	out := notification.Outcome{
		Project:   rec.Project,
		Build:     rec.Number,
		Channel:   channel,
		Status:    status,
		Kind:      notification.OutcomeSkipped,
		CreatedAt: d.now().UTC(),
	}

	target, ok := routing.Resolve(status)
	if !ok {
		slog.Debug("dispatch skipped", "channel", channel, "project", rec.Project, "build", rec.Number, "status", status)
		d.metrics.RecordOutcome(ctx, out, 0)
		return out
	}
	out.Target = notifier.RedactTarget(target)

	msg := d.composer.Compose(rec, status, notification.ExpandExtra(routing.ExtraMessage, rec.Env))

	ctx, span := otel.StartDispatchSpan(ctx, channel, sender.Name())
	start := time.Now()
	err := d.send(ctx, channel, sender, target, msg)
	took := time.Since(start)
	otel.EndSpan(span, err)

	if err != nil {
		out.Kind = notification.OutcomeFailed
		out.Reason = err.Error()
		slog.Warn("dispatch failed",
			"channel", channel,
			"provider", sender.Name(),
			"project", rec.Project,
			"build", rec.Number,
			"status", status,
			"error", err,
		)
	} else {
		out.Kind = notification.OutcomeSent
		slog.Info("dispatch sent",
			"channel", channel,
			"provider", sender.Name(),
			"project", rec.Project,
			"build", rec.Number,
			"status", status,
			"duration_ms", took.Milliseconds(),
		)
	}
	d.metrics.RecordOutcome(ctx, out, took)
	return out
}

// send calls the sender once, through the channel breaker when configured.
func (d *Dispatcher) send(ctx context.Context, channel string, sender notifier.Sender, target string, msg notification.Message) error {
	call := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("sender %s panicked: %v", sender.Name(), r)
			}
		}()
		return sender.Send(ctx, target, msg)
	}

	if d.breakers == nil {
		return call()
	}
	return d.breakers.For(channel).Execute(call)
}
