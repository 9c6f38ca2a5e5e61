package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/buildnotify/internal/adapter/otel"
	"github.com/Strob0t/buildnotify/internal/domain"
	"github.com/Strob0t/buildnotify/internal/domain/build"
	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/broadcast"
	"github.com/Strob0t/buildnotify/internal/port/cache"
	"github.com/Strob0t/buildnotify/internal/port/database"
	"github.com/Strob0t/buildnotify/internal/port/messagequeue"
)

// BuildEventService turns finished-build events into dispatches. It links
// each build to its predecessor, notifies every channel and stores the build
// so the next one can be classified.
type BuildEventService struct {
	notify   *NotificationService
	store    database.Store
	cache    cache.Cache
	cacheTTL time.Duration
	hub      broadcast.Broadcaster
	metrics  *otel.Metrics
}

// NewBuildEventService creates a BuildEventService. store may be nil, in
// which case only events carrying a previous result are classified against
// a predecessor.
func NewBuildEventService(notify *NotificationService, store database.Store) *BuildEventService {
	return &BuildEventService{notify: notify, store: store}
}

// SetCache enables the last-build cache.
func (s *BuildEventService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.cacheTTL = ttl
}

// SetBroadcaster enables build.received events.
func (s *BuildEventService) SetBroadcaster(hub broadcast.Broadcaster) { s.hub = hub }

// SetMetrics enables build counters.
func (s *BuildEventService) SetMetrics(m *otel.Metrics) { s.metrics = m }

// Handle processes one validated build event and returns the outcome of
// every channel. Send failures are reported in the outcomes, not as an error.
func (s *BuildEventService) Handle(ctx context.Context, p *messagequeue.BuildFinishedPayload) ([]notification.Outcome, error) {
	rec := p.Record()

	ctx, span := otel.StartBuildSpan(ctx, rec.Project, rec.Number)
	outcomes, err := s.handle(ctx, rec, p.Channels)
	otel.EndSpan(span, err)
	return outcomes, err
}

func (s *BuildEventService) handle(ctx context.Context, rec *build.Record, channels []string) ([]notification.Outcome, error) {
	s.metrics.RecordBuild(ctx, rec.Project)
	if s.hub != nil {
		// Env may carry CI secrets; live clients get the record without it.
		public := *rec
		public.Env = nil
		s.hub.BroadcastEvent(ctx, broadcast.EventBuildReceived, &public)
	}

	if rec.Previous == nil {
		prev, err := s.previous(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("previous build of %s #%d: %w", rec.Project, rec.Number, err)
		}
		rec.Previous = prev
	}

	slog.Info("build received",
		"project", rec.Project,
		"build", rec.Number,
		"result", rec.Result,
		"previous", rec.PreviousResult(),
	)

	outcomes := s.notify.NotifyBuild(ctx, rec, channels)

	if s.store != nil {
		if err := s.store.SaveBuild(ctx, rec); err != nil {
			slog.Error("save build", "project", rec.Project, "build", rec.Number, "error", err)
		}
	}
	s.remember(ctx, rec)

	return outcomes, nil
}

// previous returns the build that ran before rec, or nil if there is none.
func (s *BuildEventService) previous(ctx context.Context, rec *build.Record) (*build.Record, error) {
	if last := s.cached(ctx, rec.Project); last != nil && last.Number < rec.Number {
		return last, nil
	}
	if s.store == nil {
		return nil, nil
	}

	prev, err := s.store.PreviousBuild(ctx, rec.Project, rec.Number)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return prev, nil
}

func lastBuildKey(project string) string { return "last:" + project }

func (s *BuildEventService) cached(ctx context.Context, project string) *build.Record {
	if s.cache == nil {
		return nil
	}
	data, ok, err := s.cache.Get(ctx, lastBuildKey(project))
	if err != nil || !ok {
		return nil
	}
	var rec build.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Debug("discard cached build", "project", project, "error", err)
		return nil
	}
	return &rec
}

// remember caches rec as the newest build of its project unless a newer one
// is already cached.
func (s *BuildEventService) remember(ctx context.Context, rec *build.Record) {
	if s.cache == nil {
		return
	}
	if last := s.cached(ctx, rec.Project); last != nil && last.Number > rec.Number {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, lastBuildKey(rec.Project), data, s.cacheTTL); err != nil {
		slog.Debug("cache build", "project", rec.Project, "error", err)
	}
}

// StartSubscriber consumes build events from q until ctx is done or the
// returned cancel function is called.
func (s *BuildEventService) StartSubscriber(ctx context.Context, q messagequeue.Queue) (func(), error) {
	return q.Subscribe(ctx, messagequeue.SubjectBuildFinished, func(ctx context.Context, _ string, data []byte) error {
		p, err := messagequeue.DecodeBuildFinished(data)
		if err != nil {
			return err
		}
		_, err = s.Handle(ctx, p)
		return err
	})
}
