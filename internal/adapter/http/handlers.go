package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/database"
	"github.com/Strob0t/buildnotify/internal/port/messagequeue"
	"github.com/Strob0t/buildnotify/internal/port/notifier"
	"github.com/Strob0t/buildnotify/internal/resilience"
	"github.com/Strob0t/buildnotify/internal/service"
)

const (
	defaultDispatchLimit = 50
	maxDispatchLimit     = 500
	healthTimeout        = 2 * time.Second
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Handlers holds the services used by the HTTP endpoints. Store, Breakers
// and Checks may be nil.
type Handlers struct {
	Builds   *service.BuildEventService
	Notify   *service.NotificationService
	Store    database.Store
	Breakers *resilience.Set
	Checks   map[string]HealthCheck
}

type receiveBuildResponse struct {
	Project  string                 `json:"project"`
	Number   int                    `json:"number"`
	Outcomes []notification.Outcome `json:"outcomes"`
}

// ReceiveBuild handles POST /api/v1/builds. Delivery failures are reported
// in the outcomes; the request itself still succeeds.
func (h *Handlers) ReceiveBuild(w http.ResponseWriter, r *http.Request) {
	p, ok := readJSON[messagequeue.BuildFinishedPayload](w, r)
	if !ok {
		return
	}
	if err := messagequeue.ValidatePayload(&p); err != nil {
		writeDomainError(w, err, "invalid build event")
		return
	}

	outcomes, err := h.Builds.Handle(r.Context(), &p)
	if err != nil {
		writeDomainError(w, err, "build not found")
		return
	}

	writeJSON(w, http.StatusAccepted, receiveBuildResponse{
		Project:  p.Project,
		Number:   p.Number,
		Outcomes: outcomes,
	})
}

// ListDispatches handles GET /api/v1/projects/{project}/dispatches.
func (h *Handlers) ListDispatches(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "dispatch history not available")
		return
	}

	project := urlParam(r, "project")
	limit := queryInt(r, "limit", defaultDispatchLimit, maxDispatchLimit)

	outcomes, err := h.Store.ListOutcomes(r.Context(), project, limit)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	if outcomes == nil {
		outcomes = []notification.Outcome{}
	}
	writeJSON(w, http.StatusOK, outcomes)
}

type channelInfo struct {
	Name    string `json:"name"`
	Breaker string `json:"breaker"`
}

type sendersResponse struct {
	Providers []string      `json:"providers"`
	Channels  []channelInfo `json:"channels"`
}

// ListSenders handles GET /api/v1/senders: registered providers and the
// breaker state of every configured channel.
func (h *Handlers) ListSenders(w http.ResponseWriter, _ *http.Request) {
	var states map[string]string
	if h.Breakers != nil {
		states = h.Breakers.States()
	}

	resp := sendersResponse{Providers: notifier.Available(), Channels: []channelInfo{}}
	if h.Notify != nil {
		for _, name := range h.Notify.Channels() {
			state := states[name]
			if state == "" {
				state = "closed"
			}
			resp.Channels = append(resp.Channels, channelInfo{Name: name, Breaker: state})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health. Any failing check turns the response into
// 503 with status "degraded".
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.Checks))}
	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.Checks[name](ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
