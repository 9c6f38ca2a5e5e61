package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/buildnotify/internal/domain/build"
	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/resilience"
)

func newTestDispatcher() *Dispatcher {
	d := NewDispatcher(notification.Composer{BaseURL: "https://ci.example.com/"}, nil, nil)
	d.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return d
}

func record(number int, result, previous build.Result) *build.Record {
	rec := &build.Record{Number: number, Result: result, Project: "core", URL: fmt.Sprintf("job/core/%d/", number)}
	if previous != "" {
		rec.Previous = &build.Record{Number: number - 1, Result: previous, Project: "core"}
	}
	return rec
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name       string
		rec        *build.Record
		routing    notification.Routing
		wantKind   notification.OutcomeKind
		wantStatus build.Status
		wantTarget string
	}{
		{
			name:       "first failure goes to global",
			rec:        record(12, build.ResultFailure, build.ResultSuccess),
			routing:    notification.Routing{Global: "ops"},
			wantKind:   notification.OutcomeSent,
			wantStatus: build.StatusBroken,
			wantTarget: "ops",
		},
		{
			name:       "plain success skipped without flag",
			rec:        record(13, build.ResultSuccess, build.ResultSuccess),
			routing:    notification.Routing{Global: "ops"},
			wantKind:   notification.OutcomeSkipped,
			wantStatus: build.StatusSuccessful,
		},
		{
			name:       "plain success sent with flag",
			rec:        record(13, build.ResultSuccess, build.ResultSuccess),
			routing:    notification.Routing{Global: "ops", SendIfSuccess: true},
			wantKind:   notification.OutcomeSent,
			wantStatus: build.StatusSuccessful,
			wantTarget: "ops",
		},
		{
			name:       "override wins over global",
			rec:        record(14, build.ResultSuccess, build.ResultFailure),
			routing:    notification.Routing{Global: "ops", Fixed: " team-fixed "},
			wantKind:   notification.OutcomeSent,
			wantStatus: build.StatusFixed,
			wantTarget: "team-fixed",
		},
		{
			name:       "still broken with blank targets skipped",
			rec:        record(15, build.ResultUnstable, build.ResultFailure),
			routing:    notification.Routing{Global: "  "},
			wantKind:   notification.OutcomeSkipped,
			wantStatus: build.StatusStillBroken,
		},
		{
			name:       "no previous build counts as success before",
			rec:        record(1, build.ResultAborted, ""),
			routing:    notification.Routing{Global: "ops"},
			wantKind:   notification.OutcomeSent,
			wantStatus: build.StatusBroken,
			wantTarget: "ops",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher()
			s := &mockSender{name: "mock"}

			out := d.Dispatch(context.Background(), tt.rec, tt.routing, s)

			if out.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", out.Kind, tt.wantKind)
			}
			if out.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", out.Status, tt.wantStatus)
			}
			if out.Target != tt.wantTarget {
				t.Errorf("target = %q, want %q", out.Target, tt.wantTarget)
			}
			if out.Project != "core" || out.Build != tt.rec.Number || out.Channel != "mock" {
				t.Errorf("unexpected outcome identity %+v", out)
			}

			wantCalls := 1
			if tt.wantKind == notification.OutcomeSkipped {
				wantCalls = 0
			}
			if s.callCount() != wantCalls {
				t.Fatalf("sender called %d times, want %d", s.callCount(), wantCalls)
			}
		})
	}
}

func TestDispatchComposesMessage(t *testing.T) {
	d := newTestDispatcher()
	s := &mockSender{name: "mock"}
	rec := &build.Record{
		Number:   12,
		Result:   build.ResultFailure,
		Project:  "core",
		URL:      "/job/core/12/",
		Changes:  []build.Change{{Message: "fix", Author: "ana"}, {Message: "bump", Author: "bo"}},
		Env:      map[string]string{"BRANCH": "main"},
		Previous: &build.Record{Number: 11, Result: build.ResultSuccess},
	}
	routing := notification.Routing{Global: "ops", ExtraMessage: "branch ${BRANCH}"}

	out := d.Dispatch(context.Background(), rec, routing, s)
	if out.Kind != notification.OutcomeSent {
		t.Fatalf("expected sent, got %s (%s)", out.Kind, out.Reason)
	}

	call := s.last()
	if call.target != "ops" {
		t.Errorf("target = %q", call.target)
	}
	msg := call.msg
	if msg.Title != "Broken - Build #12 of core" {
		t.Errorf("title = %q", msg.Title)
	}
	if msg.Body != "FAILURE\n\nfix - ana\nbump - bo" {
		t.Errorf("body = %q", msg.Body)
	}
	if msg.Link != "https://ci.example.com/job/core/12/" {
		t.Errorf("link = %q", msg.Link)
	}
	if msg.Priority != notification.PriorityHigh {
		t.Errorf("priority = %s", msg.Priority)
	}
	if msg.Extra != "branch main" {
		t.Errorf("extra = %q", msg.Extra)
	}
}

func TestDispatchSendFailure(t *testing.T) {
	d := newTestDispatcher()
	s := &mockSender{name: "mock", sendErr: errors.New("connection refused")}

	out := d.Dispatch(context.Background(), record(2, build.ResultFailure, build.ResultSuccess), notification.Routing{Global: "ops"}, s)

	if !out.Failed() {
		t.Fatalf("expected failed outcome, got %s", out.Kind)
	}
	if !strings.Contains(out.Reason, "connection refused") {
		t.Errorf("reason = %q", out.Reason)
	}
}

func TestDispatchRecoversSenderPanic(t *testing.T) {
	d := newTestDispatcher()
	s := &mockSender{name: "mock", panicWith: "nil map"}

	out := d.Dispatch(context.Background(), record(2, build.ResultFailure, build.ResultSuccess), notification.Routing{Global: "ops"}, s)

	if !out.Failed() {
		t.Fatalf("expected failed outcome, got %s", out.Kind)
	}
	if !strings.Contains(out.Reason, "panicked") {
		t.Errorf("reason = %q", out.Reason)
	}
}

func TestDispatchBreakerOpens(t *testing.T) {
	d := NewDispatcher(notification.Composer{}, resilience.NewSet(2, time.Hour), nil)
	s := &mockSender{name: "mock", sendErr: errors.New("down")}
	rec := record(2, build.ResultFailure, build.ResultSuccess)
	routing := notification.Routing{Global: "ops"}

	for range 2 {
		d.Dispatch(context.Background(), rec, routing, s)
	}
	out := d.Dispatch(context.Background(), rec, routing, s)

	if !out.Failed() {
		t.Fatalf("expected failed outcome, got %s", out.Kind)
	}
	if !strings.Contains(out.Reason, resilience.ErrCircuitOpen.Error()) {
		t.Errorf("reason = %q", out.Reason)
	}
	if s.callCount() != 2 {
		t.Fatalf("sender called %d times while open, want 2", s.callCount())
	}
}

func TestDispatchIsStateless(t *testing.T) {
	d := newTestDispatcher()
	s := &mockSender{name: "mock"}
	rec := record(3, build.ResultFailure, build.ResultFailure)
	routing := notification.Routing{Global: "ops"}

	first := d.Dispatch(context.Background(), rec, routing, s)
	second := d.Dispatch(context.Background(), rec, routing, s)

	if first != second {
		t.Fatalf("repeated dispatch differs: %+v vs %+v", first, second)
	}
	if s.calls[0].msg != s.calls[1].msg {
		t.Fatalf("repeated dispatch composed different messages")
	}
}
