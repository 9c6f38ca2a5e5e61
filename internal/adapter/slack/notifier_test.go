package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/notifier"
)

// Compile-time interface check.
var _ notifier.Sender = (*Notifier)(nil)

var testMsg = notification.Message{
	Title:     "Fixed - Build #8 of web",
	Body:      "SUCCESS",
	Priority:  notification.PriorityNormal,
	Link:      "http://ci/job/web/8/",
	LinkLabel: "Go to build",
}

func TestNotifierName(t *testing.T) {
	n := NewNotifier(Config{}, nil)
	if n.Name() != "slack" {
		t.Fatalf("expected 'slack', got %q", n.Name())
	}
}

func TestCapabilities(t *testing.T) {
	n := NewNotifier(Config{}, nil)
	caps := n.Capabilities()
	if !caps.RichFormatting {
		t.Fatal("expected RichFormatting=true")
	}
	if caps.Priority {
		t.Fatal("slack has no native priority")
	}
}

func TestSendNotConfigured(t *testing.T) {
	n := NewNotifier(Config{}, nil)
	err := n.Send(context.Background(), "#ci", testMsg)
	if !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/chat.postMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer xoxb-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		var msg slackMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode: %v", err)
		}
		if msg.Text != testMsg.Title {
			t.Errorf("unexpected fallback text %q", msg.Text)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier(Config{BotToken: "xoxb-1", APIURL: srv.URL}, srv.Client())
	if err := n.Send(context.Background(), "C1,C2", testMsg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 posts, got %d", calls.Load())
	}
}

func TestSendOKFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	n := NewNotifier(Config{BotToken: "xoxb-1", APIURL: srv.URL}, srv.Client())
	err := n.Send(context.Background(), "C404", testMsg)
	if err == nil {
		t.Fatal("expected error for ok=false")
	}
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewNotifier(Config{BotToken: "xoxb-1", APIURL: srv.URL}, srv.Client())
	if err := n.Send(context.Background(), "C1", testMsg); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestBuildMessageBlocks(t *testing.T) {
	msg := testMsg
	msg.Extra = "deployed to staging"

	out := buildMessage("C1", msg)
	if out.Channel != "C1" {
		t.Fatalf("unexpected channel %q", out.Channel)
	}
	// header, body, extra, link context
	if len(out.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(out.Blocks))
	}
	if out.Blocks[3].Elements[0].Text != "<http://ci/job/web/8/|Go to build>" {
		t.Fatalf("unexpected link block %q", out.Blocks[3].Elements[0].Text)
	}
}

func TestBuildMessageLongTitle(t *testing.T) {
	msg := testMsg
	msg.Title = "Broken - Build #3 of " + strings.Repeat("folder/", 40) + "service"
	out := buildMessage("C1", msg)

	header := out.Blocks[0].Text.Text
	if n := utf8.RuneCountInString(header); n > maxHeaderLen {
		t.Fatalf("header has %d runes, limit %d", n, maxHeaderLen)
	}
	if !strings.HasSuffix(header, "...") {
		t.Fatalf("expected truncation marker, got %q", header)
	}
	if out.Text != msg.Title {
		t.Fatal("fallback text must keep the full title")
	}
}
