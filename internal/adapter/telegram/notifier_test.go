package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/notifier"
)

// Compile-time interface check.
var _ notifier.Sender = (*Notifier)(nil)

var testMsg = notification.Message{
	Title:     "Broken - Build #12 of core",
	Body:      "FAILURE",
	Priority:  notification.PriorityHigh,
	Link:      "http://ci/job/core/12/",
	LinkLabel: "Go to build",
	Extra:     "ping @oncall",
}

func TestNotifierName(t *testing.T) {
	n := NewNotifier(Config{}, nil)
	if n.Name() != "telegram" {
		t.Fatalf("expected 'telegram', got %q", n.Name())
	}
	if n.Capabilities().Priority {
		t.Fatal("telegram has no priority concept")
	}
}

func TestSendNotConfigured(t *testing.T) {
	n := NewNotifier(Config{}, nil)
	err := n.Send(context.Background(), "1", testMsg)
	if !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestFormatText(t *testing.T) {
	want := "Broken - Build #12 of core\n\nFAILURE\n\nGo to build http://ci/job/core/12/\n\nping @oncall"
	if got := FormatText(testMsg); got != want {
		t.Fatalf("FormatText = %q, want %q", got, want)
	}

	msg := testMsg
	msg.Extra = ""
	msg.Link = ""
	if got := FormatText(msg); got != "Broken - Build #12 of core\n\nFAILURE" {
		t.Fatalf("FormatText without extras = %q", got)
	}
}

func TestSendEveryChat(t *testing.T) {
	var (
		mu    sync.Mutex
		chats []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("text") != FormatText(testMsg) {
			t.Errorf("unexpected text %q", r.PostForm.Get("text"))
		}
		mu.Lock()
		chats = append(chats, r.PostForm.Get("chat_id"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	n := NewNotifier(Config{BotToken: "TOKEN", APIURL: srv.URL}, srv.Client())
	if err := n.Send(context.Background(), "-100, 42", testMsg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(chats, []string{"-100", "42"}) {
		t.Fatalf("expected both chats, got %v", chats)
	}
}

func TestSendPartialFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = r.ParseForm()
		if r.PostForm.Get("chat_id") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier(Config{BotToken: "TOKEN", APIURL: srv.URL}, srv.Client())
	err := n.Send(context.Background(), "bad,good", testMsg)
	if err == nil {
		t.Fatal("expected failure when one chat fails")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected both chats attempted, got %d calls", calls.Load())
	}
	if got := notifier.FailedRecipients(err); !reflect.DeepEqual(got, []string{"bad"}) {
		t.Fatalf("expected failed recipient bad, got %v", got)
	}
}

func TestSendOKFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Forbidden"}`))
	}))
	defer srv.Close()

	n := NewNotifier(Config{BotToken: "TOKEN", APIURL: srv.URL}, srv.Client())
	if err := n.Send(context.Background(), "1", testMsg); err == nil {
		t.Fatal("expected error when API reports ok=false")
	}
}

func TestRegistered(t *testing.T) {
	s, err := notifier.New("telegram", map[string]string{"bot_token": "x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Name() != "telegram" {
		t.Fatalf("expected telegram, got %s", s.Name())
	}
}

func TestSendTransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	apiURL := srv.URL
	srv.Close()

	n := NewNotifier(Config{BotToken: "123456:SECRET-TOKEN", APIURL: apiURL}, nil)
	err := n.Send(context.Background(), "42", testMsg)
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if strings.Contains(err.Error(), "SECRET-TOKEN") {
		t.Fatalf("error leaks bot token: %v", err)
	}
	if got := notifier.FailedRecipients(err); !reflect.DeepEqual(got, []string{"42"}) {
		t.Fatalf("failed recipients = %v, want [42]", got)
	}
}
