// Package webhook implements a notifier.Sender that relays messages as JSON
// to an event endpoint (Boteco style). Each recipient is an event ID that is
// appended to the configured endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/notifier"
)

const providerName = "webhook"

// Config holds the relay endpoint and an optional bearer token.
type Config struct {
	Endpoint string
	Token    string
}

// Notifier posts JSON events to <endpoint>/<event>.
type Notifier struct {
	cfg        Config
	httpClient *http.Client
}

// NewNotifier creates a webhook relay notifier.
func NewNotifier(cfg Config, httpClient *http.Client) *Notifier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Notifier{cfg: cfg, httpClient: httpClient}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{
		Priority: true,
		Link:     true,
	}
}

// event is the relay payload.
type event struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	URL      string `json:"url,omitempty"`
	Priority string `json:"priority"`
}

func (n *Notifier) Send(ctx context.Context, target string, msg notification.Message) error {
	if n.cfg.Endpoint == "" {
		return notifier.ErrNotConfigured
	}

	body, err := json.Marshal(event{
		Title:    msg.Title,
		Text:     msg.Text(),
		URL:      msg.Link,
		Priority: string(msg.Priority),
	})
	if err != nil {
		return fmt.Errorf("webhook marshal: %w", err)
	}

	return notifier.SendEach(ctx, providerName, target, func(ctx context.Context, eventID string) error {
		return n.post(ctx, EventURL(n.cfg.Endpoint, eventID), body)
	})
}

func (n *Notifier) post(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", notifier.TransportError(err))
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
	}

	resp, err := n.httpClient.Do(req) //nolint:gosec // endpoint from trusted config
	if err != nil {
		return fmt.Errorf("webhook send: %w", notifier.TransportError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// EventURL joins endpoint and the escaped event ID with a single slash.
func EventURL(endpoint, eventID string) string {
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return endpoint + url.PathEscape(eventID)
}
