// Package pushover implements a notifier.Sender for the Pushover API.
package pushover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/notifier"
)

const (
	providerName  = "pushover"
	defaultAPIURL = "https://api.pushover.net/1/messages.json"
)

// Config holds the application token and optional device filter.
type Config struct {
	AppToken string
	Device   string
	APIURL   string
}

// Notifier pushes messages to Pushover users. The target is one or more
// comma-separated user or group keys.
type Notifier struct {
	cfg        Config
	httpClient *http.Client
}

// NewNotifier creates a Pushover notifier.
func NewNotifier(cfg Config, httpClient *http.Client) *Notifier {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
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

type pushoverResponse struct {
	Status int      `json:"status"`
	Errors []string `json:"errors"`
}

func (n *Notifier) Send(ctx context.Context, target string, msg notification.Message) error {
	if n.cfg.AppToken == "" {
		return notifier.ErrNotConfigured
	}

	return notifier.SendEach(ctx, providerName, target, func(ctx context.Context, user string) error {
		return n.push(ctx, n.form(user, msg))
	})
}

func (n *Notifier) form(user string, msg notification.Message) url.Values {
	form := url.Values{}
	form.Set("token", n.cfg.AppToken)
	form.Set("user", user)
	form.Set("title", msg.Title)
	form.Set("message", msg.Text())
	form.Set("priority", strconv.Itoa(priorityValue(msg.Priority)))
	if n.cfg.Device != "" {
		form.Set("device", n.cfg.Device)
	}
	if msg.Link != "" {
		form.Set("url", msg.Link)
		form.Set("url_title", msg.LinkLabel)
	}
	return form
}

func (n *Notifier) push(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("pushover request: %w", notifier.TransportError(err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req) //nolint:gosec // API URL from trusted config
	if err != nil {
		return fmt.Errorf("pushover send: %w", notifier.TransportError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	var out pushoverResponse
	_ = json.Unmarshal(body, &out)
	if resp.StatusCode >= 400 || out.Status != 1 {
		if len(out.Errors) > 0 {
			return fmt.Errorf("pushover API %d: %s", resp.StatusCode, strings.Join(out.Errors, "; "))
		}
		return fmt.Errorf("pushover API %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// priorityValue maps a message priority to the Pushover scale.
func priorityValue(p notification.Priority) int {
	switch p {
	case notification.PriorityHigh:
		return 1
	case notification.PriorityLow:
		return -1
	default:
		return 0
	}
}
