// Package telegram implements a notifier.Sender for the Telegram Bot API.
package telegram

import (
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

const (
	providerName  = "telegram"
	defaultAPIURL = "https://api.telegram.org"
)

// Config holds the bot credentials.
type Config struct {
	BotToken string
	APIURL   string // defaults to the public Bot API
}

// Notifier sends messages to Telegram chats. The target is one or more
// comma-separated chat IDs.
type Notifier struct {
	cfg        Config
	httpClient *http.Client
}

// NewNotifier creates a Telegram notifier.
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
	return notifier.Capabilities{Link: true}
}

// apiResponse is the common Bot API envelope.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n *Notifier) Send(ctx context.Context, target string, msg notification.Message) error {
	if n.cfg.BotToken == "" {
		return notifier.ErrNotConfigured
	}

	text := FormatText(msg)
	return notifier.SendEach(ctx, providerName, target, func(ctx context.Context, chatID string) error {
		return n.sendMessage(ctx, chatID, text)
	})
}

func (n *Notifier) sendMessage(ctx context.Context, chatID, text string) error {
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)

	endpoint := strings.TrimRight(n.cfg.APIURL, "/") + "/bot" + n.cfg.BotToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram request: %w", notifier.TransportError(err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req) //nolint:gosec // API URL from trusted config
	if err != nil {
		return fmt.Errorf("telegram send: %w", notifier.TransportError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil || resp.StatusCode >= 400 || !out.OK {
		if out.Description != "" {
			return fmt.Errorf("telegram API %d: %s", resp.StatusCode, out.Description)
		}
		return fmt.Errorf("telegram API %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// FormatText renders msg as plain text: title, body, link and extra message
// separated by blank lines.
func FormatText(msg notification.Message) string {
	parts := []string{msg.Title, msg.Body}
	if msg.Link != "" {
		parts = append(parts, msg.LinkLabel+" "+msg.Link)
	}
	if strings.TrimSpace(msg.Extra) != "" {
		parts = append(parts, msg.Extra)
	}

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
