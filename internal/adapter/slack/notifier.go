// Package slack implements a notifier.Sender for the Slack Web API
// (chat.postMessage) using Block Kit messages.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/notifier"
)

const (
	providerName  = "slack"
	defaultAPIURL = "https://slack.com/api"

	// maxHeaderLen is the plain_text limit of a header block.
	maxHeaderLen = 150
)

// Config holds the bot token used to post messages.
type Config struct {
	BotToken string
	APIURL   string
}

// Notifier posts messages to Slack channels. The target is one or more
// comma-separated channel IDs or names.
type Notifier struct {
	cfg        Config
	httpClient *http.Client
}

// NewNotifier creates a Slack notifier.
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
		RichFormatting: true,
		Link:           true,
	}
}

// slackMessage is the chat.postMessage payload.
type slackMessage struct {
	Channel string       `json:"channel"`
	Text    string       `json:"text"`
	Blocks  []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (n *Notifier) Send(ctx context.Context, target string, msg notification.Message) error {
	if n.cfg.BotToken == "" {
		return notifier.ErrNotConfigured
	}

	return notifier.SendEach(ctx, providerName, target, func(ctx context.Context, channel string) error {
		return n.post(ctx, buildMessage(channel, msg))
	})
}

func buildMessage(channel string, msg notification.Message) slackMessage {
	out := slackMessage{
		Channel: channel,
		Text:    msg.Title,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: truncate(fmt.Sprintf("%s %s", priorityEmoji(msg.Priority), msg.Title), maxHeaderLen)}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: msg.Body}},
		},
	}

	if strings.TrimSpace(msg.Extra) != "" {
		out.Blocks = append(out.Blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: msg.Extra},
		})
	}

	if msg.Link != "" {
		out.Blocks = append(out.Blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("<%s|%s>", msg.Link, msg.LinkLabel)}},
		})
	}
	return out
}

// truncate shortens s to at most limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

func (n *Notifier) post(ctx context.Context, msg slackMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	url := strings.TrimRight(n.cfg.APIURL, "/") + "/chat.postMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", notifier.TransportError(err))
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+n.cfg.BotToken)

	resp, err := n.httpClient.Do(req) //nolint:gosec // API URL from trusted config
	if err != nil {
		return fmt.Errorf("slack send: %w", notifier.TransportError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack API %d: %s", resp.StatusCode, string(respBody))
	}

	// The Web API answers 200 with ok=false on logical errors.
	var out slackResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return fmt.Errorf("slack decode: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("slack API: %s", out.Error)
	}
	return nil
}

func priorityEmoji(p notification.Priority) string {
	switch p {
	case notification.PriorityHigh:
		return ":red_circle:"
	case notification.PriorityLow:
		return ":large_green_circle:"
	default:
		return ":large_blue_circle:"
	}
}
