// Package discord implements a notifier.Sender for Discord webhooks.
package discord

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

const providerName = "discord"

// Notifier sends embeds to Discord. The target is one or more
// comma-separated incoming webhook URLs.
type Notifier struct {
	username   string
	httpClient *http.Client
}

// NewNotifier creates a Discord notifier. username overrides the webhook's
// display name when set.
func NewNotifier(username string, httpClient *http.Client) *Notifier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Notifier{username: username, httpClient: httpClient}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{
		RichFormatting: true,
		Link:           true,
	}
}

// discordWebhook is the Discord webhook payload with embeds.
type discordWebhook struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	URL         string         `json:"url,omitempty"`
	Color       int            `json:"color"`
	Footer      *discordFooter `json:"footer,omitempty"`
}

type discordFooter struct {
	Text string `json:"text"`
}

func (n *Notifier) Send(ctx context.Context, target string, msg notification.Message) error {
	embed := discordEmbed{
		Title:       msg.Title,
		Description: msg.Body,
		URL:         msg.Link,
		Color:       priorityColor(msg.Priority),
	}
	if strings.TrimSpace(msg.Extra) != "" {
		embed.Footer = &discordFooter{Text: msg.Extra}
	}

	body, err := json.Marshal(discordWebhook{Username: n.username, Embeds: []discordEmbed{embed}})
	if err != nil {
		return fmt.Errorf("discord marshal: %w", err)
	}

	return notifier.SendEach(ctx, providerName, target, func(ctx context.Context, webhookURL string) error {
		return n.post(ctx, webhookURL, body)
	})
}

func (n *Notifier) post(ctx context.Context, webhookURL string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord request: %w", notifier.TransportError(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("discord send: %w", notifier.TransportError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	// Discord returns 204 on success
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord API %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// priorityColor returns Discord embed colors for message priorities.
func priorityColor(p notification.Priority) int {
	switch p {
	case notification.PriorityHigh:
		return 0xE74C3C // red
	case notification.PriorityLow:
		return 0x2ECC71 // green
	default:
		return 0x3498DB // blue
	}
}
