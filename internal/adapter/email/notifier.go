// Package email provides an SMTP-based notifier.Sender.
package email

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/notifier"
)

const providerName = "email"

// SMTPConfig holds the configuration for SMTP connections.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string // defaults to From
	Password string
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Notifier sends email notifications via SMTP. The target is one or more
// comma-separated addresses; each one gets its own message.
type Notifier struct {
	cfg      SMTPConfig
	sendMail sendFunc
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg SMTPConfig) *Notifier {
	return &Notifier{cfg: cfg, sendMail: smtp.SendMail}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{Priority: true, Link: true}
}

// Send delivers msg to every address in target.
func (n *Notifier) Send(ctx context.Context, target string, msg notification.Message) error {
	if n.cfg.Host == "" || n.cfg.From == "" {
		return notifier.ErrNotConfigured
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	var auth smtp.Auth
	if n.cfg.Password != "" {
		user := n.cfg.Username
		if user == "" {
			user = n.cfg.From
		}
		auth = smtp.PlainAuth("", user, n.cfg.Password, n.cfg.Host)
	}

	return notifier.SendEach(ctx, providerName, target, func(ctx context.Context, to string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.sendMail(addr, auth, n.cfg.From, []string{to}, n.render(to, msg)); err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	})
}

func (n *Notifier) render(to string, msg notification.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", headerValue(n.cfg.From))
	fmt.Fprintf(&b, "To: %s\n", headerValue(to))
	fmt.Fprintf(&b, "Subject: %s\n", mime.QEncoding.Encode("utf-8", headerValue(msg.Title)))
	fmt.Fprintf(&b, "X-Priority: %d\n", xPriority(msg.Priority))
	b.WriteString("Content-Type: text/plain; charset=UTF-8\n\n")

	b.WriteString(msg.Text())
	if msg.Link != "" {
		fmt.Fprintf(&b, "\n\n%s: %s", msg.LinkLabel, msg.Link)
	}
	// SMTP requires CRLF line endings.
	return []byte(strings.ReplaceAll(b.String(), "\n", "\r\n"))
}

// headerValue collapses whitespace, line breaks included, so a value cannot
// start a new header.
func headerValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// xPriority maps to the X-Priority header scale (1 highest, 5 lowest).
func xPriority(p notification.Priority) int {
	switch p {
	case notification.PriorityHigh:
		return 1
	case notification.PriorityLow:
		return 5
	default:
		return 3
	}
}
