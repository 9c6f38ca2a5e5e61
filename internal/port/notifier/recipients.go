package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// SplitTargets splits a comma-separated target into trimmed, non-empty
// recipients, preserving order.
func SplitTargets(target string) []string {
	parts := strings.Split(target, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RecipientError is the failure of a single recipient. Error redacts
// recipients that are URLs.
type RecipientError struct {
	Recipient string
	Err       error
}

func (e *RecipientError) Error() string {
	return fmt.Sprintf("recipient %s: %v", RedactURL(e.Recipient), e.Err)
}

func (e *RecipientError) Unwrap() error { return e.Err }

// SendEach calls send for every recipient in target. All recipients are
// attempted even after a failure. Each failure is logged and the joined
// error of all failed recipients is returned.
func SendEach(ctx context.Context, provider, target string, send func(ctx context.Context, recipient string) error) error {
	recipients := SplitTargets(target)
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	var errs []error
	for _, r := range recipients {
		if err := send(ctx, r); err != nil {
			slog.Warn("recipient send failed", "provider", provider, "recipient", RedactURL(r), "error", err)
			errs = append(errs, &RecipientError{Recipient: r, Err: err})
		}
	}
	return errors.Join(errs...)
}

// FailedRecipients lists the recipients recorded in an error returned by
// SendEach.
func FailedRecipients(err error) []string {
	var out []string
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			var re *RecipientError
			if errors.As(e, &re) {
				out = append(out, re.Recipient)
			}
		}
		return out
	}
	var re *RecipientError
	if errors.As(err, &re) {
		out = append(out, re.Recipient)
	}
	return out
}
