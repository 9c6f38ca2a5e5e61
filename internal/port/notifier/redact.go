package notifier

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// TransportError replaces the request URL of a *url.Error with its scheme
// and host. Bot tokens and webhook secrets live in the URL path, and send
// errors end up in stored outcomes and live events.
func TransportError(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	return fmt.Errorf("%s %s: %w", uerr.Op, RedactURL(uerr.URL), uerr.Err)
}

// RedactURL reduces an absolute URL to scheme://host/... and returns any
// other string unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	if u.Path == "" && u.RawQuery == "" && u.User == nil {
		return u.Scheme + "://" + u.Host
	}
	return u.Scheme + "://" + u.Host + "/..."
}

// RedactTarget applies RedactURL to each comma-separated recipient of target.
func RedactTarget(target string) string {
	recipients := SplitTargets(target)
	for i, r := range recipients {
		recipients[i] = RedactURL(r)
	}
	return strings.Join(recipients, ",")
}
