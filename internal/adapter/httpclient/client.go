// Package httpclient builds the outbound HTTP client shared by all HTTP
// based senders.
package httpclient

import (
	"net"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/buildnotify/internal/config"
)

var shared = New(config.Defaults().HTTPClient)

// Default returns the process-wide client used by senders created through
// the registry. Configure replaces it.
func Default() *http.Client { return shared }

// Configure replaces the process-wide client. Call it before senders are
// constructed.
func Configure(cfg config.HTTPClient) { shared = New(cfg) }

// New creates an *http.Client with the configured timeout and optional proxy.
// Outbound requests are traced through otelhttp.
func New(cfg config.HTTPClient) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = ProxyFunc(cfg.Proxy)

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(tr),
	}
}

// ProxyFunc returns the transport proxy function for p. Without a host it
// falls back to the standard environment variables.
func ProxyFunc(p config.Proxy) func(*http.Request) (*url.URL, error) {
	u := ProxyURL(p)
	if u == nil {
		return http.ProxyFromEnvironment
	}
	return http.ProxyURL(u)
}

// ProxyURL returns the proxy URL for p, or nil when no proxy is configured.
func ProxyURL(p config.Proxy) *url.URL {
	if p.Host == "" {
		return nil
	}
	u := &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}
