package httpclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/Strob0t/buildnotify/internal/config"
)

func TestProxyURL(t *testing.T) {
	if u := ProxyURL(config.Proxy{}); u != nil {
		t.Fatalf("expected nil proxy, got %v", u)
	}

	u := ProxyURL(config.Proxy{Host: "proxy.local", Port: 3128})
	if u.String() != "http://proxy.local:3128" {
		t.Fatalf("unexpected proxy url %s", u)
	}

	u = ProxyURL(config.Proxy{Host: "proxy.local", Port: 3128, Username: "ci", Password: "s3cret"})
	if u.User.Username() != "ci" {
		t.Fatalf("expected username ci, got %q", u.User.Username())
	}
	if pw, _ := u.User.Password(); pw != "s3cret" {
		t.Fatalf("expected password s3cret, got %q", pw)
	}
}

func TestProxyFuncRoutesRequests(t *testing.T) {
	fn := ProxyFunc(config.Proxy{Host: "10.0.0.1", Port: 8080})
	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", http.NoBody)

	u, err := fn(req)
	if err != nil {
		t.Fatalf("proxy func: %v", err)
	}
	if u == nil || u.Host != "10.0.0.1:8080" {
		t.Fatalf("expected proxy 10.0.0.1:8080, got %v", u)
	}
}

func TestNewAppliesTimeout(t *testing.T) {
	c := New(config.HTTPClient{Timeout: 3 * time.Second})
	if c.Timeout != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %v", c.Timeout)
	}
	if c.Transport == nil {
		t.Fatal("expected a transport")
	}
}

func TestConfigureReplacesDefault(t *testing.T) {
	before := Default()
	t.Cleanup(func() { shared = before })

	Configure(config.HTTPClient{Timeout: time.Second})
	if Default() == before {
		t.Fatal("expected Configure to replace the shared client")
	}
	if Default().Timeout != time.Second {
		t.Fatalf("expected 1s timeout, got %v", Default().Timeout)
	}
}
