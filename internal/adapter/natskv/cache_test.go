package natskv

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/buildnotify/internal/port/cache"
)

// Compile-time interface check.
var _ cache.Cache = (*Cache)(nil)

func TestKVKey(t *testing.T) {
	tests := []struct {
		key         string
		passthrough bool
	}{
		{"last.core", true},
		{"core-web_2", true},
		{"last:core", false},
		{"last:my project", false},
		{".hidden", false},
		{"b64.spoof", false},
	}
	for _, tt := range tests {
		got := kvKey(tt.key)
		if tt.passthrough && got != tt.key {
			t.Errorf("kvKey(%q) = %q, want unchanged", tt.key, got)
		}
		if !tt.passthrough && (got == tt.key || !validKey.MatchString(got)) {
			t.Errorf("kvKey(%q) = %q, want encoded valid key", tt.key, got)
		}
	}
	if kvKey("a:b") == kvKey("a;b") {
		t.Error("distinct keys must not collide")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream: %v", err)
	}
	ctx := context.Background()
	bucket := fmt.Sprintf("BUILDNOTIFY_TEST_%d", time.Now().UnixNano())
	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
	if err != nil {
		t.Fatalf("create bucket: %v", err)
	}
	t.Cleanup(func() { _ = js.DeleteKeyValue(context.Background(), bucket) })

	c := New(kv)

	if _, ok, err := c.Get(ctx, "last:core"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "last:core", []byte(`{"number":3}`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, ok, err := c.Get(ctx, "last:core")
	if err != nil || !ok || string(data) != `{"number":3}` {
		t.Fatalf("Get = %q ok=%v err=%v", data, ok, err)
	}
	if err := c.Delete(ctx, "last:core"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(ctx, "last:missing"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}
