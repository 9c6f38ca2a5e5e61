// Package natskv implements the cache port on a NATS JetStream KV bucket so
// that several buildnotify replicas share the last-build lookup.
package natskv

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Cache wraps a NATS JetStream KeyValue bucket.
type Cache struct {
	kv jetstream.KeyValue
}

// New creates a NATS KV-backed cache.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

var validKey = regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

// kvKey maps an arbitrary cache key onto the KV key alphabet. Keys that are
// already valid pass through; others are base64url encoded with a "b64."
// prefix so the two forms never collide.
func kvKey(key string) string {
	if validKey.MatchString(key) && key[0] != '.' && key[len(key)-1] != '.' && !hasB64Prefix(key) {
		return key
	}
	return "b64." + base64.RawURLEncoding.EncodeToString([]byte(key))
}

func hasB64Prefix(key string) bool {
	return len(key) >= 4 && key[:4] == "b64."
}

// Get retrieves a value. A missing or deleted key is a miss.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.kv.Get(ctx, kvKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

// Set stores a value. Expiry is the bucket TTL; the per-call ttl is ignored.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := c.kv.Put(ctx, kvKey(key), value)
	return err
}

// Delete removes a value. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}
