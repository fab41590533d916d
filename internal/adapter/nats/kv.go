package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// KVCache implements the cache port on a JetStream key-value bucket. It
// serves as the shared L2 behind the in-process ristretto L1 so summary
// invalidations propagate across instances.
type KVCache struct {
	kv jetstream.KeyValue
}

// NewKVCache creates (or binds to) the named KV bucket with the given TTL.
func (q *Queue) NewKVCache(ctx context.Context, bucket string, ttl time.Duration) (*KVCache, error) {
	kv, err := q.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("kv bucket %s: %w", bucket, err)
	}
	return &KVCache{kv: kv}, nil
}

// Get retrieves a value from the bucket.
func (c *KVCache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return entry.Value(), true, nil
}

// Set stores a value. The bucket TTL governs expiry; the per-call ttl is
// accepted for port compatibility but not applied per key.
func (c *KVCache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if _, err := c.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key from the bucket.
func (c *KVCache) Delete(ctx context.Context, key string) error {
	if err := c.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}
