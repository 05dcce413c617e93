// Package cache provides the fingerprint-keyed response cache shared by specialists.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xiaot623/hati/internal/domain"
)

// Backend is the slice of the persistent store the cache needs.
type Backend interface {
	GetCacheEntry(ctx context.Context, key string, nowMs int64) (*domain.CacheEntry, error)
	PutCacheEntry(ctx context.Context, entry *domain.CacheEntry) error
	DeleteExpiredCacheEntries(ctx context.Context, nowMs int64) (int64, error)
}

// Cache stores opaque JSON payloads under fingerprint keys with an expiry.
// Storage failures degrade to a miss; they never reach the caller of Get or Put.
type Cache struct {
	backend Backend
	log     *zap.Logger
	group   singleflight.Group
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache on top of backend.
func New(backend Backend, log *zap.Logger, opts ...Option) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cache{backend: backend, log: log.Named("cache"), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fingerprint derives the cache key for agentID and params.
//
// Keys whose value is nil, an empty string, an empty map or an empty slice
// are dropped (recursively) before hashing, so an absent parameter and an
// empty one produce the same key. Map keys are serialized in sorted order.
func Fingerprint(agentID string, params map[string]any) string {
	canonical, err := json.Marshal(prune(params))
	if err != nil {
		// Values that cannot be serialized still need a stable key.
		canonical = []byte(fmt.Sprintf("%v", prune(params)))
	}
	sum := sha256.Sum256(append([]byte(agentID+"\x00"), canonical...))
	return agentID + ":" + hex.EncodeToString(sum[:])[:32]
}

func prune(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			p := prune(val)
			if isEmpty(p) {
				continue
			}
			out[k] = p
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			out = append(out, prune(val))
		}
		return out
	case []string:
		out := make([]any, 0, len(t))
		for _, s := range t {
			out = append(out, s)
		}
		return out
	default:
		return v
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// Get returns the payload stored under key while it has not expired.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	entry, err := c.backend.GetCacheEntry(ctx, key, c.now().UnixMilli())
	if err != nil {
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if entry == nil {
		return nil, false
	}
	return entry.Payload, true
}

// GetInto decodes a cached payload into v.
func (c *Cache) GetInto(ctx context.Context, key string, v any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.log.Warn("cache payload undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Put stores payload under key, replacing any previous entry, expiring after ttl.
func (c *Cache) Put(ctx context.Context, key string, payload any, ttl time.Duration) {
	raw, err := toRaw(payload)
	if err != nil {
		c.log.Warn("cache payload not serializable", zap.String("key", key), zap.Error(err))
		return
	}
	now := c.now()
	entry := &domain.CacheEntry{
		Key:       key,
		Payload:   raw,
		ExpiresAt: now.Add(ttl).UnixMilli(),
		CreatedAt: now.UnixMilli(),
	}
	if err := c.backend.PutCacheEntry(ctx, entry); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Sweep deletes expired entries and returns how many were removed.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	n, err := c.backend.DeleteExpiredCacheEntries(ctx, c.now().UnixMilli())
	if err != nil {
		return 0, domain.NewPersistenceError("sweep cache", err)
	}
	return n, nil
}

// Fetch returns the cached payload for key, or calls load and caches its
// result for ttl. Concurrent misses on the same key share one load call.
// The returned bool reports whether the value came from the cache.
func (c *Cache) Fetch(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (any, error)) (json.RawMessage, bool, error) {
	if raw, ok := c.Get(ctx, key); ok {
		return raw, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := toRaw(value)
		if err != nil {
			return nil, err
		}
		c.Put(ctx, key, raw, ttl)
		return raw, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(json.RawMessage), false, nil
}

func toRaw(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	default:
		return json.Marshal(payload)
	}
}
