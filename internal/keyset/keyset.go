// Package keyset caches the identity provider's public signing keys.
//
// The cache is a pure availability/performance layer: a hit must resolve
// the exact key id the token names, and verification correctness never
// depends on cache state. Concurrent misses share a single outbound
// fetch, and a failed refresh degrades to previously fetched keys when
// any exist (fail closed only when the cache has never been filled).
package keyset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrKeyNotFound means the key set was fetched but contains no key
	// with the requested id.
	ErrKeyNotFound = errors.New("keyset: signing key not found")

	// ErrSourceUnavailable means the key source could not be reached
	// and no previously fetched keys exist to fall back on.
	ErrSourceUnavailable = errors.New("keyset: key source unavailable")
)

// Key is one public signing key from the provider's key set.
type Key struct {
	ID        string
	Algorithm string

	// Public is an *rsa.PublicKey or *ecdsa.PublicKey, as understood
	// by the JWT library's verifiers.
	Public any
}

// Config controls cache behavior.
type Config struct {
	URL string

	// TTL bounds how long a fetched key set is considered fresh.
	TTL time.Duration

	// FetchTimeout bounds a single outbound fetch.
	FetchTimeout time.Duration

	// MissCooldown suppresses repeated refreshes caused by tokens
	// naming a key id the provider does not publish. A miss within
	// the cooldown of the last successful fetch is final.
	MissCooldown time.Duration

	Now func() time.Time

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Cache fetches and caches the provider's key set, indexed by key id.
type Cache struct {
	url      string
	ttl      time.Duration
	timeout  time.Duration
	cooldown time.Duration
	now      func() time.Time
	client   *http.Client

	group singleflight.Group

	mu        sync.RWMutex
	keys      map[string]Key
	fetchedAt time.Time
}

func New(cfg Config) (*Cache, error) {
	if cfg.URL == "" {
		return nil, errors.New("keyset: url is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	if cfg.MissCooldown <= 0 {
		cfg.MissCooldown = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Cache{
		url:      cfg.URL,
		ttl:      cfg.TTL,
		timeout:  cfg.FetchTimeout,
		cooldown: cfg.MissCooldown,
		now:      cfg.Now,
		client:   cfg.HTTPClient,
	}, nil
}

// Key resolves the signing key for kid, refreshing the cached key set
// when it is missing or stale. Refreshes are single-flight: concurrent
// callers share one outbound fetch regardless of which kid they asked
// for.
func (c *Cache) Key(ctx context.Context, kid string) (Key, error) {
	if kid == "" {
		return Key{}, ErrKeyNotFound
	}

	now := c.now()

	c.mu.RLock()
	key, ok := c.keys[kid]
	fetchedAt := c.fetchedAt
	c.mu.RUnlock()

	fresh := !fetchedAt.IsZero() && now.Sub(fetchedAt) < c.ttl
	if ok && fresh {
		return key, nil
	}

	// A miss right after a successful fetch means the provider does
	// not publish this kid; refetching would not change the answer.
	if !ok && !fetchedAt.IsZero() && now.Sub(fetchedAt) < c.cooldown {
		return Key{}, ErrKeyNotFound
	}

	if err := c.refresh(ctx); err != nil {
		// Serve stale entries over failing the whole system.
		c.mu.RLock()
		key, ok = c.keys[kid]
		c.mu.RUnlock()
		if ok {
			return key, nil
		}
		return Key{}, err
	}

	c.mu.RLock()
	key, ok = c.keys[kid]
	c.mu.RUnlock()
	if !ok {
		return Key{}, ErrKeyNotFound
	}
	return key, nil
}

// refresh fetches the key set, deduplicating concurrent callers.
func (c *Cache) refresh(ctx context.Context) error {
	ch := c.group.DoChan("refresh", func() (any, error) {
		// Detached from any single request: an aborted caller must
		// not cancel the fetch its waiters share.
		fetchCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		return nil, c.fetch(fetchCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: status %d: %s", ErrSourceUnavailable, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrSourceUnavailable, err)
	}

	keys, err := parseKeySet(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: key set contained no usable keys", ErrSourceUnavailable)
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return nil
}
