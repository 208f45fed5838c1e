package jwks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/auth0/go-idtoken/core"
)

const (
	// DefaultMinRefreshInterval is how old a key set must be before a lookup
	// for an unknown kid may trigger a re-fetch.
	DefaultMinRefreshInterval = 30 * time.Second

	// DefaultTTL is how long a fetched key set is served before it is
	// refreshed. A longer Cache-Control max-age from the authority wins.
	DefaultTTL = 15 * time.Minute
)

// FetchObserver is notified after every remote fetch attempt.
type FetchObserver func(authority string, duration time.Duration, err error)

// Cache holds one key-set snapshot per authority and fetches on demand.
//
// Readers of a fresh snapshot only take a read lock. Fetches are collapsed
// per authority, so concurrent misses for the same authority share a single
// in-flight request while other authorities proceed independently.
type Cache struct {
	fetcher            Fetcher
	clock              core.Clock
	minRefreshInterval time.Duration
	ttl                time.Duration
	logger             logrus.FieldLogger
	observer           FetchObserver

	mu      sync.RWMutex
	entries map[string]*KeySet

	flights singleflight.Group
}

// New builds a Cache. Without WithFetcher it fetches over HTTP with a 30s
// timeout client.
func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		clock:              core.SystemClock,
		minRefreshInterval: DefaultMinRefreshInterval,
		ttl:                DefaultTTL,
		logger:             discardLogger(),
		entries:            make(map[string]*KeySet),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid key cache option", err)
		}
	}

	if c.fetcher == nil {
		c.fetcher = NewHTTPFetcher(nil, false)
	}

	return c, nil
}

// KeySet returns the authority's current key set, fetching it when the
// authority has not been seen or its snapshot has expired. If refreshing an
// expired snapshot fails, the stale snapshot is returned.
func (c *Cache) KeySet(ctx context.Context, authority string) (*KeySet, error) {
	current := c.load(authority)
	if current != nil && c.clock.Now().Before(current.expiresAt) {
		return current, nil
	}

	set, err := c.refresh(ctx, authority, current)
	if err != nil {
		if current != nil {
			c.logger.WithError(err).WithField("authority", authority).Warn("serving stale key set after failed refresh")
			return current, nil
		}
		return nil, err
	}
	return set, nil
}

// LookupKey resolves kid against the authority's key set. An empty kid
// selects the only key of a single-key set.
//
// When kid is missing from a snapshot older than the minimum refresh
// interval, the set is fetched again once and the lookup retried once.
func (c *Cache) LookupKey(ctx context.Context, authority, kid string) (Key, error) {
	set, err := c.KeySet(ctx, authority)
	if err != nil {
		return Key{}, err
	}

	if key, ok := set.Select(kid); ok {
		return key, nil
	}

	if kid == "" {
		return Key{}, core.NewValidationError(
			core.ErrorCodeKeyNotFound,
			fmt.Sprintf("token has no kid and the key set holds %d keys", set.Len()),
			nil,
		)
	}

	if c.clock.Now().Sub(set.fetchedAt) < c.minRefreshInterval {
		return Key{}, keyNotFound(kid)
	}

	c.logger.WithFields(logrus.Fields{"authority": authority, "kid": kid}).Debug("kid not in key set, refetching")

	set, err = c.refresh(ctx, authority, set)
	if err != nil {
		return Key{}, err
	}

	if key, ok := set.Select(kid); ok {
		return key, nil
	}
	return Key{}, keyNotFound(kid)
}

// Invalidate drops the authority's snapshot so the next lookup fetches.
func (c *Cache) Invalidate(authority string) {
	c.mu.Lock()
	delete(c.entries, authority)
	c.mu.Unlock()
}

func (c *Cache) load(authority string) *KeySet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[authority]
}

// refresh fetches the authority's key set unless another caller replaced
// seen while this one waited, in which case that newer snapshot is used.
func (c *Cache) refresh(ctx context.Context, authority string, seen *KeySet) (*KeySet, error) {
	result, err, _ := c.flights.Do(authority, func() (any, error) {
		if current := c.load(authority); current != nil && current != seen {
			return current, nil
		}

		start := c.clock.Now()
		keys, maxAge, err := c.fetcher.Fetch(ctx, authority)
		duration := c.clock.Now().Sub(start)

		if c.observer != nil {
			c.observer(authority, duration, err)
		}
		if err != nil {
			c.logger.WithError(err).WithField("authority", authority).Debug("key set fetch failed")
			return nil, core.NewValidationError(
				core.ErrorCodeKeyRetrievalFailed,
				fmt.Sprintf("could not fetch key set for %s", authority),
				err,
			)
		}

		ttl := c.ttl
		if maxAge > ttl {
			ttl = maxAge
		}

		now := c.clock.Now()
		set := newKeySet(authority, keys, now, now.Add(ttl))

		c.mu.Lock()
		c.entries[authority] = set
		c.mu.Unlock()

		c.logger.WithFields(logrus.Fields{
			"authority": authority,
			"keys":      set.Len(),
			"duration":  duration,
		}).Debug("key set fetched")

		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*KeySet), nil
}

func keyNotFound(kid string) error {
	return core.NewValidationError(
		core.ErrorCodeKeyNotFound,
		fmt.Sprintf("no key with kid %q in key set", kid),
		nil,
	)
}
