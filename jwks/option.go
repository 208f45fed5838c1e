package jwks

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/auth0/go-idtoken/core"
)

// Option is how options for the Cache are set up.
// Options return errors to enable validation during construction.
type Option func(*Cache) error

// WithFetcher sets how key-set documents are retrieved.
// Tests use it to plug in a stub transport.
func WithFetcher(f Fetcher) Option {
	return func(c *Cache) error {
		if f == nil {
			return errors.New("fetcher cannot be nil")
		}
		c.fetcher = f
		return nil
	}
}

// WithHTTPClient fetches key sets over HTTP with the given client.
// When discovery is true the jwks_uri is read from the authority's
// .well-known/openid-configuration document.
func WithHTTPClient(client *http.Client, discovery bool) Option {
	return func(c *Cache) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.fetcher = NewHTTPFetcher(client, discovery)
		return nil
	}
}

// WithMinRefreshInterval sets how old a key set must be before an unknown
// kid may trigger a re-fetch. Defaults to 30 seconds.
func WithMinRefreshInterval(d time.Duration) Option {
	return func(c *Cache) error {
		if d < 0 {
			return errors.New("minimum refresh interval cannot be negative")
		}
		c.minRefreshInterval = d
		return nil
	}
}

// WithTTL sets how long a key set is served before it is refreshed.
// Defaults to 15 minutes.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) error {
		if ttl <= 0 {
			return errors.New("TTL must be positive")
		}
		c.ttl = ttl
		return nil
	}
}

// WithClock sets the clock used for snapshot ages.
func WithClock(clock core.Clock) Option {
	return func(c *Cache) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		c.clock = clock
		return nil
	}
}

// WithLogger sets the logger for fetch events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Cache) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithFetchObserver registers a callback invoked after every remote fetch.
func WithFetchObserver(observer FetchObserver) Option {
	return func(c *Cache) error {
		if observer == nil {
			return errors.New("fetch observer cannot be nil")
		}
		c.observer = observer
		return nil
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
