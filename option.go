package idtoken

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/auth0/go-idtoken/core"
	"github.com/auth0/go-idtoken/jwks"
	"github.com/auth0/go-idtoken/validator"
)

// Option configures the Validator.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithAuthority sets the authority whose published keys verify RS256
// tokens. When unset, the expected issuer of each call is used.
func WithAuthority(authority string) Option {
	return func(v *Validator) error {
		if authority == "" {
			return errors.New("authority cannot be empty")
		}
		u, err := url.Parse(authority)
		if err != nil {
			return fmt.Errorf("invalid authority URL: %w", err)
		}
		if !u.IsAbs() {
			return fmt.Errorf("authority URL must be absolute: %q", authority)
		}
		v.authority = authority
		return nil
	}
}

// WithClientSecret sets the secret that verifies HS256 tokens. Without it
// HS256 tokens are rejected as unsupported.
func WithClientSecret(secret string, encoding validator.SecretEncoding) Option {
	return func(v *Validator) error {
		if secret == "" {
			return errors.New("client secret cannot be empty")
		}
		decoded, err := validator.DecodeSecret(secret, encoding)
		if err != nil {
			return err
		}
		if len(decoded) == 0 {
			return errors.New("client secret decodes to no bytes")
		}
		v.secret = decoded
		return nil
	}
}

// WithKeyProvider replaces the built-in key-set cache.
func WithKeyProvider(provider validator.KeyProvider) Option {
	return func(v *Validator) error {
		if provider == nil {
			return errors.New("key provider cannot be nil")
		}
		v.keys = provider
		return nil
	}
}

// WithHTTPClient sets the client the built-in cache fetches key sets with.
// With discovery enabled the key-set location is read from the authority's
// OpenID configuration instead of the default well-known path.
func WithHTTPClient(client *http.Client, discovery bool) Option {
	return func(v *Validator) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		v.httpClient = client
		v.discovery = discovery
		return nil
	}
}

// WithKeyCacheOptions passes extra options to the built-in cache. They are
// applied after the Validator's own, so they win.
func WithKeyCacheOptions(opts ...jwks.Option) Option {
	return func(v *Validator) error {
		v.cacheOpts = append(v.cacheOpts, opts...)
		return nil
	}
}

// WithClock sets the clock for claim time checks and cache freshness.
func WithClock(clock core.Clock) Option {
	return func(v *Validator) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		v.clock = clock
		return nil
	}
}

// WithLogger sets the logger. Rejections are logged at debug level.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(v *Validator) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		v.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics Metrics) Option {
	return func(v *Validator) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		v.metrics = metrics
		return nil
	}
}

// WithPrometheus registers the Prometheus collectors on reg and records
// to them.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(v *Validator) error {
		m, err := NewPrometheusMetrics(reg)
		if err != nil {
			return err
		}
		v.metrics = m
		return nil
	}
}

// WithTracerProvider sets where validation spans are sent.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(v *Validator) error {
		if tp == nil {
			return errors.New("tracer provider cannot be nil")
		}
		v.tracer = tp.Tracer(tracerName)
		return nil
	}
}
