package idtoken

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/auth0/go-idtoken/core"
	"github.com/auth0/go-idtoken/jwks"
	"github.com/auth0/go-idtoken/token"
	"github.com/auth0/go-idtoken/validator"
)

// Claims is the verified payload of an ID token.
type Claims = validator.Claims

// Requirements are the expectations a token is checked against.
type Requirements = validator.Requirements

// Validator validates ID tokens. It is safe for concurrent use; the only
// shared state is the key-set cache it delegates to.
type Validator struct {
	authority string
	secret    []byte
	keys      validator.KeyProvider
	resolver  *validator.KeyResolver

	clock   core.Clock
	logger  logrus.FieldLogger
	metrics Metrics
	tracer  trace.Tracer

	// Used only when no key provider is supplied.
	httpClient *http.Client
	discovery  bool
	cacheOpts  []jwks.Option
}

// New constructs a Validator.
//
// Without WithKeyProvider a jwks.Cache is created that shares the
// Validator's clock, logger and metrics.
//
// Example:
//
//	v, err := idtoken.New(
//	    idtoken.WithAuthority("https://tenant.auth0.com/"),
//	    idtoken.WithClientSecret(secret, validator.SecretPlain),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		clock:   core.SystemClock,
		logger:  discardLogger(),
		metrics: NoopMetrics{},
		tracer:  defaultTracer(),
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid option", err)
		}
	}

	if v.keys == nil {
		cache, err := jwks.New(v.defaultCacheOptions()...)
		if err != nil {
			return nil, err
		}
		v.keys = cache
	}

	v.resolver = validator.NewKeyResolver(v.secret, v.keys)

	return v, nil
}

func (v *Validator) defaultCacheOptions() []jwks.Option {
	opts := []jwks.Option{
		jwks.WithClock(v.clock),
		jwks.WithLogger(v.logger),
		jwks.WithFetchObserver(v.metrics.ObserveKeyFetch),
	}
	if v.httpClient != nil {
		opts = append(opts, jwks.WithHTTPClient(v.httpClient, v.discovery))
	}
	return append(opts, v.cacheOpts...)
}

// Validate checks tokenString against req and returns its claims.
//
// Stages run in order, decode, key resolution, signature and claims, and
// the first failure is returned as a *core.ValidationError. No key lookup
// or signature work happens for a token that does not decode.
func (v *Validator) Validate(ctx context.Context, tokenString string, req Requirements) (Claims, error) {
	ctx, span := v.tracer.Start(ctx, spanName)
	defer span.End()

	start := time.Now()
	tok, claims, err := v.validate(ctx, tokenString, req)

	v.metrics.ObserveValidation(outcome(err), time.Since(start))
	recordSpan(span, tok, err)
	v.logOutcome(tok, claims, err)

	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *Validator) validate(ctx context.Context, tokenString string, req Requirements) (*token.CompactToken, Claims, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	tok, err := token.Decode(tokenString)
	if err != nil {
		return nil, nil, err
	}

	alg, err := validator.SelectAlgorithm(tok.Algorithm(), req.Algorithm)
	if err != nil {
		return tok, nil, err
	}

	key, err := v.resolver.Resolve(ctx, alg, tok.KeyID(), v.authorityFor(req))
	if err != nil {
		return tok, nil, err
	}

	if err := validator.VerifySignature(tok, alg, key); err != nil {
		return tok, nil, err
	}

	claims := Claims(tok.Payload())
	if err := validator.ValidateClaims(claims, req, v.clock.Now()); err != nil {
		return tok, nil, err
	}

	return tok, claims, nil
}

// authorityFor returns the configured authority, falling back to the
// expected issuer.
func (v *Validator) authorityFor(req Requirements) string {
	if v.authority != "" {
		return v.authority
	}
	return req.Issuer
}
