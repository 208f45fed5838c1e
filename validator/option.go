package validator

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-idtoken/core"
)

// Requirements are the caller's expectations for one ID token. Build them
// with NewRequirements; the zero value is not valid.
type Requirements struct {
	// Issuer must equal the token's "iss" exactly.
	Issuer string
	// Audience must be the token's "aud", or one of its entries.
	Audience string
	// ClockSkew is applied to exp, nbf and auth_time.
	ClockSkew time.Duration
	// Algorithm, when set, is the only signing algorithm accepted.
	Algorithm SigningAlgorithm
	Nonce     string
	// MaxAge, when positive, bounds the time since auth_time.
	MaxAge           time.Duration
	OrganizationID   string
	OrganizationName string
}

// Option is how optional requirements are set up.
// Options return errors to enable validation during construction.
type Option func(*Requirements) error

// NewRequirements builds Requirements for the given issuer and audience.
func NewRequirements(issuer, audience string, opts ...Option) (Requirements, error) {
	req := Requirements{Issuer: issuer, Audience: audience}

	for _, opt := range opts {
		if err := opt(&req); err != nil {
			return Requirements{}, configInvalid(err)
		}
	}

	if err := req.Validate(); err != nil {
		return Requirements{}, err
	}

	return req, nil
}

// Validate reports whether req can be enforced at all.
func (r Requirements) Validate() error {
	switch {
	case r.Issuer == "":
		return configInvalid(errors.New("issuer cannot be empty"))
	case r.Audience == "":
		return configInvalid(errors.New("audience cannot be empty"))
	case r.ClockSkew < 0:
		return configInvalid(errors.New("clock skew cannot be negative"))
	case r.MaxAge < 0:
		return configInvalid(errors.New("max age cannot be negative"))
	case !r.Algorithm.IsZero() && !r.Algorithm.Supported():
		return configInvalid(fmt.Errorf("unsupported signature algorithm: %s", r.Algorithm))
	}

	if _, err := url.Parse(r.Issuer); err != nil {
		return configInvalid(fmt.Errorf("invalid issuer URL: %w", err))
	}

	return nil
}

// WithAllowedClockSkew sets the tolerance for time-based claims.
// If not set, the default is 0 (no clock skew allowed).
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(r *Requirements) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		r.ClockSkew = skew
		return nil
	}
}

// WithAlgorithm restricts tokens to one signing algorithm.
func WithAlgorithm(algorithm SigningAlgorithm) Option {
	return func(r *Requirements) error {
		if !algorithm.Supported() {
			return fmt.Errorf("unsupported signature algorithm: %s", algorithm)
		}
		r.Algorithm = algorithm
		return nil
	}
}

// WithNonce requires the token's "nonce" to match.
func WithNonce(nonce string) Option {
	return func(r *Requirements) error {
		if nonce == "" {
			return errors.New("nonce cannot be empty")
		}
		r.Nonce = nonce
		return nil
	}
}

// WithMaxAge requires an "auth_time" no older than maxAge.
func WithMaxAge(maxAge time.Duration) Option {
	return func(r *Requirements) error {
		if maxAge <= 0 {
			return errors.New("max age must be positive")
		}
		r.MaxAge = maxAge
		return nil
	}
}

// WithOrganization requires the token to belong to an organization.
// Values starting with "org_" are matched against "org_id", anything else
// against "org_name".
func WithOrganization(organization string) Option {
	return func(r *Requirements) error {
		organization = strings.TrimSpace(organization)
		if organization == "" {
			return errors.New("organization cannot be empty")
		}
		if strings.HasPrefix(organization, "org_") {
			r.OrganizationID = organization
		} else {
			r.OrganizationName = organization
		}
		return nil
	}
}

func configInvalid(err error) error {
	return core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid requirements", err)
}
