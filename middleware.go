package idtoken

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/auth0/go-idtoken/core"
)

// Middleware validates the ID token carried by each request and stores the
// claims in the request context.
type Middleware struct {
	validator           *Validator
	requirements        Requirements
	tokenExtractor      TokenExtractor
	errorHandler        ErrorHandler
	credentialsOptional bool
	validateOnOptions   bool
	exclusionHandler    func(r *http.Request) bool
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware) error

// NewMiddleware builds a Middleware that checks every token against req.
//
// Example:
//
//	mw, err := idtoken.NewMiddleware(v, req)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.Handle("/callback", mw.Handler(callbackHandler))
func NewMiddleware(v *Validator, req Requirements, opts ...MiddlewareOption) (*Middleware, error) {
	if v == nil {
		return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "validator cannot be nil", nil)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m := &Middleware{
		validator:         v,
		requirements:      req,
		tokenExtractor:    AuthHeaderTokenExtractor,
		errorHandler:      DefaultErrorHandler,
		validateOnOptions: true,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid middleware option", err)
		}
	}

	return m, nil
}

// Handler wraps next. Rejected requests go to the ErrorHandler and never
// reach next.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exclusionHandler != nil && m.exclusionHandler(r) {
			next.ServeHTTP(w, r)
			return
		}
		if !m.validateOnOptions && r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.CheckRequest(r)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}
		if claims != nil {
			r = r.WithContext(WithClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

// CheckRequest extracts and validates the request's token. It returns nil
// claims and no error when no token is present and credentials are
// optional.
func (m *Middleware) CheckRequest(r *http.Request) (Claims, error) {
	tokenString, err := m.tokenExtractor(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExtraction, err)
	}

	if tokenString == "" {
		if m.credentialsOptional {
			return nil, nil
		}
		return nil, ErrTokenMissing
	}

	return m.validator.Validate(r.Context(), tokenString, m.requirements)
}

// WithTokenExtractor sets where the token is read from. The default is
// AuthHeaderTokenExtractor.
func WithTokenExtractor(extractor TokenExtractor) MiddlewareOption {
	return func(m *Middleware) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		m.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets the handler for rejected requests.
func WithErrorHandler(handler ErrorHandler) MiddlewareOption {
	return func(m *Middleware) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		m.errorHandler = handler
		return nil
	}
}

// WithCredentialsOptional lets requests without a token through, without
// claims in their context. Requests with a bad token are still rejected.
func WithCredentialsOptional(optional bool) MiddlewareOption {
	return func(m *Middleware) error {
		m.credentialsOptional = optional
		return nil
	}
}

// WithValidateOnOptions controls whether OPTIONS requests are validated.
// Default: true.
func WithValidateOnOptions(validate bool) MiddlewareOption {
	return func(m *Middleware) error {
		m.validateOnOptions = validate
		return nil
	}
}

// WithExclusionHandler skips validation for requests it returns true for.
func WithExclusionHandler(handler func(r *http.Request) bool) MiddlewareOption {
	return func(m *Middleware) error {
		if handler == nil {
			return errors.New("exclusion handler cannot be nil")
		}
		m.exclusionHandler = handler
		return nil
	}
}
