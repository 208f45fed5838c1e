// Package idtokenecho adapts idtoken.Middleware to echo.
package idtokenecho

import (
	"github.com/labstack/echo/v4"

	"github.com/auth0/go-idtoken"
)

// DefaultClaimsKey is the echo context key claims are stored under.
const DefaultClaimsKey = "idtoken"

type config struct {
	errorHandler func(echo.Context, error) error
	contextKey   string
}

// Option configures the echo middleware.
type Option func(*config)

// WithErrorHandler sets a custom error handler. Its return value is
// returned from the middleware.
func WithErrorHandler(handler func(echo.Context, error) error) Option {
	return func(c *config) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithContextKey sets the key claims are stored under.
func WithContextKey(key string) Option {
	return func(c *config) {
		if key != "" {
			c.contextKey = key
		}
	}
}

// New returns echo middleware that validates each request with mw.
func New(mw *idtoken.Middleware, opts ...Option) echo.MiddlewareFunc {
	cfg := &config{
		errorHandler: defaultErrorHandler,
		contextKey:   DefaultClaimsKey,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := mw.CheckRequest(c.Request())
			if err != nil {
				return cfg.errorHandler(c, err)
			}

			if claims != nil {
				c.Set(cfg.contextKey, claims)
				c.SetRequest(c.Request().WithContext(idtoken.WithClaims(c.Request().Context(), claims)))
			}
			return next(c)
		}
	}
}

func defaultErrorHandler(c echo.Context, err error) error {
	idtoken.DefaultErrorHandler(c.Response(), c.Request(), err)
	return nil
}

// GetClaims extracts the claims from the echo context.
func GetClaims(c echo.Context, contextKey string) (idtoken.Claims, bool) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	claims, ok := c.Get(contextKey).(idtoken.Claims)
	return claims, ok
}
