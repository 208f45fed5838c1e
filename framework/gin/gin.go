// Package idtokengin adapts idtoken.Middleware to gin.
package idtokengin

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/auth0/go-idtoken"
)

// DefaultClaimsKey is the gin context key claims are stored under.
const DefaultClaimsKey = "idtoken"

var (
	ErrMissingClaims = errors.New("no id token claims found in context")
	ErrInvalidClaims = errors.New("invalid id token claims type")
)

type config struct {
	errorHandler func(*gin.Context, error)
	contextKey   string
}

// Option configures the gin middleware.
type Option func(*config)

// WithErrorHandler sets a custom error handler for the middleware. The
// handler must abort the context.
func WithErrorHandler(handler func(*gin.Context, error)) Option {
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

// New returns a gin handler that validates each request with mw. Claims
// are stored under the context key and in the request context.
func New(mw *idtoken.Middleware, opts ...Option) gin.HandlerFunc {
	cfg := &config{
		errorHandler: defaultErrorHandler,
		contextKey:   DefaultClaimsKey,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		claims, err := mw.CheckRequest(c.Request)
		if err != nil {
			cfg.errorHandler(c, err)
			return
		}

		if claims != nil {
			c.Set(cfg.contextKey, claims)
			c.Request = c.Request.WithContext(idtoken.WithClaims(c.Request.Context(), claims))
		}
		c.Next()
	}
}

func defaultErrorHandler(c *gin.Context, err error) {
	idtoken.DefaultErrorHandler(c.Writer, c.Request, err)
	c.Abort()
}

// GetClaims returns the claims stored by the middleware. An empty
// contextKey means DefaultClaimsKey.
func GetClaims(c *gin.Context, contextKey string) (idtoken.Claims, error) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingClaims
	}

	claims, ok := value.(idtoken.Claims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
