package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/auth0/go-idtoken/internal/oidc"
)

// maxDocumentSize limits the key-set response body. 1MB is generous for a
// JWKS (typically <10KB).
const maxDocumentSize = 1024 * 1024

// Fetcher retrieves an authority's published key set. The returned duration
// is the lifetime the authority advertised for the document, or 0 if none.
type Fetcher interface {
	Fetch(ctx context.Context, authority string) ([]Key, time.Duration, error)
}

// HTTPFetcher fetches key-set documents over HTTP. By default the document
// is read from {authority}/.well-known/jwks.json; with discovery enabled the
// jwks_uri of the authority's OIDC discovery document is used instead.
type HTTPFetcher struct {
	Client    *http.Client
	Discovery bool
}

// NewHTTPFetcher returns an HTTPFetcher using client, or a client with a 30s
// timeout when client is nil.
func NewHTTPFetcher(client *http.Client, discovery bool) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{Client: client, Discovery: discovery}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, authority string) ([]Key, time.Duration, error) {
	jwksURI, err := f.jwksURI(ctx, authority)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, 0, fmt.Errorf("request to %s returned status %d", jwksURI, resp.StatusCode)
	}

	set, err := jwk.ParseReader(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse JWKS: %w", err)
	}

	keys, err := publicKeys(set)
	if err != nil {
		return nil, 0, err
	}

	return keys, parseCacheControl(resp.Header.Get("Cache-Control")), nil
}

func (f *HTTPFetcher) jwksURI(ctx context.Context, authority string) (string, error) {
	authorityURL, err := url.Parse(authority)
	if err != nil {
		return "", fmt.Errorf("could not parse authority URL: %w", err)
	}
	if authorityURL.Scheme == "" || authorityURL.Host == "" {
		return "", fmt.Errorf("authority URL %q must be absolute", authority)
	}

	if f.Discovery {
		endpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, f.Client, *authorityURL, authority)
		if err != nil {
			return "", err
		}
		return endpoints.JWKSURI, nil
	}

	authorityURL.Path = path.Join("/", authorityURL.Path, ".well-known/jwks.json")
	return authorityURL.String(), nil
}

// publicKeys converts a parsed set into raw public keys, skipping keys
// published for encryption only.
func publicKeys(set jwk.Set) ([]Key, error) {
	keys := make([]Key, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		k, ok := set.Key(i)
		if !ok {
			continue
		}
		if k.KeyUsage() == string(jwk.ForEncryption) {
			continue
		}

		pub, err := jwk.PublicKeyOf(k)
		if err != nil {
			return nil, fmt.Errorf("key %q is not usable as a public key: %w", k.KeyID(), err)
		}

		var raw any
		if err := pub.Raw(&raw); err != nil {
			return nil, fmt.Errorf("could not export key %q: %w", k.KeyID(), err)
		}

		var alg string
		if k.Algorithm() != nil {
			alg = k.Algorithm().String()
		}

		keys = append(keys, Key{ID: k.KeyID(), Algorithm: alg, Public: raw})
	}
	return keys, nil
}

// parseCacheControl extracts max-age from a Cache-Control header.
// Returns 0 if max-age is not present, invalid, or unreasonable.
//
// Limits:
//   - Minimum: 1 second
//   - Maximum: 7 days
//   - Only accepts positive integers
func parseCacheControl(cacheControl string) time.Duration {
	const (
		maxAgePrefix = "max-age="
		minTTL       = 1 * time.Second
		maxTTL       = 7 * 24 * time.Hour
	)

	// Handles: "max-age=3600", "public, max-age=3600", "max-age=3600, must-revalidate"
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, maxAgePrefix) {
			continue
		}

		seconds, err := strconv.ParseInt(strings.TrimPrefix(directive, maxAgePrefix), 10, 64)
		if err != nil || seconds <= 0 {
			continue
		}

		ttl := time.Duration(seconds) * time.Second
		if ttl < minTTL || ttl > maxTTL {
			return 0
		}
		return ttl
	}

	return 0
}
