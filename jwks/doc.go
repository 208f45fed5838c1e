/*
Package jwks fetches and caches the public key sets (JWKS) that authorities
publish for verifying RS256 ID token signatures.

# Cache

A Cache keeps one immutable KeySet snapshot per authority URL:

  - A hit returns the snapshot without any network call.
  - A miss performs a single fetch. Concurrent misses for the same
    authority share that fetch; other authorities are never blocked by it.
  - A kid that is not in a snapshot older than the minimum refresh interval
    (default 30s) causes exactly one re-fetch and one retry. Younger
    snapshots fail immediately with core.ErrKeyNotFound, so a stream of
    bogus kids cannot be used to hammer the authority.
  - Failed fetches surface as core.ErrKeyRetrievalFailed and leave the
    previous snapshot in place. Once a snapshot passes its TTL (default 15
    minutes, or a longer Cache-Control max-age) it is refreshed, and served
    stale if that refresh fails.

# Usage

	cache, err := jwks.New(
	    jwks.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}, false),
	    jwks.WithMinRefreshInterval(time.Minute),
	)
	if err != nil {
	    log.Fatal(err)
	}

	key, err := cache.LookupKey(ctx, "https://tenant.auth0.com/", kid)

By default the document is read from {authority}/.well-known/jwks.json.
Pass discovery=true to WithHTTPClient to follow the jwks_uri from the
authority's OIDC discovery document instead.
*/
package jwks
