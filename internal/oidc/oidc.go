package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
)

// maxDocumentSize bounds the discovery document read from the network.
const maxDocumentSize = 1024 * 1024

// WellKnownEndpoints holds the well known OIDC endpoints
type WellKnownEndpoints struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// GetWellKnownEndpointsFromIssuerURL gets the well known endpoints for the
// passed in issuer url. The document's issuer must equal expectedIssuer
// exactly, otherwise its jwks_uri is not trusted.
func GetWellKnownEndpointsFromIssuerURL(
	ctx context.Context,
	client *http.Client,
	issuerURL url.URL,
	expectedIssuer string,
) (*WellKnownEndpoints, error) {
	issuerURL.Path = path.Join(issuerURL.Path, ".well-known/openid-configuration")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuerURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get well-known endpoints: %w", err)
	}

	r, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch well-known endpoints from url %s: %w", issuerURL.String(), err)
	}
	defer r.Body.Close()

	if r.StatusCode < 200 || r.StatusCode > 299 {
		return nil, fmt.Errorf("well-known endpoints request to %s returned status %d", issuerURL.String(), r.StatusCode)
	}

	var wkEndpoints WellKnownEndpoints
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentSize)).Decode(&wkEndpoints); err != nil {
		return nil, fmt.Errorf("failed to decode JSON from well-known endpoints: %w", err)
	}

	if wkEndpoints.Issuer == "" {
		return nil, fmt.Errorf("well-known endpoints are missing required 'issuer' field")
	}
	if wkEndpoints.JWKSURI == "" {
		return nil, fmt.Errorf("well-known endpoints are missing required 'jwks_uri' field")
	}
	if wkEndpoints.Issuer != expectedIssuer {
		return nil, fmt.Errorf("issuer mismatch: expected %q, well-known endpoints report %q", expectedIssuer, wkEndpoints.Issuer)
	}

	return &wkEndpoints, nil
}
