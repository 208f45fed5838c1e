/*
Package oidc provides OIDC (OpenID Connect) discovery functionality.

It fetches the discovery document an authority publishes at

	https://issuer.example.com/.well-known/openid-configuration

and returns the endpoints the key-set fetcher needs, chiefly jwks_uri.

# Issuer check

The document's issuer field must equal the issuer the caller expects,
character for character. A document that names a different issuer is
rejected so a misrouted or spoofed document cannot redirect key fetches.

# Usage

	issuerURL, _ := url.Parse("https://auth.example.com/")
	client := &http.Client{Timeout: 10 * time.Second}

	endpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, client, *issuerURL, issuerURL.String())
	if err != nil {
	    // network failure, non-2xx status, bad JSON, missing jwks_uri or issuer mismatch
	}

	jwksURI := endpoints.JWKSURI

# Specification

OpenID Connect Discovery 1.0
https://openid.net/specs/openid-connect-discovery-1_0.html
*/
package oidc
