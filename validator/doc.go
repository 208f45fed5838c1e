/*
Package validator holds the pieces that decide whether a decoded ID token can
be trusted: algorithm selection, key resolution, signature verification and
claims enforcement.

The package is deliberately small and free of I/O except through the
KeyProvider handed to a KeyResolver; the root idtoken package wires these
together with the jwks cache.

# Algorithms

Only two signing algorithms are accepted:

  - HS256, verified with the client secret
  - RS256, verified with a public key published by the authority

Any other "alg" header, "none" included, is rejected with
core.ErrUnsupportedAlgorithm before a key is looked up.

# Requirements

	req, err := validator.NewRequirements(
	    "https://tenant.auth0.com/",
	    "my-client-id",
	    validator.WithAllowedClockSkew(time.Minute),
	    validator.WithNonce(nonce),
	    validator.WithMaxAge(time.Hour),
	    validator.WithOrganization("org_123"),
	)

The issuer is compared exactly. Pass it in the form the authority emits,
trailing slash included.

# Claims

ValidateClaims runs its checks in a fixed order and stops at the first
failure:

 1. iss
 2. aud
 3. azp, when aud has more than one entry
 4. exp
 5. iat
 6. nbf, when present
 7. nonce, when required
 8. auth_time, when a max age is required
 9. org_id or org_name, when required

Each failure has its own error code (see the core package) so callers can
tell an expired token from one meant for another audience.
*/
package validator
