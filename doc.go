/*
Package idtoken validates OpenID Connect ID tokens.

A Validator decodes a compact token, resolves the key that should have
signed it, checks the signature over the original bytes and enforces the
caller's requirements on the claims. Every rejection is a
*core.ValidationError with a code of its own.

# Quick Start

	v, err := idtoken.New(
	    idtoken.WithAuthority("https://tenant.auth0.com/"),
	    idtoken.WithClientSecret(clientSecret, validator.SecretPlain),
	)
	if err != nil {
	    log.Fatal(err)
	}

	req, err := validator.NewRequirements(
	    "https://tenant.auth0.com/",
	    clientID,
	    validator.WithAllowedClockSkew(time.Minute),
	    validator.WithNonce(nonce),
	)
	if err != nil {
	    log.Fatal(err)
	}

	claims, err := v.Validate(ctx, rawIDToken, req)
	if err != nil {
	    log.Printf("rejected: %s", core.Code(err))
	    return
	}
	fmt.Println(claims.Subject())

# Keys

HS256 tokens are verified with the client secret given to WithClientSecret.
RS256 tokens are verified with the authority's key set, fetched from
{authority}/.well-known/jwks.json and cached by a jwks.Cache. A token whose
kid is not in a cached set older than the minimum refresh interval causes
one refetch; concurrent validations share a single fetch per authority.

Without WithAuthority the expected issuer of each call is used as the
authority.

# Errors

Use errors.Is with the sentinels in the core package:

	switch {
	case errors.Is(err, core.ErrTokenExpired):
	    // ask the user to sign in again
	case core.Retryable(err):
	    // key retrieval failed; try again later
	case errors.Is(err, core.ErrTokenInvalid):
	    // any other rejection
	}

# HTTP

Middleware validates the token carried by a request and stores the claims
in its context:

	mw, err := idtoken.NewMiddleware(v, req,
	    idtoken.WithTokenExtractor(idtoken.FormTokenExtractor("id_token")),
	)
	if err != nil {
	    log.Fatal(err)
	}
	http.Handle("/callback", mw.Handler(callback))

	func callback(w http.ResponseWriter, r *http.Request) {
	    claims, _ := idtoken.ClaimsFromContext(r.Context())
	    fmt.Fprintln(w, claims.Subject())
	}

Adapters for gin and echo live under framework/, a gRPC interceptor under
integrations/grpc.

# Observability

WithLogger takes a logrus.FieldLogger. WithPrometheus registers
idtoken_validations_total, idtoken_validation_duration_seconds,
idtoken_jwks_fetches_total and idtoken_jwks_fetch_duration_seconds.
WithTracerProvider records an "idtoken.Validate" span per call.
*/
package idtoken
