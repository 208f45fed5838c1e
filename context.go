package idtoken

import "context"

type contextKey int

const claimsKey contextKey = iota

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims.
//
// Example:
//
//	claims, ok := idtoken.ClaimsFromContext(r.Context())
//	if !ok {
//	    http.Error(w, "unauthorized", http.StatusUnauthorized)
//	    return
//	}
//	fmt.Println(claims.Subject())
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(Claims)
	return claims, ok
}
