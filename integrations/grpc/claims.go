package grpc

import (
	"context"
	"errors"

	"github.com/auth0/go-idtoken"
)

// ErrNoClaims is returned by GetClaims when the interceptor stored no claims.
var ErrNoClaims = errors.New("no id token claims in context")

// GetClaims returns the claims the interceptor stored in ctx.
//
// Example:
//
//	claims, err := idtokengrpc.GetClaims(ctx)
//	if err != nil {
//	    return nil, status.Error(codes.Internal, "failed to get claims")
//	}
//	fmt.Println(claims.Subject())
func GetClaims(ctx context.Context) (idtoken.Claims, error) {
	claims, ok := idtoken.ClaimsFromContext(ctx)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}

// MustGetClaims is GetClaims that panics. Use only on methods the
// interceptor guards with credentials required.
func MustGetClaims(ctx context.Context) idtoken.Claims {
	claims, err := GetClaims(ctx)
	if err != nil {
		panic(err)
	}
	return claims
}

// HasClaims reports whether ctx carries validated claims.
func HasClaims(ctx context.Context) bool {
	_, ok := idtoken.ClaimsFromContext(ctx)
	return ok
}
