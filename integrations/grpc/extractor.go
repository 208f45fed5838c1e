package grpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/metadata"
)

// TokenExtractor extracts an ID token from the incoming call context. An
// empty string with a nil error means no token was sent.
type TokenExtractor func(ctx context.Context) (string, error)

var (
	// ErrMultipleAuthHeaders indicates multiple authorization metadata entries were provided.
	ErrMultipleAuthHeaders = errors.New("multiple authorization metadata entries are not allowed")

	// ErrInvalidAuthFormat indicates the authorization metadata format is invalid.
	ErrInvalidAuthFormat = errors.New("invalid authorization metadata format, expected: Bearer <token>")

	// ErrUnsupportedScheme indicates an unsupported authorization scheme was used.
	ErrUnsupportedScheme = errors.New("unsupported authorization scheme, expected: Bearer")
)

// MetadataTokenExtractor reads "Bearer <token>" from the "authorization"
// metadata key. gRPC lowercases incoming keys, so only that spelling is
// checked.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	values := md.Get("authorization")
	switch len(values) {
	case 0:
		return "", nil
	case 1:
	default:
		return "", ErrMultipleAuthHeaders
	}

	parts := strings.Fields(values[0])
	if len(parts) != 2 {
		return "", ErrInvalidAuthFormat
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", ErrUnsupportedScheme
	}

	return parts[1], nil
}

// IDTokenMetadataExtractor reads a bare token from the given metadata
// key, for clients that forward an ID token next to an access token.
func IDTokenMetadataExtractor(key string) TokenExtractor {
	key = strings.ToLower(key)
	return func(ctx context.Context) (string, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return "", nil
		}
		values := md.Get(key)
		switch len(values) {
		case 0:
			return "", nil
		case 1:
			return strings.TrimSpace(values[0]), nil
		default:
			return "", ErrMultipleAuthHeaders
		}
	}
}
