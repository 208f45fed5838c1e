package validator

import (
	"context"
	"crypto"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/auth0/go-idtoken/core"
	"github.com/auth0/go-idtoken/jwks"
)

// VerificationKey is the key material a signature is checked against:
// either a shared secret or a public key with its key ID.
type VerificationKey struct {
	kind   keyKind
	secret []byte
	public crypto.PublicKey
	keyID  string
}

// SymmetricKey wraps a shared secret.
func SymmetricKey(secret []byte) VerificationKey {
	return VerificationKey{kind: kindSymmetric, secret: append([]byte(nil), secret...)}
}

// AsymmetricKey wraps a public key.
func AsymmetricKey(public crypto.PublicKey, keyID string) VerificationKey {
	return VerificationKey{kind: kindAsymmetric, public: public, keyID: keyID}
}

// KeyID returns the key ID of an asymmetric key, "" otherwise.
func (k VerificationKey) KeyID() string { return k.keyID }

// SecretEncoding says how a configured client secret is encoded.
type SecretEncoding int

const (
	// SecretPlain uses the secret's bytes as-is.
	SecretPlain SecretEncoding = iota
	// SecretBase64URL decodes the secret from base64url, padded or not.
	SecretBase64URL
)

// ParseSecretEncoding parses "plain" or "base64url".
func ParseSecretEncoding(s string) (SecretEncoding, error) {
	switch strings.ToLower(s) {
	case "", "plain":
		return SecretPlain, nil
	case "base64url":
		return SecretBase64URL, nil
	default:
		return SecretPlain, fmt.Errorf("unknown secret encoding %q", s)
	}
}

// DecodeSecret turns a configured client secret into key bytes.
func DecodeSecret(secret string, encoding SecretEncoding) ([]byte, error) {
	switch encoding {
	case SecretPlain:
		return []byte(secret), nil
	case SecretBase64URL:
		b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(secret, "="))
		if err != nil {
			return nil, fmt.Errorf("could not decode base64url client secret: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown secret encoding %d", encoding)
	}
}

// KeyProvider resolves an authority's public key by kid.
// *jwks.Cache implements it.
type KeyProvider interface {
	LookupKey(ctx context.Context, authority, kid string) (jwks.Key, error)
}

// KeyResolver produces the verification key for a token: the configured
// client secret for HS256, or the authority's published key for RS256.
type KeyResolver struct {
	secret []byte
	keys   KeyProvider
}

// NewKeyResolver builds a resolver. Either argument may be empty, in which
// case tokens needing it are rejected as unsupported.
func NewKeyResolver(secret []byte, keys KeyProvider) *KeyResolver {
	return &KeyResolver{secret: append([]byte(nil), secret...), keys: keys}
}

// Resolve returns the key for alg. kid may be empty.
func (r *KeyResolver) Resolve(ctx context.Context, alg SigningAlgorithm, kid, authority string) (VerificationKey, error) {
	switch alg.kind {
	case kindSymmetric:
		if len(r.secret) == 0 {
			return VerificationKey{}, core.NewValidationError(
				core.ErrorCodeUnsupportedAlgorithm,
				fmt.Sprintf("%s tokens require a client secret but none is configured", alg),
				nil,
			)
		}
		return SymmetricKey(r.secret), nil

	case kindAsymmetric:
		if r.keys == nil {
			return VerificationKey{}, core.NewValidationError(
				core.ErrorCodeUnsupportedAlgorithm,
				fmt.Sprintf("%s tokens require a key provider but none is configured", alg),
				nil,
			)
		}
		key, err := r.keys.LookupKey(ctx, authority, kid)
		if err != nil {
			return VerificationKey{}, err
		}
		return AsymmetricKey(key.Public, key.ID), nil

	case kindUnsupported:
		fallthrough
	default:
		return VerificationKey{}, core.NewValidationError(
			core.ErrorCodeUnsupportedAlgorithm,
			fmt.Sprintf("signing algorithm %q is not supported", alg),
			nil,
		)
	}
}
