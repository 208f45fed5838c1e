package validator

import (
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"

	"github.com/auth0/go-idtoken/core"
)

// keyKind is the kind of key material an algorithm verifies with.
type keyKind int

const (
	kindUnsupported keyKind = iota
	kindSymmetric
	kindAsymmetric
)

// SigningAlgorithm is a token signing algorithm. It is a closed set: HS256,
// RS256, or an unsupported algorithm that carries its name for reporting.
// The zero value means "no algorithm" and is used by Requirements to leave
// the algorithm unconstrained.
type SigningAlgorithm struct {
	name string
	kind keyKind
}

// Signature algorithms
var (
	HS256 = SigningAlgorithm{name: "HS256", kind: kindSymmetric}  // HMAC using SHA-256
	RS256 = SigningAlgorithm{name: "RS256", kind: kindAsymmetric} // RSASSA-PKCS-v1.5 using SHA-256
)

// ParseAlgorithm maps a header "alg" value to a SigningAlgorithm. Matching
// is exact and case-sensitive; anything else, "none" included, is returned
// as an unsupported algorithm.
func ParseAlgorithm(name string) SigningAlgorithm {
	switch name {
	case HS256.name:
		return HS256
	case RS256.name:
		return RS256
	default:
		return SigningAlgorithm{name: name, kind: kindUnsupported}
	}
}

// String returns the algorithm name.
func (a SigningAlgorithm) String() string { return a.name }

// IsZero reports whether a is the zero value.
func (a SigningAlgorithm) IsZero() bool { return a == SigningAlgorithm{} }

// Supported reports whether tokens signed with a can be verified.
func (a SigningAlgorithm) Supported() bool { return a.kind != kindUnsupported }

// Symmetric reports whether a verifies with a shared secret.
func (a SigningAlgorithm) Symmetric() bool { return a.kind == kindSymmetric }

func (a SigningAlgorithm) jwa() (jwa.SignatureAlgorithm, bool) {
	switch a.kind {
	case kindSymmetric:
		return jwa.HS256, true
	case kindAsymmetric:
		return jwa.RS256, true
	case kindUnsupported:
		return "", false
	default:
		return "", false
	}
}

// SelectAlgorithm checks a token's "alg" against the allow-list and, when
// expected is set, against the caller's expectation. Allow-list rejection
// comes first so "none" is always reported as unsupported.
func SelectAlgorithm(headerAlg string, expected SigningAlgorithm) (SigningAlgorithm, error) {
	alg := ParseAlgorithm(headerAlg)
	if !alg.Supported() {
		return SigningAlgorithm{}, core.NewValidationError(
			core.ErrorCodeUnsupportedAlgorithm,
			fmt.Sprintf("signing algorithm %q is not supported", headerAlg),
			nil,
		)
	}

	if !expected.IsZero() && alg != expected {
		return SigningAlgorithm{}, core.NewValidationError(
			core.ErrorCodeUnexpectedAlgorithm,
			fmt.Sprintf("expected %q signing algorithm but token specified %q", expected, alg),
			nil,
		)
	}

	return alg, nil
}
