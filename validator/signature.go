package validator

import (
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jws"

	"github.com/auth0/go-idtoken/core"
	"github.com/auth0/go-idtoken/token"
)

// VerifySignature checks the token's signature over its original signing
// input. HMAC signatures are compared in constant time. Every failure,
// including key material that does not fit the algorithm, is reported as
// core.ErrSignatureInvalid.
func VerifySignature(tok *token.CompactToken, alg SigningAlgorithm, key VerificationKey) error {
	if alg.kind != key.kind {
		return signatureInvalid(fmt.Sprintf("%s signature cannot be checked with this key type", alg), nil)
	}

	var material any
	switch key.kind {
	case kindSymmetric:
		material = key.secret
	case kindAsymmetric:
		material = key.public
	case kindUnsupported:
		return signatureInvalid("no usable verification key", nil)
	}

	jwaAlg, ok := alg.jwa()
	if !ok {
		return signatureInvalid(fmt.Sprintf("signing algorithm %q is not supported", alg), nil)
	}

	verifier, err := jws.NewVerifier(jwaAlg)
	if err != nil {
		return signatureInvalid("could not create verifier", err)
	}

	if err := verifier.Verify(tok.SigningInput(), tok.Signature(), material); err != nil {
		return signatureInvalid("signature verification failed", err)
	}

	return nil
}

func signatureInvalid(message string, details error) error {
	return core.NewValidationError(core.ErrorCodeSignatureInvalid, message, details)
}
