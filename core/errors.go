package core

import "errors"

// ErrTokenInvalid is matched by every ValidationError produced while
// validating a token, regardless of its code.
var ErrTokenInvalid = errors.New("id token invalid")

// Sentinel errors, one per failure kind. A *ValidationError matches the
// sentinel for its Code with errors.Is.
var (
	ErrMalformedToken         = errors.New("malformed token")
	ErrUnsupportedAlgorithm   = errors.New("unsupported signing algorithm")
	ErrUnexpectedAlgorithm    = errors.New("unexpected signing algorithm")
	ErrKeyNotFound            = errors.New("signing key not found")
	ErrKeyRetrievalFailed     = errors.New("signing key retrieval failed")
	ErrSignatureInvalid       = errors.New("signature invalid")
	ErrInvalidIssuer          = errors.New("invalid issuer")
	ErrInvalidAudience        = errors.New("invalid audience")
	ErrInvalidAuthorizedParty = errors.New("invalid authorized party")
	ErrTokenExpired           = errors.New("token expired")
	ErrInvalidIssuedAt        = errors.New("invalid issued at")
	ErrTokenNotYetValid       = errors.New("token not yet valid")
	ErrNonceMismatch          = errors.New("nonce mismatch")
	ErrAuthTimeExceeded       = errors.New("auth time exceeded")
	ErrOrganizationMismatch   = errors.New("organization mismatch")

	// ErrConfigInvalid is returned for construction-time misconfiguration.
	// It does not match ErrTokenInvalid.
	ErrConfigInvalid = errors.New("invalid configuration")
)

// Error codes. They are stable and safe to use as metric labels.
const (
	ErrorCodeMalformedToken         = "malformed_token"
	ErrorCodeUnsupportedAlgorithm   = "unsupported_algorithm"
	ErrorCodeUnexpectedAlgorithm    = "unexpected_algorithm"
	ErrorCodeKeyNotFound            = "key_not_found"
	ErrorCodeKeyRetrievalFailed     = "key_retrieval_failed"
	ErrorCodeSignatureInvalid       = "signature_invalid"
	ErrorCodeInvalidIssuer          = "invalid_issuer"
	ErrorCodeInvalidAudience        = "invalid_audience"
	ErrorCodeInvalidAuthorizedParty = "invalid_authorized_party"
	ErrorCodeTokenExpired           = "token_expired"
	ErrorCodeInvalidIssuedAt        = "invalid_issued_at"
	ErrorCodeTokenNotYetValid       = "token_not_yet_valid"
	ErrorCodeNonceMismatch          = "nonce_mismatch"
	ErrorCodeAuthTimeExceeded       = "auth_time_exceeded"
	ErrorCodeOrganizationMismatch   = "organization_mismatch"
	ErrorCodeConfigInvalid          = "config_invalid"
)

var sentinels = map[string]error{
	ErrorCodeMalformedToken:         ErrMalformedToken,
	ErrorCodeUnsupportedAlgorithm:   ErrUnsupportedAlgorithm,
	ErrorCodeUnexpectedAlgorithm:    ErrUnexpectedAlgorithm,
	ErrorCodeKeyNotFound:            ErrKeyNotFound,
	ErrorCodeKeyRetrievalFailed:     ErrKeyRetrievalFailed,
	ErrorCodeSignatureInvalid:       ErrSignatureInvalid,
	ErrorCodeInvalidIssuer:          ErrInvalidIssuer,
	ErrorCodeInvalidAudience:        ErrInvalidAudience,
	ErrorCodeInvalidAuthorizedParty: ErrInvalidAuthorizedParty,
	ErrorCodeTokenExpired:           ErrTokenExpired,
	ErrorCodeInvalidIssuedAt:        ErrInvalidIssuedAt,
	ErrorCodeTokenNotYetValid:       ErrTokenNotYetValid,
	ErrorCodeNonceMismatch:          ErrNonceMismatch,
	ErrorCodeAuthTimeExceeded:       ErrAuthTimeExceeded,
	ErrorCodeOrganizationMismatch:   ErrOrganizationMismatch,
	ErrorCodeConfigInvalid:          ErrConfigInvalid,
}

// ValidationError wraps ID token validation errors with additional context.
// It provides structured error information that can be used for
// logging, metrics, and asserting on the exact cause of a rejection.
type ValidationError struct {
	// Code is a machine-readable error code (e.g., "token_expired", "signature_invalid")
	Code string

	// Message is a human-readable error message
	Message string

	// Details contains the underlying error
	Details error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error {
	return e.Details
}

// Is reports whether target is the sentinel for e.Code, or ErrTokenInvalid
// for any token rejection.
func (e *ValidationError) Is(target error) bool {
	if target == ErrTokenInvalid {
		return e.Code != ErrorCodeConfigInvalid
	}
	sentinel, ok := sentinels[e.Code]
	return ok && sentinel == target
}

// NewValidationError creates a new ValidationError with the given code and message.
func NewValidationError(code, message string, details error) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Code returns the error code carried by err, or "" when err is nil or not a
// *ValidationError.
func Code(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// Retryable reports whether retrying the whole validation later could succeed.
// Only key resolution failures qualify: KeyRetrievalFailed is transient and
// KeyNotFound may clear once the authority publishes the key.
func Retryable(err error) bool {
	switch Code(err) {
	case ErrorCodeKeyRetrievalFailed, ErrorCodeKeyNotFound:
		return true
	default:
		return false
	}
}
