package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/auth0/go-idtoken"
	"github.com/auth0/go-idtoken/core"
)

// ErrorHandler converts validation errors to gRPC status errors.
type ErrorHandler func(error) error

// DefaultErrorHandler maps validation errors to gRPC status codes.
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}

	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		return mapValidationError(validationErr)
	}

	if errors.Is(err, idtoken.ErrTokenMissing) {
		return status.Error(codes.Unauthenticated, "missing credentials")
	}

	if errors.Is(err, ErrMultipleAuthHeaders) ||
		errors.Is(err, ErrInvalidAuthFormat) ||
		errors.Is(err, ErrUnsupportedScheme) {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	// Unknown failures are not allowed to leak details.
	return status.Error(codes.Unauthenticated, "invalid or malformed token")
}

func mapValidationError(err *core.ValidationError) error {
	switch err.Code {
	case core.ErrorCodeKeyRetrievalFailed:
		return status.Error(codes.Unavailable, "unable to verify token")
	case core.ErrorCodeConfigInvalid:
		return status.Error(codes.Internal, "unable to verify token")
	case core.ErrorCodeInvalidIssuer,
		core.ErrorCodeInvalidAudience,
		core.ErrorCodeInvalidAuthorizedParty,
		core.ErrorCodeOrganizationMismatch:
		return status.Error(codes.PermissionDenied, err.Message)
	case core.ErrorCodeTokenExpired:
		return status.Error(codes.Unauthenticated, "token expired")
	case core.ErrorCodeTokenNotYetValid:
		return status.Error(codes.Unauthenticated, "token not yet valid")
	case core.ErrorCodeSignatureInvalid:
		return status.Error(codes.Unauthenticated, "invalid signature")
	case core.ErrorCodeMalformedToken:
		return status.Error(codes.Unauthenticated, "malformed token")
	default:
		return status.Error(codes.Unauthenticated, err.Message)
	}
}
