package idtoken

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/auth0/go-idtoken/core"
)

// ErrTokenMissing is passed to the ErrorHandler when a request carries no
// token and credentials are required.
var ErrTokenMissing = errors.New("id token missing")

// ErrTokenExtraction wraps any error returned by the TokenExtractor.
var ErrTokenExtraction = errors.New("error extracting token")

// ErrorHandler is called when the middleware rejects a request. err is
// ErrTokenMissing, an extraction error, or a *core.ValidationError.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DefaultErrorHandler writes a JSON body with the error code. Status codes:
// 400 for a missing or unreadable token, 503 when keys could not be
// retrieved, 401 for every other rejection and 500 for anything else.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status, body := errorResponseFor(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorResponseFor(err error) (int, errorResponse) {
	var ve *core.ValidationError
	switch {
	case errors.Is(err, ErrTokenMissing):
		return http.StatusBadRequest, errorResponse{Code: "token_missing", Message: "ID token is missing."}
	case errors.Is(err, ErrInvalidAuthHeader), errors.Is(err, ErrTokenExtraction):
		return http.StatusBadRequest, errorResponse{Code: "invalid_request", Message: err.Error()}
	case errors.As(err, &ve) && ve.Code == core.ErrorCodeKeyRetrievalFailed:
		return http.StatusServiceUnavailable, errorResponse{Code: ve.Code, Message: "Signing keys are unavailable."}
	case errors.As(err, &ve) && ve.Code != core.ErrorCodeConfigInvalid:
		return http.StatusUnauthorized, errorResponse{Code: ve.Code, Message: "ID token is invalid."}
	default:
		return http.StatusInternalServerError, errorResponse{Code: "internal_error", Message: "Something went wrong while checking the ID token."}
	}
}
