package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConflict is returned when a user with the same email already exists.
	ErrConflict = errors.New("user already exists")
	// ErrInvalidCredentials is returned for any failed login; it never says which part was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized is returned when a bearer token is missing, malformed, expired or forged.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when an id does not resolve to a live user.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidInput marks input the handlers' validation cannot catch. The
	// wrapping message is shown to the client.
	ErrInvalidInput = errors.New("invalid request")
)

// InvalidInput returns an ErrInvalidInput carrying msg.
func InvalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// Machine-readable error codes.
const (
	CodeUserAlreadyExists  = "USER_ALREADY_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Unknown errors become a
// generic 500 so store details never reach the client.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusBadRequest, ErrConflict.Error(), CodeUserAlreadyExists)
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidCredentials.Error(), CodeInvalidCredentials)
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthorized.Error(), CodeUnauthorized)
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, ErrNotFound.Error(), CodeNotFound)
	case errors.Is(err, ErrInvalidInput):
		return NewHTTPError(http.StatusBadRequest, err.Error(), CodeInvalidRequest)
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", CodeInternal)
	}
}
