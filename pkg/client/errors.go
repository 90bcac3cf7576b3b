package client

import "fmt"

// ApiError is the base error for non-success API responses. More specific
// error types embed it; callers can errors.As against either.
type ApiError struct {
	StatusCode int
	Message    string
}

func (e *ApiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.StatusCode)
}

// ValidationError is returned for 400 responses carrying field errors.
type ValidationError struct {
	ApiError

	// Fields maps field names to their validation messages.
	Fields map[string][]string
}

// AuthenticationError is returned when the API rejects the credentials
// or the token refresh fails.
type AuthenticationError struct {
	ApiError
}

// AuthorizationError is returned for 403 responses.
type AuthorizationError struct {
	ApiError
}

// NotFoundError is returned for 404 responses.
type NotFoundError struct {
	ApiError
}

// ConflictError is returned for 409 responses.
type ConflictError struct {
	ApiError
}

// ServerError is returned for 5xx responses.
type ServerError struct {
	ApiError
}
