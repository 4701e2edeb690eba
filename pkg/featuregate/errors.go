package featuregate

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenMissing is returned when no authentication token is available.
	// It is fatal for the current fetch attempt and never retried.
	ErrTokenMissing = errors.New("authentication token not found")

	// ErrInvalidResponse is returned for a 2xx response whose body does not
	// carry a successful envelope.
	ErrInvalidResponse = errors.New("invalid feature-access response")

	// ErrInvalidFeature is returned for a feature name outside the
	// recognized set.
	ErrInvalidFeature = errors.New("unknown feature")

	// ErrInvalidConfig is returned when required configuration is missing.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// APIError represents a non-2xx response from the feature-access API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}
