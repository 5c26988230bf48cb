package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrClientNotInitialized signals that a tracker operation was invoked on a
// client that was never constructed with a base URL and HTTP client.
var ErrClientNotInitialized = errors.New("jira client not initialized")

// APIError represents a non-2xx response from the Jira REST API.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("jira api error (%d): %s", e.StatusCode, e.Body)
}

// TransitionNotFoundError reports a requested transition name that matched
// none of the transitions available from the issue's current state. Available
// holds the display names of every legal alternative.
type TransitionNotFoundError struct {
	Requested string
	Available []string
}

// Error implements the error interface.
func (e *TransitionNotFoundError) Error() string {
	return fmt.Sprintf("transition %q not found, available transitions: %s",
		e.Requested, strings.Join(e.Available, ", "))
}
