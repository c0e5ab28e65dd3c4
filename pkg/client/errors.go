package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrCredentialsMissing is returned by New when the username or
	// password is absent. No client is created.
	ErrCredentialsMissing = errors.New("credentials not provided")

	// ErrNotConnected is returned by Pull when invoked on a client whose
	// credentials were never set. Unreachable through New, but checked
	// before any network call.
	ErrNotConnected = errors.New("not connected")
)

// StatusError reports a non-success HTTP status. It is only surfaced in
// strict mode; by default a non-200 response yields an empty result set.
type StatusError struct {
	StatusCode int
	Resource   string
	Page       int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Page > 1 {
		return fmt.Sprintf("veracross API returned status %d for %s (page %d)",
			e.StatusCode, e.Resource, e.Page)
	}
	return fmt.Sprintf("veracross API returned status %d for %s", e.StatusCode, e.Resource)
}
