package api

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthExpired is reported for a 401 carrying the _abperrorformat
	// marker. The unauthorized hook has already cleared the credential.
	ErrAuthExpired = errors.New("api: authentication expired")

	// ErrRequestFailed wraps transport errors where no response was received.
	ErrRequestFailed = errors.New("api: request failed")

	// ErrUnknownLevel is returned by send operations for a level outside
	// Warning, Information and Error.
	ErrUnknownLevel = errors.New("api: unknown notification level")

	// ErrInvalidBaseURL is returned by New for an unusable base URL.
	ErrInvalidBaseURL = errors.New("api: invalid base url")

	// ErrTenantUnavailable is returned when a tenant name does not resolve.
	ErrTenantUnavailable = errors.New("api: tenant is not available")
)

// Error is a displayable failure: a title and message pair taken from the
// backend's error body or, when there is none, from the status code.
type Error struct {
	Status  int
	Title   string
	Message string
	// Err is a sentinel classifying the failure, e.g. ErrAuthExpired.
	Err error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Title)
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Title, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Display returns the text shown to a user.
func (e *Error) Display() string {
	if e.Message == "" {
		return e.Title
	}
	return e.Title + "\n" + e.Message
}

// IsAuthExpired reports whether err came from an expired or revoked token.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// AsError extracts the *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
