package connection

import (
	"errors"
	"fmt"
)

var (
	// ErrTransportUnavailable marks a dial failure where no streaming
	// transport could be established at all. Dialers wrap it.
	ErrTransportUnavailable = errors.New("connection: transport unavailable")

	// ErrHandshake marks a failed protocol handshake on an open transport.
	ErrHandshake = errors.New("connection: handshake failed")

	// ErrEmptySchedule is returned when a reconnect schedule has no entries.
	ErrEmptySchedule = errors.New("connection: empty reconnect schedule")
)

// NoCredentialError is returned by Start when no token is present.
type NoCredentialError struct{}

func (e *NoCredentialError) Error() string {
	return "connection: no credential present"
}

// TransitionError reports an event that is not legal in the current state.
type TransitionError struct {
	From  State
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("connection: no transition from %s on %s", e.From, e.Event)
}

func IsNoCredentialError(err error) bool {
	var e *NoCredentialError
	return errors.As(err, &e)
}

func IsTransitionError(err error) bool {
	var e *TransitionError
	return errors.As(err, &e)
}
