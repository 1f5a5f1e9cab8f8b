package coordinator

import (
	"errors"

	"github.com/dmitrymomot/notifysync/pkg/api"
)

var (
	// ErrUnknownLevel is reported by Send and Broadcast for a level outside
	// Warning, Information and Error.
	ErrUnknownLevel = errors.New("coordinator: unknown notification level")

	// ErrClosed is returned by commands issued after Close.
	ErrClosed = errors.New("coordinator: closed")
)

// displayMessage is the text recorded in the store for a failed command.
func displayMessage(err error) string {
	if e, ok := api.AsError(err); ok {
		return e.Display()
	}
	return err.Error()
}
