package signalr

import "errors"

var (
	// ErrInvalidHubURL is returned when the hub address cannot be built.
	ErrInvalidHubURL = errors.New("signalr: invalid hub url")

	// ErrServerTimeout ends a channel when nothing arrived within the
	// server timeout.
	ErrServerTimeout = errors.New("signalr: server timeout elapsed without receiving a message")

	// ErrServerClosed ends a channel when the hub sent a close message.
	ErrServerClosed = errors.New("signalr: server closed the connection")
)
