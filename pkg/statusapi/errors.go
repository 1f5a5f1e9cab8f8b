package statusapi

import "errors"

var (
	// ErrStart indicates that the status server failed to start.
	ErrStart = errors.New("statusapi: failed to start server")
	// ErrShutdown indicates that graceful shutdown failed.
	ErrShutdown = errors.New("statusapi: failed to shutdown server gracefully")
	// ErrAlreadyRunning is returned by a second Run on the same server.
	ErrAlreadyRunning = errors.New("statusapi: server already running")
)
