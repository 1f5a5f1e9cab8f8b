// Package async provides the Future type used as the handle of every command
// the notification client accepts.
//
// Commands never block the caller: they return a *Future immediately and the
// outcome is observed either through the store subscription or, when the
// caller cares about this particular command, by awaiting the future.
//
//	f := coord.Fetch(filter)
//	applied, err := f.AwaitWithTimeout(5 * time.Second)
//
// A Future is completed exactly once. NewPromise hands the completion side to
// an existing worker; Async spawns a goroutine for a one-off computation.
package async
