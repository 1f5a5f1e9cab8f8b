// Package coordinator executes notification commands against the backend
// and applies their outcomes to the local store.
//
// Every command returns an *async.Future[bool] at once. Failures are
// recorded in the store's per-kind error fields and also carried by the
// future; nothing panics across the command boundary.
//
//	coord := coordinator.New(client, st, manager, sessions)
//	coord.Fetch(notification.DefaultFilter())
//	ok, err := coord.LoadMore().Await()
package coordinator
