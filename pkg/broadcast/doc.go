// Package broadcast fans state changes out to observers.
//
// It is the dispatch sink of the notification client: the store publishes
// snapshots and the connection manager publishes status transitions, and
// any number of downstream consumers (a UI, the status API, the CLI) observe
// them through a Subscriber.
//
// Publishing never blocks the producer. Each subscriber owns a bounded
// buffer; when it is full the oldest pending value is discarded, so a slow
// consumer always ends up with the latest value rather than a stale one.
//
//	b := broadcast.NewMemoryBroadcaster[store.Snapshot](1)
//	defer b.Close()
//
//	sub := b.SubscribeFrom(ctx, current)
//	for snap := range sub.Receive() {
//		render(snap)
//	}
package broadcast
