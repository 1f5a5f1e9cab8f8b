// Package store holds the client side notification state: the loaded
// notifications, the backend total, the unread count, the active filter and
// per-command in-flight flags and errors.
//
// The unread count is maintained incrementally. It is recounted only when a
// fetch result replaces the whole sequence, so after ApplyFetchResult with
// replace set it always equals the number of unread items.
//
// Observers never read the store directly; they subscribe and receive
// Snapshot copies:
//
//	sub := st.Subscribe(ctx)
//	for snap := range sub.Receive() {
//	    render(snap.Items, snap.UnreadCount)
//	}
package store
