package store

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrymomot/notifysync/pkg/broadcast"
	"github.com/dmitrymomot/notifysync/pkg/notification"
)

// Store is the local notification state. Every operation runs under one
// lock, and every change publishes a Snapshot to subscribers.
type Store struct {
	mu    sync.Mutex
	state Snapshot
	ids   map[string]struct{}
	subs  *broadcast.MemoryBroadcaster[Snapshot]

	// epoch counts Clear calls.
	epoch uint64
}

// New creates an empty store using the default filter.
func New() *Store {
	return &Store{
		state: Snapshot{Filter: notification.DefaultFilter()},
		ids:   make(map[string]struct{}),
		subs:  broadcast.NewMemoryBroadcaster[Snapshot](1),
	}
}

// Subscribe delivers the current snapshot and then the latest one after each
// change. A slow subscriber skips intermediate snapshots.
func (s *Store) Subscribe(ctx context.Context) broadcast.Subscriber[Snapshot] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs.SubscribeFrom(ctx, s.snapshotLocked())
}

// Close releases subscribers.
func (s *Store) Close() error {
	return s.subs.Close()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ApplyIncoming prepends a pushed notification unless its ID is already
// present. It reports whether the store changed.
func (s *Store) ApplyIncoming(n notification.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[n.ID]; ok {
		return false
	}

	s.ids[n.ID] = struct{}{}
	s.state.Items = append([]notification.Notification{n}, s.state.Items...)
	s.state.TotalCount++
	if !n.Read {
		s.state.UnreadCount++
	}
	s.publishLocked()
	return true
}

// ApplyFetchResult stores one page. With replace the page becomes the whole
// sequence and the unread count is recounted over it; otherwise the page is
// appended and only its new unread items are counted. An item whose ID is
// already stored, including a repeat within the same page, is skipped, so
// the unread count always matches the stored items.
func (s *Store) ApplyFetchResult(items []notification.Notification, totalCount int, replace bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyPageLocked(items, totalCount, replace)
}

// ApplyFetchResultAt is ApplyFetchResult for a read issued at epoch. It
// drops the page and reports false when the store was cleared since.
func (s *Store) ApplyFetchResultAt(epoch uint64, items []notification.Notification, totalCount int, replace bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return false
	}
	s.applyPageLocked(items, totalCount, replace)
	return true
}

// Epoch identifies the current contents generation. Clear advances it.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Store) applyPageLocked(items []notification.Notification, totalCount int, replace bool) {
	if replace {
		s.state.Items = make([]notification.Notification, 0, len(items))
		clear(s.ids)
	}

	for _, n := range items {
		if _, ok := s.ids[n.ID]; ok {
			continue
		}
		s.ids[n.ID] = struct{}{}
		s.state.Items = append(s.state.Items, n)
		if !replace && !n.Read {
			s.state.UnreadCount++
		}
	}
	if replace {
		s.state.UnreadCount = countUnread(s.state.Items)
	}
	s.state.TotalCount = totalCount
	s.publishLocked()
}

func countUnread(items []notification.Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}

// ApplyMarkRead flags id as read at when. Unknown or already read IDs leave
// the store untouched. It reports whether the store changed.
func (s *Store) ApplyMarkRead(id string, when notification.Timestamp) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.state.Items, func(n notification.Notification) bool { return n.ID == id })
	if i < 0 || s.state.Items[i].Read {
		return false
	}

	s.state.Items[i] = s.state.Items[i].MarkedRead(when)
	s.state.UnreadCount = max(s.state.UnreadCount-1, 0)
	s.publishLocked()
	return true
}

// SetUnreadCount overrides the unread badge, e.g. from a server side count.
func (s *Store) SetUnreadCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.UnreadCount = max(n, 0)
	s.publishLocked()
}

// SetFilter replaces the active filter. It does not fetch.
func (s *Store) SetFilter(f notification.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Filter = f
	s.publishLocked()
}

// Filter returns the active filter.
func (s *Store) Filter() notification.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Filter
}

// Len returns the number of loaded notifications.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Items)
}

// Clear resets to the empty state, keeping nothing from the signed-out user.
// Pages of reads issued before Clear are refused by ApplyFetchResultAt.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Snapshot{Filter: notification.DefaultFilter()}
	clear(s.ids)
	s.epoch++
	s.publishLocked()
}

// Begin marks kind as in flight.
func (s *Store) Begin(kind Kind) {
	s.SetInFlight(kind, true)
}

// SetInFlight sets the in-flight flag of kind.
func (s *Store) SetInFlight(kind Kind, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.InFlight(kind) == v {
		return
	}
	s.state.setInFlight(kind, v)
	s.publishLocked()
}

// Succeed clears the recorded error of kind.
func (s *Store) Succeed(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Err(kind) == "" {
		return
	}
	s.state.setErr(kind, "")
	s.publishLocked()
}

// Fail records msg as the latest error of kind.
func (s *Store) Fail(kind Kind, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.setErr(kind, msg)
	s.publishLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := s.state
	snap.Items = append(make([]notification.Notification, 0, len(s.state.Items)), s.state.Items...)
	return snap
}

// publishLocked never blocks: subscribers hold only the latest snapshot.
func (s *Store) publishLocked() {
	s.subs.Publish(s.snapshotLocked())
}
