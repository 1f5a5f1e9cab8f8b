package coordinator_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifysync/pkg/api"
	"github.com/dmitrymomot/notifysync/pkg/async"
	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/coordinator"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/notification"
	"github.com/dmitrymomot/notifysync/pkg/session"
	"github.com/dmitrymomot/notifysync/pkg/store"
)

const wait = 2 * time.Second

type fakeAPI struct {
	mu sync.Mutex
	// page answers GetPage; call is zero based.
	page      func(call int, f notification.Filter) (notification.PagedResult, error)
	getCalls  []notification.Filter
	markGate  chan struct{}
	markErr   error
	marked    []string
	sendErr   error
	sent      []notification.CreateInput
	broadcast []notification.CreateInput
}

func (a *fakeAPI) GetPage(ctx context.Context, f notification.Filter) (notification.PagedResult, error) {
	a.mu.Lock()
	call := len(a.getCalls)
	a.getCalls = append(a.getCalls, f)
	page := a.page
	a.mu.Unlock()

	if page == nil {
		return notification.PagedResult{}, nil
	}
	return page(call, f)
}

func (a *fakeAPI) MarkRead(ctx context.Context, id string) error {
	if a.markGate != nil {
		<-a.markGate
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.markErr != nil {
		return a.markErr
	}
	a.marked = append(a.marked, id)
	return nil
}

func (a *fakeAPI) Send(ctx context.Context, in notification.CreateInput) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sendErr != nil {
		return a.sendErr
	}
	a.sent = append(a.sent, in)
	return nil
}

func (a *fakeAPI) Broadcast(ctx context.Context, in notification.CreateInput) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sendErr != nil {
		return a.sendErr
	}
	a.broadcast = append(a.broadcast, in)
	return nil
}

func (a *fakeAPI) calls() []notification.Filter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]notification.Filter(nil), a.getCalls...)
}

type fakeConn struct {
	mu      sync.Mutex
	started []session.Credential
	stops   int
}

func (c *fakeConn) Start(cred session.Credential) error {
	if !cred.Present() {
		return &connection.NoCredentialError{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = append(c.started, cred)
	return nil
}

func (c *fakeConn) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
}

type fakeCreds struct {
	cred session.Credential
}

func (f fakeCreds) Credential() (session.Credential, bool) {
	return f.cred, f.cred.Present()
}

// items builds n notifications with IDs prefix-0..prefix-(n-1) starting at skip.
func items(prefix string, skip, n int) []notification.Notification {
	out := make([]notification.Notification, n)
	for i := range n {
		out[i] = notification.Notification{ID: fmt.Sprintf("%s-%d", prefix, skip+i), Title: "t"}
	}
	return out
}

// pager serves total items in pages sized by the filter.
func pager(total int) func(int, notification.Filter) (notification.PagedResult, error) {
	return func(_ int, f notification.Filter) (notification.PagedResult, error) {
		n := max(min(f.MaxResultCount, total-f.SkipCount), 0)
		return notification.PagedResult{Items: items("n", f.SkipCount, n), TotalCount: total}, nil
	}
}

func setup(t *testing.T, a *fakeAPI) (*coordinator.Coordinator, *store.Store, *fakeConn) {
	t.Helper()

	st := store.New()
	conn := &fakeConn{}
	c := coordinator.New(a, st, conn, fakeCreds{cred: session.Credential{Token: "abc"}},
		coordinator.WithLogger(logger.Discard()),
		coordinator.WithClock(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }),
	)
	t.Cleanup(func() {
		_ = c.Close()
		_ = st.Close()
	})
	return c, st, conn
}

func TestFetchThenLoadMore(t *testing.T) {
	t.Parallel()

	a := &fakeAPI{page: pager(50)}
	c, st, _ := setup(t, a)

	ok, err := c.Fetch(notification.Filter{SkipCount: 0, MaxResultCount: 20}).AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 20, st.Len())

	ok, err = c.LoadMore().AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)

	calls := a.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 20, calls[1].SkipCount)

	snap := st.Snapshot()
	assert.Len(t, snap.Items, 40)
	assert.Equal(t, 50, snap.TotalCount)
	assert.Equal(t, 40, snap.UnreadCount)
	assert.False(t, snap.Fetching)
}

func TestLoadMore_NothingLeft(t *testing.T) {
	t.Parallel()

	a := &fakeAPI{page: pager(5)}
	c, st, _ := setup(t, a)

	_, err := c.Fetch(notification.DefaultFilter()).AwaitWithTimeout(wait)
	require.NoError(t, err)
	require.Equal(t, 5, st.Len())

	ok, err := c.LoadMore().AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, a.calls(), 1)
}

func TestFetch_LatestWins(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	a := &fakeAPI{page: func(call int, f notification.Filter) (notification.PagedResult, error) {
		if call == 0 {
			<-release
			return notification.PagedResult{Items: items("old", 0, 3), TotalCount: 3}, nil
		}
		return notification.PagedResult{Items: items("new", 0, 2), TotalCount: 2}, nil
	}}
	c, st, _ := setup(t, a)

	first := c.Fetch(notification.DefaultFilter())
	require.Eventually(t, func() bool { return len(a.calls()) == 1 }, wait, time.Millisecond)

	ok, err := c.Fetch(notification.DefaultFilter()).AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)

	close(release)
	ok, err = first.AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.False(t, ok, "stale result must be discarded")

	snap := st.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "new-0", snap.Items[0].ID)
	assert.False(t, snap.Fetching)
}

func TestFetch_FailureKeepsContent(t *testing.T) {
	t.Parallel()

	fail := true
	var mu sync.Mutex
	a := &fakeAPI{page: func(call int, f notification.Filter) (notification.PagedResult, error) {
		mu.Lock()
		defer mu.Unlock()
		if call > 0 && fail {
			return notification.PagedResult{}, &api.Error{Status: 403, Title: "You are not authorized!", Message: "nope"}
		}
		return notification.PagedResult{Items: items("n", 0, 3), TotalCount: 3}, nil
	}}
	c, st, _ := setup(t, a)

	_, err := c.Fetch(notification.DefaultFilter()).AwaitWithTimeout(wait)
	require.NoError(t, err)

	ok, err := c.Refresh().AwaitWithTimeout(wait)
	require.Error(t, err)
	assert.False(t, ok)

	snap := st.Snapshot()
	assert.Len(t, snap.Items, 3)
	assert.Equal(t, "You are not authorized!\nnope", snap.FetchError)
	assert.False(t, snap.Fetching)

	mu.Lock()
	fail = false
	mu.Unlock()

	_, err = c.Refresh().AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.Empty(t, st.Snapshot().FetchError)
}

func TestFetch_SetsActiveFilterAndRefreshUsesIt(t *testing.T) {
	t.Parallel()

	a := &fakeAPI{page: pager(50)}
	c, st, _ := setup(t, a)

	read := true
	f := notification.DefaultFilter()
	f.Read = &read

	_, err := c.Fetch(f).AwaitWithTimeout(wait)
	require.NoError(t, err)
	_, err = c.LoadMore().AwaitWithTimeout(wait)
	require.NoError(t, err)
	require.Equal(t, 40, st.Len())

	_, err = c.Refresh().AwaitWithTimeout(wait)
	require.NoError(t, err)

	calls := a.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, 0, calls[2].SkipCount)
	require.NotNil(t, calls[2].Read)
	assert.True(t, *calls[2].Read)
	assert.Equal(t, 20, st.Len(), "refresh replaces the sequence")
}

func TestMarkRead(t *testing.T) {
	t.Parallel()

	a := &fakeAPI{page: pager(3)}
	c, st, _ := setup(t, a)

	_, err := c.Fetch(notification.DefaultFilter()).AwaitWithTimeout(wait)
	require.NoError(t, err)
	require.Equal(t, 3, st.Snapshot().UnreadCount)

	ok, err := c.MarkRead("n-1").AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)

	snap := st.Snapshot()
	assert.Equal(t, 2, snap.UnreadCount)
	assert.True(t, snap.Items[1].Read)
	require.NotNil(t, snap.Items[1].ReadTime)
	assert.Equal(t, 2026, snap.Items[1].ReadTime.Year())

	ok, err = c.MarkRead("n-1").AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.False(t, ok, "already read")
	assert.Equal(t, 2, st.Snapshot().UnreadCount)
}

func TestMarkRead_FailureLeavesState(t *testing.T) {
	t.Parallel()

	a := &fakeAPI{page: pager(3), markErr: errors.New("boom")}
	c, st, _ := setup(t, a)

	_, err := c.Fetch(notification.DefaultFilter()).AwaitWithTimeout(wait)
	require.NoError(t, err)
	before := st.Snapshot()

	ok, err := c.MarkRead("n-0").AwaitWithTimeout(wait)
	require.Error(t, err)
	assert.False(t, ok)

	after := st.Snapshot()
	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.UnreadCount, after.UnreadCount)
	assert.Equal(t, "boom", after.MarkReadError)
	assert.False(t, after.MarkingRead)
}

func TestMarkRead_FIFO(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	a := &fakeAPI{page: pager(5), markGate: gate}
	c, st, _ := setup(t, a)

	_, err := c.Fetch(notification.DefaultFilter()).AwaitWithTimeout(wait)
	require.NoError(t, err)

	ids := []string{"n-3", "n-0", "n-4", "n-1"}
	futures := make([]*async.Future[bool], 0, len(ids))
	for _, id := range ids {
		futures = append(futures, c.MarkRead(id))
	}
	assert.True(t, st.Snapshot().MarkingRead)

	for range ids {
		gate <- struct{}{}
	}
	for _, f := range futures {
		ok, err := f.AwaitWithTimeout(wait)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	a.mu.Lock()
	assert.Equal(t, ids, a.marked)
	a.mu.Unlock()

	require.Eventually(t, func() bool { return !st.Snapshot().MarkingRead }, wait, time.Millisecond)
	assert.Equal(t, 1, st.Snapshot().UnreadCount)
}

func TestSend(t *testing.T) {
	t.Parallel()

	a := &fakeAPI{}
	c, st, _ := setup(t, a)

	in := notification.CreateInput{Title: "hi", Content: "there", Level: notification.LevelWarning, ReceiveUserID: "u1"}
	ok, err := c.Send(in).AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Broadcast(in).AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)

	a.mu.Lock()
	assert.Len(t, a.sent, 1)
	assert.Len(t, a.broadcast, 1)
	a.mu.Unlock()

	assert.Empty(t, st.Snapshot().Items, "sent notifications are not inserted locally")
}

func TestSend_Errors(t *testing.T) {
	t.Parallel()

	a := &fakeAPI{}
	c, st, _ := setup(t, a)

	ok, err := c.Send(notification.CreateInput{Title: "x", Level: 99}).AwaitWithTimeout(wait)
	assert.ErrorIs(t, err, coordinator.ErrUnknownLevel)
	assert.False(t, ok)
	assert.Equal(t, coordinator.ErrUnknownLevel.Error(), st.Snapshot().SendError)

	a.mu.Lock()
	a.sendErr = &api.Error{Status: 400, Title: "Validation failed", Message: "Title is required"}
	a.mu.Unlock()

	_, err = c.Send(notification.CreateInput{Level: notification.LevelError}).AwaitWithTimeout(wait)
	require.Error(t, err)
	assert.Equal(t, "Validation failed\nTitle is required", st.Snapshot().SendError)

	a.mu.Lock()
	a.sendErr = nil
	a.mu.Unlock()

	ok, err = c.Send(notification.CreateInput{Title: "x", Level: notification.LevelInformation}).AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, st.Snapshot().SendError)
	assert.False(t, st.Snapshot().Sending)
}

func TestConnectDisconnect(t *testing.T) {
	t.Parallel()

	c, _, conn := setup(t, &fakeAPI{})

	ok, err := c.Connect().AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Disconnect().AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)

	conn.mu.Lock()
	assert.Equal(t, []session.Credential{{Token: "abc"}}, conn.started)
	assert.Equal(t, 1, conn.stops)
	conn.mu.Unlock()

	anon := coordinator.New(&fakeAPI{}, store.New(), conn, fakeCreds{}, coordinator.WithLogger(logger.Discard()))
	ok, err = anon.Connect().AwaitWithTimeout(wait)
	assert.False(t, ok)
	assert.True(t, connection.IsNoCredentialError(err))
}

func TestClosed(t *testing.T) {
	t.Parallel()

	c, _, _ := setup(t, &fakeAPI{page: pager(50)})
	require.NoError(t, c.Close())

	for _, f := range []*async.Future[bool]{
		c.Fetch(notification.DefaultFilter()),
		c.MarkRead("n-0"),
		c.Send(notification.CreateInput{Level: notification.LevelWarning}),
		c.Connect(),
	} {
		_, err := f.AwaitWithTimeout(wait)
		assert.ErrorIs(t, err, coordinator.ErrClosed)
	}
}

func TestLoadMore_DuringFetch(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	a := &fakeAPI{page: func(call int, f notification.Filter) (notification.PagedResult, error) {
		if call == 0 {
			return notification.PagedResult{Items: items("old", f.SkipCount, 20), TotalCount: 50}, nil
		}
		<-release
		return notification.PagedResult{Items: items("new", f.SkipCount, 20), TotalCount: 30}, nil
	}}
	c, st, _ := setup(t, a)

	_, err := c.Fetch(notification.DefaultFilter()).AwaitWithTimeout(wait)
	require.NoError(t, err)
	require.Equal(t, 20, st.Len())

	title := "new"
	f := notification.DefaultFilter()
	f.Title = &title
	fetch := c.Fetch(f)
	require.Eventually(t, func() bool { return len(a.calls()) == 2 }, wait, time.Millisecond)

	ok, err := c.LoadMore().AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.False(t, ok, "nothing to extend until the fetch lands")
	assert.Len(t, a.calls(), 2)

	close(release)
	ok, err = fetch.AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)

	snap := st.Snapshot()
	require.Len(t, snap.Items, 20)
	for _, n := range snap.Items {
		assert.Contains(t, n.ID, "new-")
	}
	assert.Equal(t, 30, snap.TotalCount)
	require.NotNil(t, snap.Filter.Title)
	assert.Equal(t, "new", *snap.Filter.Title)
	assert.False(t, snap.Fetching)
}

func TestLoadMore_SupersededByRefresh(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	a := &fakeAPI{page: func(call int, f notification.Filter) (notification.PagedResult, error) {
		if call == 1 {
			<-release
		}
		return notification.PagedResult{Items: items("n", f.SkipCount, 20), TotalCount: 50}, nil
	}}
	c, st, _ := setup(t, a)

	_, err := c.Fetch(notification.DefaultFilter()).AwaitWithTimeout(wait)
	require.NoError(t, err)

	more := c.LoadMore()
	require.Eventually(t, func() bool { return len(a.calls()) == 2 }, wait, time.Millisecond)

	ok, err := c.Refresh().AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)

	close(release)
	ok, err = more.AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.False(t, ok, "page was computed against the replaced sequence")
	assert.Equal(t, 20, st.Len())

	ok, err = c.LoadMore().AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 40, st.Len())
}

func TestRefresh_SupersededByFetch(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	a := &fakeAPI{page: func(call int, f notification.Filter) (notification.PagedResult, error) {
		if call == 0 {
			<-release
			return notification.PagedResult{Items: items("old", 0, 5), TotalCount: 5}, nil
		}
		return notification.PagedResult{Items: items("new", 0, 2), TotalCount: 2}, nil
	}}
	c, st, _ := setup(t, a)

	refresh := c.Refresh()
	require.Eventually(t, func() bool { return len(a.calls()) == 1 }, wait, time.Millisecond)

	f := notification.DefaultFilter()
	f.MaxResultCount = 5
	ok, err := c.Fetch(f).AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.True(t, ok)

	close(release)
	ok, err = refresh.AwaitWithTimeout(wait)
	require.NoError(t, err)
	assert.False(t, ok)

	snap := st.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "new-0", snap.Items[0].ID)
	assert.False(t, snap.Fetching)
}

func TestRead_DiscardedAfterClear(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		fail bool
	}{
		{name: "page"},
		{name: "error", fail: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			release := make(chan struct{})
			a := &fakeAPI{page: func(call int, f notification.Filter) (notification.PagedResult, error) {
				<-release
				if tc.fail {
					return notification.PagedResult{}, errors.New("boom")
				}
				return notification.PagedResult{Items: items("prev", 0, 3), TotalCount: 3}, nil
			}}
			c, st, _ := setup(t, a)

			fetch := c.Fetch(notification.DefaultFilter())
			require.Eventually(t, func() bool { return len(a.calls()) == 1 }, wait, time.Millisecond)

			st.Clear()
			close(release)

			ok, err := fetch.AwaitWithTimeout(wait)
			require.NoError(t, err)
			assert.False(t, ok)

			snap := st.Snapshot()
			assert.Empty(t, snap.Items)
			assert.Zero(t, snap.UnreadCount)
			assert.Zero(t, snap.TotalCount)
			assert.Empty(t, snap.FetchError)
			assert.False(t, snap.Fetching)
		})
	}
}

func TestClose_ConcurrentCommands(t *testing.T) {
	t.Parallel()

	c, _, _ := setup(t, &fakeAPI{page: pager(50)})

	var (
		mu      sync.Mutex
		futures []*async.Future[bool]
		wg      sync.WaitGroup
	)
	start := make(chan struct{})
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := range 50 {
				var f *async.Future[bool]
				switch (w + i) % 3 {
				case 0:
					f = c.Fetch(notification.DefaultFilter())
				case 1:
					f = c.MarkRead(fmt.Sprintf("n-%d", i))
				default:
					f = c.Send(notification.CreateInput{Title: "x", Level: notification.LevelInformation})
				}
				mu.Lock()
				futures = append(futures, f)
				mu.Unlock()
			}
		}()
	}

	close(start)
	require.NoError(t, c.Close())
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, futures, 8*50)
	for _, f := range futures {
		assert.True(t, f.IsComplete(), "every command settles by the time Close returns")
	}

	_, err := c.Refresh().AwaitWithTimeout(wait)
	assert.ErrorIs(t, err, coordinator.ErrClosed)
}
