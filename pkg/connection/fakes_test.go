package connection_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/notification"
	"github.com/dmitrymomot/notifysync/pkg/session"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fire runs the callback the way the runtime would: only if still armed.
func (t *fakeTimer) fire() {
	if !t.Stop() {
		return
	}
	t.f()
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) connection.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// waitTimer blocks until the n-th (1-based) timer has been armed and returns it.
func (c *fakeClock) waitTimer(t *testing.T, n int) *fakeTimer {
	t.Helper()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.timers) >= n
	}, time.Second, time.Millisecond, "timer %d never armed", n)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[n-1]
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type fakeChannel struct {
	msgs chan notification.Notification
	done chan struct{}
	once sync.Once
	mu   sync.Mutex
	err  error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		msgs: make(chan notification.Notification, 8),
		done: make(chan struct{}),
	}
}

func (c *fakeChannel) Messages() <-chan notification.Notification { return c.msgs }
func (c *fakeChannel) Done() <-chan struct{}                      { return c.done }

func (c *fakeChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *fakeChannel) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeChannel) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	_ = c.Close()
}

func (c *fakeChannel) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// scriptedDialer returns its results in order, repeating the last one.
type scriptedDialer struct {
	mu      sync.Mutex
	results []dialResult
	calls   []session.Credential
	gate    chan struct{}
}

type dialResult struct {
	ch  connection.Channel
	err error
}

func (d *scriptedDialer) Dial(ctx context.Context, cred session.Credential) (connection.Channel, error) {
	d.mu.Lock()
	d.calls = append(d.calls, cred)
	var r dialResult
	if len(d.results) > 0 {
		r = d.results[0]
		if len(d.results) > 1 {
			d.results = d.results[1:]
		}
	}
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	return r.ch, r.err
}

func (d *scriptedDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func waitState(t *testing.T, m *connection.Manager, want connection.State) {
	t.Helper()
	require.Eventually(t, func() bool { return m.State() == want },
		time.Second, time.Millisecond, "state never became %s (is %s)", want, m.State())
}
