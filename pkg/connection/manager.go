package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifysync/pkg/broadcast"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/notification"
	"github.com/dmitrymomot/notifysync/pkg/session"
)

// Channel is an established push channel.
type Channel interface {
	// Messages yields pushed notifications until the channel ends.
	Messages() <-chan notification.Notification
	// Done is closed when the channel has ended for any reason.
	Done() <-chan struct{}
	// Err explains why Done was closed; nil after Close.
	Err() error
	Close() error
}

// Dialer opens push channels. Errors wrapping ErrTransportUnavailable mean
// no streaming transport could be reached at all.
type Dialer interface {
	Dial(ctx context.Context, cred session.Credential) (Channel, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, cred session.Credential) (Channel, error)

func (f DialerFunc) Dial(ctx context.Context, cred session.Credential) (Channel, error) {
	return f(ctx, cred)
}

// Manager owns the push channel lifecycle: connect, reconnect with backoff,
// fall back to polling, stop. Transport faults never leave the manager; they
// are folded into Status.
type Manager struct {
	dialer        Dialer
	schedule      Schedule
	pollInterval  time.Duration
	poller        func(context.Context)
	incoming      func(notification.Notification)
	afterFunc     AfterFunc
	fallbackAfter int
	log           *slog.Logger

	mu        sync.Mutex
	status    Status
	gen       uint64
	cred      session.Credential
	genCtx    context.Context
	genCancel context.CancelFunc
	channel   Channel
	// connectedOnce is set on the first successful connect of a Start cycle;
	// after that the fallback no longer applies.
	connectedOnce bool
	unavailable   int
	retryTimer    Timer
	pollTimer     Timer

	statuses *broadcast.MemoryBroadcaster[Status]
}

// New creates a disconnected manager.
func New(dialer Dialer, opts ...Option) *Manager {
	m := &Manager{
		dialer:        dialer,
		schedule:      DefaultSchedule(),
		pollInterval:  DefaultPollInterval,
		poller:        func(context.Context) {},
		incoming:      func(notification.Notification) {},
		afterFunc:     realAfterFunc,
		fallbackAfter: 1,
		log:           slog.Default(),
		genCtx:        context.Background(),
		status:        Status{State: Disconnected, Since: time.Now()},
		statuses:      broadcast.NewMemoryBroadcaster[Status](16),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.State
}

// Status returns the current status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Subscribe delivers the current status followed by every transition.
func (m *Manager) Subscribe(ctx context.Context) broadcast.Subscriber[Status] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses.SubscribeFrom(ctx, m.status)
}

// Start begins connecting with cred. It is a no-op unless the manager is
// Disconnected, and fails only when cred carries no token.
func (m *Manager) Start(cred session.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(cred)
}

// Stop cancels pending retries and polls, closes the channel and moves to
// Disconnected. It is idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	ch := m.stopLocked()
	m.mu.Unlock()

	closeChannel(ch)
}

// Restart is Stop followed by Start with the new credential, as one step.
func (m *Manager) Restart(cred session.Credential) error {
	m.mu.Lock()
	ch := m.stopLocked()
	err := m.startLocked(cred)
	m.mu.Unlock()

	closeChannel(ch)
	return err
}

// Close stops the manager and releases status subscribers.
func (m *Manager) Close() error {
	m.Stop()
	return m.statuses.Close()
}

func (m *Manager) startLocked(cred session.Credential) error {
	if !cred.Present() {
		return &NoCredentialError{}
	}
	if m.status.State != Disconnected {
		return nil
	}

	m.gen++
	m.cred = cred
	m.connectedOnce = false
	m.unavailable = 0
	m.genCtx, m.genCancel = context.WithCancel(context.Background())
	m.status.Attempt = 0
	m.status.LastError = ""

	m.fireLocked(eventStart)
	m.dialLocked()
	return nil
}

func (m *Manager) stopLocked() Channel {
	if m.status.State == Disconnected {
		return nil
	}

	m.gen++
	if m.genCancel != nil {
		m.genCancel()
		m.genCancel = nil
	}
	stopTimer(&m.retryTimer)
	stopTimer(&m.pollTimer)

	ch := m.channel
	m.channel = nil
	m.status.Polling = false
	m.status.Attempt = 0
	m.status.ConnectionID = ""
	m.status.LastError = ""
	m.fireLocked(eventStop)
	return ch
}

func (m *Manager) dialLocked() {
	gen, ctx, cred := m.gen, m.genCtx, m.cred
	go func() {
		ch, err := m.dialer.Dial(ctx, cred)
		m.dialed(gen, ch, err)
	}()
}

func (m *Manager) dialed(gen uint64, ch Channel, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		// Stop or Restart happened while dialing
		if ch != nil {
			go closeChannel(ch)
		}
		return
	}

	if err != nil {
		m.failedLocked(err)
		return
	}

	m.channel = ch
	m.connectedOnce = true
	m.unavailable = 0
	m.status.Attempt = 0
	m.status.LastError = ""
	m.status.ConnectionID = uuid.NewString()
	m.fireLocked(eventConnected)

	go m.pump(gen, ch)
}

func (m *Manager) failedLocked(err error) {
	m.status.LastError = err.Error()
	m.log.LogAttrs(m.genCtx, slog.LevelWarn, "push channel connect failed",
		logger.Component("connection"),
		logger.Attempt(m.status.Attempt),
		logger.Error(err),
	)

	if !m.connectedOnce && m.fallbackAfter > 0 && errors.Is(err, ErrTransportUnavailable) {
		m.unavailable++
		if m.unavailable >= m.fallbackAfter {
			m.pollLocked()
			return
		}
	}

	m.retryLocked(eventFailed)
}

// retryLocked moves to Reconnecting and arms the backoff timer.
func (m *Manager) retryLocked(ev event) {
	delay := m.schedule.NextInterval(m.status.Attempt)
	m.status.Attempt++
	m.fireLocked(ev)

	m.log.LogAttrs(m.genCtx, slog.LevelDebug, "reconnect scheduled",
		logger.Component("connection"),
		logger.Attempt(m.status.Attempt),
		logger.Delay(delay),
	)

	gen := m.gen
	stopTimer(&m.retryTimer)
	m.retryTimer = m.afterFunc(delay, func() { m.retry(gen) })
}

func (m *Manager) retry(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.status.State != Reconnecting {
		return
	}
	m.retryTimer = nil
	m.dialLocked()
}

// pollLocked switches to the polling fallback and fetches at once.
func (m *Manager) pollLocked() {
	m.status.Polling = true
	m.status.ConnectionID = ""
	m.fireLocked(eventFallback)

	gen := m.gen
	stopTimer(&m.retryTimer)
	stopTimer(&m.pollTimer)
	m.pollTimer = m.afterFunc(0, func() { m.poll(gen) })
}

func (m *Manager) poll(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.status.State != Polling {
		m.mu.Unlock()
		return
	}
	ctx := m.genCtx
	m.pollTimer = m.afterFunc(m.pollInterval, func() { m.poll(gen) })
	m.mu.Unlock()

	m.poller(ctx)
}

func (m *Manager) pump(gen uint64, ch Channel) {
	msgs := ch.Messages()
	for {
		select {
		case n, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			m.deliver(gen, n)
		case <-ch.Done():
			m.dropped(gen, ch)
			return
		}
	}
}

// deliver hands a push to the sink unless the channel is stale. The sink runs
// under the manager lock so nothing is delivered once Stop has returned.
func (m *Manager) deliver(gen uint64, n notification.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}
	m.log.LogAttrs(m.genCtx, slog.LevelDebug, "notification pushed",
		logger.Component("connection"),
		logger.NotificationID(n.ID),
	)
	m.incoming(n)
}

func (m *Manager) dropped(gen uint64, ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.channel != ch {
		return
	}

	m.channel = nil
	err := ch.Err()
	if err != nil {
		m.status.LastError = err.Error()
	}
	m.log.LogAttrs(m.genCtx, slog.LevelWarn, "push channel dropped",
		logger.Component("connection"),
		logger.ConnectionID(m.status.ConnectionID),
		logger.Error(err),
	)
	m.status.ConnectionID = ""
	m.retryLocked(eventDropped)
}

func (m *Manager) fireLocked(ev event) {
	to, err := next(m.status.State, ev)
	if err != nil {
		m.log.LogAttrs(context.Background(), slog.LevelError, "illegal connection transition",
			logger.Component("connection"), logger.Error(err))
		return
	}

	from := m.status.State
	m.status.State = to
	if from != to {
		m.status.Since = time.Now()
	}

	m.log.LogAttrs(context.Background(), slog.LevelInfo, "connection state changed",
		logger.Component("connection"),
		logger.Event(string(ev)),
		slog.String("from", from.String()),
		logger.State(to),
		logger.Attempt(m.status.Attempt),
	)
	m.statuses.Publish(m.status)
}

func stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func closeChannel(ch Channel) {
	if ch != nil {
		_ = ch.Close()
	}
}
