package tokengate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/session"
)

// Connection is the part of the connection manager the gate drives.
type Connection interface {
	State() connection.State
	Start(cred session.Credential) error
	Stop()
	Restart(cred session.Credential) error
}

// Clearer empties the local notification state.
type Clearer interface {
	Clear()
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the gate logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}

// WithClock sets the time source used for validity checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithAfterFunc replaces time.AfterFunc for the expiry timer.
func WithAfterFunc(fn connection.AfterFunc) Option {
	return func(g *Gate) {
		if fn != nil {
			g.afterFunc = fn
		}
	}
}

// Gate ties the push channel to credential validity. It starts the channel
// when a valid credential appears, restarts it on rotation, and clears the
// store and stops the channel when the credential goes away or expires.
type Gate struct {
	conn      Connection
	st        Clearer
	log       *slog.Logger
	now       func() time.Time
	afterFunc connection.AfterFunc

	mu       sync.Mutex
	current  session.Credential
	active   bool
	gen      uint64
	expiry   connection.Timer
	signOuts uint64
}

// New creates a gate with no credential observed yet.
func New(conn Connection, st Clearer, opts ...Option) *Gate {
	g := &Gate{
		conn: conn,
		st:   st,
		log:  slog.Default(),
		now:  time.Now,
		afterFunc: func(d time.Duration, f func()) connection.Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Observe applies one credential change.
func (g *Gate) Observe(cred session.Credential, present bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observeLocked(cred, present)
}

// ObserveChange applies a change from session.Store.Watch. When the change
// reveals a sign-out the gate never saw, the previous user's state is
// cleared and the channel stopped before the new credential is applied.
func (g *Gate) ObserveChange(ch session.Change) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if ch.SignOuts != g.signOuts {
		g.signOuts = ch.SignOuts
		if g.active && ch.Present {
			g.log.LogAttrs(context.Background(), slog.LevelInfo, "missed sign-out, resetting before new credential",
				logger.Component("tokengate"))
			g.current = session.Credential{}
			g.active = false
			g.st.Clear()
			if g.conn.State() != connection.Disconnected {
				g.conn.Stop()
			}
		}
	}
	g.observeLocked(ch.Credential, ch.Present)
}

func (g *Gate) observeLocked(cred session.Credential, present bool) {
	g.gen++
	g.stopExpiryLocked()

	if !present || !cred.Valid(g.now()) {
		g.revokeLocked(present)
		return
	}

	switch {
	case !g.active:
		g.log.LogAttrs(context.Background(), slog.LevelInfo, "credential present, starting channel",
			logger.Component("tokengate"))
		if err := g.conn.Start(cred); err != nil {
			g.log.LogAttrs(context.Background(), slog.LevelWarn, "channel start rejected",
				logger.Component("tokengate"), logger.Error(err))
		}
	case !cred.Equal(g.current):
		g.log.LogAttrs(context.Background(), slog.LevelInfo, "credential rotated, restarting channel",
			logger.Component("tokengate"))
		if err := g.conn.Restart(cred); err != nil {
			g.log.LogAttrs(context.Background(), slog.LevelWarn, "channel restart rejected",
				logger.Component("tokengate"), logger.Error(err))
		}
	}

	g.current = cred
	g.active = true
	g.armExpiryLocked(cred)
}

// Run observes updates until ctx ends or updates is closed.
func (g *Gate) Run(ctx context.Context, updates <-chan session.Change) error {
	defer g.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-updates:
			if !ok {
				return nil
			}
			g.ObserveChange(change)
		}
	}
}

// Stop disarms the expiry timer. The channel is left as it is.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.gen++
	g.stopExpiryLocked()
}

// revokeLocked handles an absent or invalid credential.
func (g *Gate) revokeLocked(present bool) {
	g.current = session.Credential{}
	g.active = false

	if g.conn.State() == connection.Disconnected {
		return
	}

	reason := "credential cleared"
	if present {
		reason = "credential expired"
	}
	g.log.LogAttrs(context.Background(), slog.LevelInfo, "stopping channel",
		logger.Component("tokengate"), slog.String("reason", reason))

	g.st.Clear()
	g.conn.Stop()
}

func (g *Gate) armExpiryLocked(cred session.Credential) {
	at, ok := cred.ExpiresAt()
	if !ok {
		return
	}

	gen := g.gen
	g.expiry = g.afterFunc(max(at.Sub(g.now()), 0), func() { g.expire(gen) })
}

func (g *Gate) expire(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if gen != g.gen || !g.active {
		return
	}
	g.expiry = nil
	if g.current.Valid(g.now()) {
		g.armExpiryLocked(g.current)
		return
	}
	g.revokeLocked(true)
}

func (g *Gate) stopExpiryLocked() {
	if g.expiry != nil {
		g.expiry.Stop()
		g.expiry = nil
	}
}
