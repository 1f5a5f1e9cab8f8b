package connection

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifysync/pkg/notification"
)

// DefaultPollInterval is the fetch period of the polling fallback.
const DefaultPollInterval = 30 * time.Second

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Manager.
type Option func(*Manager)

// WithSchedule overrides the reconnect backoff. An empty schedule is ignored.
func WithSchedule(s Schedule) Option {
	return func(m *Manager) {
		if len(s) > 0 {
			m.schedule = s
		}
	}
}

// WithPollInterval sets the period of the polling fallback.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithPoller sets the fetch issued on every polling tick.
func WithPoller(fn func(context.Context)) Option {
	return func(m *Manager) {
		if fn != nil {
			m.poller = fn
		}
	}
}

// WithIncoming sets the sink for pushed notifications.
func WithIncoming(fn func(notification.Notification)) Option {
	return func(m *Manager) {
		if fn != nil {
			m.incoming = fn
		}
	}
}

// WithLogger sets the logger for transitions and transport faults.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithAfterFunc replaces the timer factory.
func WithAfterFunc(fn AfterFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.afterFunc = fn
		}
	}
}

// WithFallbackAfter sets how many transport-unavailable failures before the
// first successful connect switch the manager to polling. Zero disables the
// fallback.
func WithFallbackAfter(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.fallbackAfter = n
		}
	}
}
