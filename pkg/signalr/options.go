package signalr

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultHubPath is the notification hub route relative to the API URL.
	DefaultHubPath = "signalr-hubs/notifications"

	// ReceiveTarget is the hub method the server invokes for each push.
	ReceiveTarget = "ReceiveNotification"

	DefaultPingInterval     = 15 * time.Second
	DefaultServerTimeout    = 30 * time.Second
	DefaultHandshakeTimeout = 15 * time.Second

	// maxMessageSize bounds a single hub frame.
	maxMessageSize = 1 << 20
)

// Option configures a Dialer.
type Option func(*Dialer)

// WithHubPath overrides DefaultHubPath.
func WithHubPath(path string) Option {
	return func(d *Dialer) {
		if p := strings.Trim(path, "/"); p != "" {
			d.hubPath = p
		}
	}
}

// WithHTTPClient sets the client used for the WebSocket upgrade request.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *Dialer) {
		d.httpClient = hc
	}
}

// WithPingInterval sets how often the client pings the hub.
func WithPingInterval(interval time.Duration) Option {
	return func(d *Dialer) {
		if interval > 0 {
			d.pingInterval = interval
		}
	}
}

// WithServerTimeout sets how long the channel waits for any message
// before it is considered dead.
func WithServerTimeout(timeout time.Duration) Option {
	return func(d *Dialer) {
		if timeout > 0 {
			d.serverTimeout = timeout
		}
	}
}

// WithHandshakeTimeout bounds the protocol handshake after the upgrade.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(d *Dialer) {
		if timeout > 0 {
			d.handshakeTimeout = timeout
		}
	}
}

// WithLogger sets the channel logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dialer) {
		if l != nil {
			d.log = l
		}
	}
}
