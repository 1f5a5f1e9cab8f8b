package signalr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/session"
)

// Dialer opens notification hub channels over WebSockets, skipping the
// negotiate round trip. It implements connection.Dialer.
type Dialer struct {
	apiURL           *url.URL
	hubPath          string
	httpClient       *http.Client
	pingInterval     time.Duration
	serverTimeout    time.Duration
	handshakeTimeout time.Duration
	log              *slog.Logger
}

var _ connection.Dialer = (*Dialer)(nil)

// NewDialer creates a dialer for the hub served under apiURL.
func NewDialer(apiURL string, opts ...Option) (*Dialer, error) {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil {
		return nil, errors.Join(ErrInvalidHubURL, err)
	}

	d := &Dialer{
		apiURL:           u,
		hubPath:          DefaultHubPath,
		pingInterval:     DefaultPingInterval,
		serverTimeout:    DefaultServerTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		log:              slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if _, err := d.HubURL(); err != nil {
		return nil, err
	}
	return d, nil
}

// HubURL returns the WebSocket address of the hub, without credentials.
func (d *Dialer) HubURL() (*url.URL, error) {
	return HubURL(d.apiURL, d.hubPath)
}

// HubURL joins hubPath onto apiURL and maps http(s) to ws(s).
func HubURL(apiURL *url.URL, hubPath string) (*url.URL, error) {
	u := *apiURL
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidHubURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidHubURL)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.Trim(hubPath, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return &u, nil
}

// Dial connects, performs the JSON protocol handshake and returns the running
// channel. Failures before the WebSocket is up wrap
// connection.ErrTransportUnavailable; handshake failures wrap
// connection.ErrHandshake.
func (d *Dialer) Dial(ctx context.Context, cred session.Credential) (connection.Channel, error) {
	if !cred.Present() {
		return nil, session.ErrNoCredential
	}

	hub, err := d.HubURL()
	if err != nil {
		return nil, err
	}
	q := hub.Query()
	q.Set("access_token", cred.Token)
	hub.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cred.Token)

	conn, resp, err := websocket.Dial(ctx, hub.String(), &websocket.DialOptions{
		HTTPClient: d.httpClient,
		HTTPHeader: header,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: websocket dial: %w", connection.ErrTransportUnavailable, err)
	}
	conn.SetReadLimit(maxMessageSize)

	buf := &records{}
	leftover, err := d.handshake(ctx, conn, buf)
	if err != nil {
		_ = conn.Close(websocket.StatusProtocolError, "handshake failed")
		return nil, fmt.Errorf("%w: %w", connection.ErrHandshake, err)
	}

	ch := newChannel(conn, buf, d.pingInterval, d.serverTimeout, d.log)
	go ch.run(leftover)
	return ch, nil
}

// handshake sends the protocol request and waits for the response record.
// Messages that arrived in the same frame as the response are returned.
func (d *Dialer) handshake(ctx context.Context, conn *websocket.Conn, buf *records) ([][]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.handshakeTimeout)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, handshakeRequest); err != nil {
		return nil, fmt.Errorf("send handshake: %w", err)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("read handshake: %w", err)
		}
		msgs := buf.feed(data)
		if len(msgs) == 0 {
			continue
		}

		var resp handshakeResponse
		if err := json.Unmarshal(msgs[0], &resp); err != nil {
			return nil, fmt.Errorf("decode handshake: %w", err)
		}
		if resp.Error != "" {
			return nil, errors.New(resp.Error)
		}

		d.log.LogAttrs(ctx, slog.LevelDebug, "hub handshake completed", logger.Component("signalr"))
		return msgs[1:], nil
	}
}
