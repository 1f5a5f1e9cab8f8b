package signalr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/notification"
)

// channel is one live hub connection. It implements connection.Channel.
type channel struct {
	conn          *websocket.Conn
	buf           *records
	pingInterval  time.Duration
	serverTimeout time.Duration
	log           *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	msgs   chan notification.Notification
	done   chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

func newChannel(conn *websocket.Conn, buf *records, ping, timeout time.Duration, log *slog.Logger) *channel {
	ctx, cancel := context.WithCancel(context.Background())
	return &channel{
		conn:          conn,
		buf:           buf,
		pingInterval:  ping,
		serverTimeout: timeout,
		log:           log,
		ctx:           ctx,
		cancel:        cancel,
		msgs:          make(chan notification.Notification, 16),
		done:          make(chan struct{}),
	}
}

func (c *channel) Messages() <-chan notification.Notification { return c.msgs }

func (c *channel) Done() <-chan struct{} { return c.done }

func (c *channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.err
}

// Close ends the channel with a normal closure and waits for the reader.
func (c *channel) Close() error {
	c.mu.Lock()
	already := c.closed
	c.closed = true
	c.mu.Unlock()

	if !already {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}
	c.cancel()
	<-c.done
	return nil
}

func (c *channel) run(leftover [][]byte) {
	defer close(c.done)
	defer close(c.msgs)

	go c.pingLoop()

	err := c.dispatch(leftover)
	if err == nil {
		err = c.readLoop()
	}

	c.mu.Lock()
	if !c.closed {
		c.err = err
	}
	c.mu.Unlock()

	c.cancel()
	_ = c.conn.CloseNow()
}

func (c *channel) readLoop() error {
	for {
		ctx, cancel := context.WithTimeout(c.ctx, c.serverTimeout)
		_, data, err := c.conn.Read(ctx)
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		cancel()

		if err != nil {
			if timedOut && c.ctx.Err() == nil {
				return ErrServerTimeout
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return ErrServerClosed
			}
			return fmt.Errorf("signalr: read: %w", err)
		}

		if err := c.dispatch(c.buf.feed(data)); err != nil {
			return err
		}
	}
}

// dispatch handles complete messages; a non-nil error ends the channel.
func (c *channel) dispatch(raw [][]byte) error {
	for _, b := range raw {
		var msg message
		if err := json.Unmarshal(b, &msg); err != nil {
			c.log.LogAttrs(c.ctx, slog.LevelWarn, "malformed hub message",
				logger.Component("signalr"), logger.Error(err))
			continue
		}

		switch msg.Type {
		case typeInvocation:
			c.invoke(msg)
		case typePing:
		case typeClose:
			if msg.Error != "" {
				return fmt.Errorf("%w: %s", ErrServerClosed, msg.Error)
			}
			return ErrServerClosed
		default:
			c.log.LogAttrs(c.ctx, slog.LevelDebug, "hub message ignored",
				logger.Component("signalr"), slog.Int("type", msg.Type))
		}
	}
	return nil
}

func (c *channel) invoke(msg message) {
	// hub method names are case-insensitive
	if !strings.EqualFold(msg.Target, ReceiveTarget) || len(msg.Arguments) == 0 {
		c.log.LogAttrs(c.ctx, slog.LevelDebug, "hub invocation ignored",
			logger.Component("signalr"), slog.String("target", msg.Target))
		return
	}

	var n notification.Notification
	if err := json.Unmarshal(msg.Arguments[0], &n); err != nil {
		c.log.LogAttrs(c.ctx, slog.LevelWarn, "undecodable notification push",
			logger.Component("signalr"), logger.Error(err))
		return
	}

	select {
	case c.msgs <- n:
	case <-c.ctx.Done():
	}
}

func (c *channel) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, c.pingInterval)
			err := c.conn.Write(ctx, websocket.MessageText, pingMessage)
			cancel()
			if err != nil {
				c.log.LogAttrs(c.ctx, slog.LevelDebug, "hub ping failed",
					logger.Component("signalr"), logger.Error(err))
				return
			}
		}
	}
}
