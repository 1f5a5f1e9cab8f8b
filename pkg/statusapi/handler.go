package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/notifysync/pkg/async"
	"github.com/dmitrymomot/notifysync/pkg/broadcast"
	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/coordinator"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/notification"
	"github.com/dmitrymomot/notifysync/pkg/store"
)

// maxBodySize bounds command request bodies.
const maxBodySize = 64 * 1024

// Notifications is the read side of the notification store.
type Notifications interface {
	Snapshot() store.Snapshot
	Subscribe(ctx context.Context) broadcast.Subscriber[store.Snapshot]
}

// Connection is the read side of the connection manager.
type Connection interface {
	Status() connection.Status
	Subscribe(ctx context.Context) broadcast.Subscriber[connection.Status]
}

// Commands issues notification commands.
type Commands interface {
	Connect() *async.Future[bool]
	Disconnect() *async.Future[bool]
	Fetch(f notification.Filter) *async.Future[bool]
	LoadMore() *async.Future[bool]
	Refresh() *async.Future[bool]
	MarkRead(id string) *async.Future[bool]
	Send(in notification.CreateInput) *async.Future[bool]
	Broadcast(in notification.CreateInput) *async.Future[bool]
}

// Option configures the handler.
type Option func(*handler)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *handler) {
		if l != nil {
			h.log = l
		}
	}
}

// State is the combined view served by /state and streamed by /stream.
type State struct {
	Connection    ConnectionView `json:"connection"`
	Notifications store.Snapshot `json:"notifications"`
}

// ConnectionView is connection.Status plus the UI's connected flag.
type ConnectionView struct {
	connection.Status
	Connected bool `json:"connected"`
}

func viewOf(s connection.Status) ConnectionView {
	return ConnectionView{Status: s, Connected: s.Connected()}
}

// CommandResult is the response body of every command endpoint.
type CommandResult struct {
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

type handler struct {
	notifications Notifications
	conn          Connection
	cmds          Commands
	log           *slog.Logger
}

// NewHandler returns the status surface router:
//
//	GET  /healthz
//	GET  /state
//	GET  /stream                       datastar signal patches
//	POST /connect, /disconnect
//	POST /notifications/fetch          body: notification.Filter (optional)
//	POST /notifications/more
//	POST /notifications/refresh
//	POST /notifications/{id}/read
//	POST /notifications/send           body: notification.CreateInput
//	POST /notifications/broadcast      body: notification.CreateInput
func NewHandler(n Notifications, conn Connection, cmds Commands, opts ...Option) http.Handler {
	h := &handler{notifications: n, conn: conn, cmds: cmds, log: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(requestID, accessLog(h.log), middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Get("/state", h.state)
	r.Get("/stream", h.stream)

	r.Post("/connect", h.command(func(*http.Request) (*async.Future[bool], error) {
		return cmds.Connect(), nil
	}))
	r.Post("/disconnect", h.command(func(*http.Request) (*async.Future[bool], error) {
		return cmds.Disconnect(), nil
	}))

	r.Route("/notifications", func(r chi.Router) {
		r.Post("/fetch", h.command(func(req *http.Request) (*async.Future[bool], error) {
			f := notification.DefaultFilter()
			if err := decodeOptional(req, &f); err != nil {
				return nil, err
			}
			return cmds.Fetch(f), nil
		}))
		r.Post("/more", h.command(func(*http.Request) (*async.Future[bool], error) {
			return cmds.LoadMore(), nil
		}))
		r.Post("/refresh", h.command(func(*http.Request) (*async.Future[bool], error) {
			return cmds.Refresh(), nil
		}))
		r.Post("/{id}/read", h.command(func(req *http.Request) (*async.Future[bool], error) {
			return cmds.MarkRead(chi.URLParam(req, "id")), nil
		}))
		r.Post("/send", h.command(func(req *http.Request) (*async.Future[bool], error) {
			var in notification.CreateInput
			if err := decode(req, &in); err != nil {
				return nil, err
			}
			return cmds.Send(in), nil
		}))
		r.Post("/broadcast", h.command(func(req *http.Request) (*async.Future[bool], error) {
			var in notification.CreateInput
			if err := decode(req, &in); err != nil {
				return nil, err
			}
			return cmds.Broadcast(in), nil
		}))
	})

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ALIVE"))
}

func (h *handler) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, State{
		Connection:    viewOf(h.conn.Status()),
		Notifications: h.notifications.Snapshot(),
	})
}

// command issues a command and waits for its future within the request.
func (h *handler) command(issue func(*http.Request) (*async.Future[bool], error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		future, err := issue(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, CommandResult{Error: err.Error()})
			return
		}

		applied, err := future.AwaitContext(r.Context())
		if err != nil {
			h.log.LogAttrs(r.Context(), slog.LevelDebug, "command failed",
				logger.Component("statusapi"), slog.String("path", r.URL.Path), logger.Error(err))
			writeJSON(w, statusFor(err), CommandResult{Applied: applied, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, CommandResult{Applied: applied})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrUnknownLevel):
		return http.StatusUnprocessableEntity
	case connection.IsNoCredentialError(err):
		return http.StatusUnauthorized
	case errors.Is(err, coordinator.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

// decodeOptional decodes a JSON body when one was sent.
func decodeOptional(r *http.Request, v any) error {
	if r.ContentLength == 0 || !strings.Contains(r.Header.Get("Content-Type"), "json") {
		return nil
	}
	return decode(r, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
