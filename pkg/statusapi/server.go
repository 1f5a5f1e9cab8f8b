package statusapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/notifysync/pkg/logger"
)

// Config holds the status server settings. There is no write timeout:
// the event stream stays open for as long as the client listens.
type Config struct {
	Addr            string        `env:"STATUS_ADDR" envDefault:"127.0.0.1:8088"`
	ReadTimeout     time.Duration `env:"STATUS_READ_TIMEOUT" envDefault:"10s"`
	IdleTimeout     time.Duration `env:"STATUS_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"STATUS_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the lifecycle logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithListener serves on ln instead of listening on Config.Addr.
func WithListener(ln net.Listener) ServerOption {
	return func(s *Server) {
		s.ln = ln
	}
}

// Server runs the status surface with graceful shutdown.
type Server struct {
	cfg Config
	log *slog.Logger
	ln  net.Listener

	mu   sync.Mutex
	srv  *http.Server
	once sync.Once
}

// NewServer returns a server for cfg. Zero durations keep net/http defaults.
func NewServer(cfg Config, opts ...ServerOption) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8088"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves handler until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, ErrAlreadyRunning)
	}
	srv := &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     handler,
		ReadTimeout: s.cfg.ReadTimeout,
		IdleTimeout: s.cfg.IdleTimeout,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.srv = srv
	ln := s.ln
	s.mu.Unlock()

	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", srv.Addr); err != nil {
			return errors.Join(ErrStart, err)
		}
	}

	s.log.LogAttrs(ctx, slog.LevelInfo, "status server started",
		logger.Component("statusapi"), slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	var runErr error
	select {
	case <-ctx.Done():
		_ = s.Shutdown(context.Background())
		runErr = <-errCh
	case runErr = <-errCh:
	}

	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		return errors.Join(ErrStart, runErr)
	}
	return nil
}

// Shutdown stops the server. It is safe for repeated calls.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		srv := s.srv
		s.mu.Unlock()
		if srv == nil {
			return
		}

		ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
		err = srv.Shutdown(ctx)

		s.log.LogAttrs(ctx, slog.LevelInfo, "status server stopped",
			logger.Component("statusapi"), logger.Error(err))
	})

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}
