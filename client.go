package notifysync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifysync/pkg/api"
	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/coordinator"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/notification"
	"github.com/dmitrymomot/notifysync/pkg/session"
	"github.com/dmitrymomot/notifysync/pkg/signalr"
	"github.com/dmitrymomot/notifysync/pkg/statusapi"
	"github.com/dmitrymomot/notifysync/pkg/store"
	"github.com/dmitrymomot/notifysync/pkg/tokengate"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	log       *slog.Logger
	persister session.Persister
	dialer    connection.Dialer
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithPersister overrides the session persister chosen from Config.
func WithPersister(p session.Persister) Option {
	return func(o *options) {
		o.persister = p
	}
}

// WithDialer overrides the SignalR dialer.
func WithDialer(d connection.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// Client wires the notification core: session, backend client, push channel
// manager, store, coordinator and token gate.
type Client struct {
	cfg Config
	log *slog.Logger

	Session     *session.Store
	API         *api.Client
	Store       *store.Store
	Connection  *connection.Manager
	Coordinator *coordinator.Coordinator
	Gate        *tokengate.Gate

	redis *redis.Client
}

// New builds a client and restores the persisted session. Nothing connects
// until Run observes a valid credential.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{cfg: cfg, log: o.log}

	persister := o.persister
	if persister == nil {
		var err error
		if persister, err = c.persister(ctx); err != nil {
			return nil, err
		}
	}
	c.Session = session.NewStore(persister, session.WithLogger(o.log))
	if err := c.Session.Restore(ctx); err != nil {
		o.log.LogAttrs(ctx, slog.LevelWarn, "starting with an empty session",
			logger.Component("notifysync"), logger.Error(err))
	}
	if cfg.Language != "" && c.Session.Language() == "" {
		_ = c.Session.SetLanguage(ctx, cfg.Language)
	}

	apiOpts := []api.Option{
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(o.log),
		api.WithUnauthorized(func(ctx context.Context) {
			_ = c.Session.ClearCredential(ctx)
		}),
	}
	if cfg.OAuth.Issuer != "" {
		apiOpts = append(apiOpts, api.WithIssuer(cfg.OAuth.Issuer))
	}
	client, err := api.New(cfg.APIURL, c.Session, apiOpts...)
	if err != nil {
		c.closeSession()
		return nil, err
	}
	c.API = client

	dialer := o.dialer
	if dialer == nil {
		d, err := signalr.NewDialer(cfg.APIURL, signalr.WithHubPath(cfg.hubPath()), signalr.WithLogger(o.log))
		if err != nil {
			c.closeSession()
			return nil, err
		}
		dialer = d
	}

	c.Store = store.New()
	filter := notification.DefaultFilter()
	filter.MaxResultCount = cfg.PageSize
	c.Store.SetFilter(filter)

	schedule, _ := cfg.Schedule()
	c.Connection = connection.New(dialer,
		connection.WithSchedule(schedule),
		connection.WithPollInterval(cfg.PollInterval),
		connection.WithFallbackAfter(cfg.FallbackAfter),
		connection.WithLogger(o.log),
		connection.WithIncoming(func(n notification.Notification) {
			c.Store.ApplyIncoming(n)
		}),
		connection.WithPoller(func(context.Context) {
			c.Coordinator.Refresh()
		}),
	)
	c.Coordinator = coordinator.New(c.API, c.Store, c.Connection, c.Session, coordinator.WithLogger(o.log))
	c.Gate = tokengate.New(c.Connection, c.Store, tokengate.WithLogger(o.log))

	return c, nil
}

func (c *Client) persister(ctx context.Context) (session.Persister, error) {
	switch {
	case c.cfg.Redis.Enabled():
		rdb, err := session.ConnectRedis(ctx, c.cfg.Redis)
		if err != nil {
			return nil, err
		}
		c.redis = rdb
		return session.NewRedisPersister(rdb, c.cfg.RedisKey), nil
	case c.cfg.SessionFile != "":
		return session.NewFilePersister(c.cfg.SessionFile), nil
	default:
		return nil, nil
	}
}

// Run drives the channel from the session until ctx ends: the gate reacts to
// credential changes and every (re)connect refreshes the store, since pushes
// sent while disconnected are lost.
func (c *Client) Run(ctx context.Context) error {
	statuses := c.Connection.Subscribe(ctx)
	defer func() { _ = statuses.Close() }()
	go func() {
		previous := c.Connection.State()
		for s := range statuses.Receive() {
			if s.State == connection.Connected && previous != connection.Connected {
				c.Coordinator.Refresh()
			}
			previous = s.State
		}
	}()

	changes := c.Session.Watch(ctx)
	defer func() { _ = changes.Close() }()

	err := c.Gate.Run(ctx, changes.Receive())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handler returns the status surface for this client.
func (c *Client) Handler() http.Handler {
	return statusapi.NewHandler(c.Store, c.Connection, c.Coordinator, statusapi.WithLogger(c.log))
}

// Login signs in and stores the credential. A non-empty tenant name is
// resolved first and becomes the session tenant. With an OAuth issuer
// configured the password grant is used, otherwise the account login endpoint.
func (c *Client) Login(ctx context.Context, tenantName, userName, password string) (session.Credential, error) {
	tenant := session.Tenant{}
	if tenantName != "" {
		res, err := c.API.TenantByName(ctx, tenantName)
		if err != nil {
			return session.Credential{}, err
		}
		if tenant, err = session.NewTenant(res.TenantID, res.Name); err != nil {
			return session.Credential{}, err
		}
	}
	if err := c.Session.SetTenant(ctx, tenant); err != nil {
		c.log.LogAttrs(ctx, slog.LevelWarn, "tenant not persisted",
			logger.Component("notifysync"), logger.Error(err))
	}

	var cred session.Credential
	if c.cfg.OAuth.Enabled() {
		var err error
		if cred, err = session.PasswordGrant(ctx, c.cfg.OAuth, tenant, userName, password); err != nil {
			return session.Credential{}, err
		}
	} else {
		res, err := c.API.Login(ctx, userName, password)
		if err != nil {
			return session.Credential{}, err
		}
		cred = session.Credential{Token: res.Token}
	}
	if !cred.Present() {
		return session.Credential{}, fmt.Errorf("login for %s returned no token: %w", userName, session.ErrNoCredential)
	}

	if err := c.Session.SetCredential(ctx, cred); err != nil {
		return cred, err
	}
	c.log.LogAttrs(ctx, slog.LevelInfo, "signed in",
		logger.Component("notifysync"), logger.UserName(userName), logger.TenantID(tenant.ID))
	return cred, nil
}

// Logout revokes the token on the issuer, best effort, and forgets the whole
// session. The gate then clears the store and stops the channel.
func (c *Client) Logout(ctx context.Context) error {
	if token := c.Session.Token(); token != "" {
		if err := c.API.Revoke(ctx, token, c.cfg.OAuth.ClientID); err != nil {
			c.log.LogAttrs(ctx, slog.LevelWarn, "token revocation failed",
				logger.Component("notifysync"), logger.Error(err))
		}
	}
	return c.Session.ClearAll(ctx)
}

// Close stops every component. The session stays persisted.
func (c *Client) Close() error {
	c.Gate.Stop()
	errs := []error{
		c.Coordinator.Close(),
		c.Connection.Close(),
		c.Store.Close(),
	}
	c.closeSession()
	return errors.Join(errs...)
}

func (c *Client) closeSession() {
	if c.Session != nil {
		_ = c.Session.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
}
