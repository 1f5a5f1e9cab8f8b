package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notifysync/pkg/async"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/notification"
	"github.com/dmitrymomot/notifysync/pkg/session"
	"github.com/dmitrymomot/notifysync/pkg/store"
)

// API is the subset of the backend client the coordinator drives.
type API interface {
	GetPage(ctx context.Context, f notification.Filter) (notification.PagedResult, error)
	MarkRead(ctx context.Context, id string) error
	Send(ctx context.Context, in notification.CreateInput) error
	Broadcast(ctx context.Context, in notification.CreateInput) error
}

// Connector starts and stops the push channel.
type Connector interface {
	Start(cred session.Credential) error
	Stop()
}

// CredentialSource yields the current credential.
type CredentialSource interface {
	Credential() (session.Credential, bool)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the command logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock sets the time source used for read timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// Coordinator turns commands into backend calls and applies their results
// to the store. Commands never block the caller: each returns a Future that
// resolves to true when its result was applied.
//
// Fetch, Refresh and LoadMore each keep their own sequence, and only the
// latest read of a kind may touch the store. A Fetch also supersedes pending
// Refresh and LoadMore reads, a Refresh supersedes a pending LoadMore, and a
// store Clear supersedes everything issued before it. MarkRead and the send
// commands each run through their own FIFO queue, so none is dropped.
type Coordinator struct {
	api   API
	st    *store.Store
	conn  Connector
	creds CredentialSource
	log   *slog.Logger
	now   func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// lifeMu orders wg.Add against Close.
	lifeMu   sync.Mutex
	isClosed bool
	wg       sync.WaitGroup

	// applyMu serializes read issuance with the stale check and apply.
	applyMu   sync.Mutex
	seq       [readKinds]uint64
	filterGen uint64
	listGen   uint64
	pending   int
	replacing int

	markQ *fifo
	sendQ *fifo
}

type readKind int

const (
	readFetch readKind = iota
	readRefresh
	readLoadMore
	readKinds
)

func (k readKind) String() string {
	switch k {
	case readFetch:
		return "fetch"
	case readRefresh:
		return "refresh"
	default:
		return "load_more"
	}
}

func (k readKind) replaces() bool {
	return k != readLoadMore
}

// ticket captures the generations a read was issued under.
type ticket struct {
	kind      readKind
	seq       uint64
	filterGen uint64
	listGen   uint64
	epoch     uint64
}

// New creates a coordinator.
func New(api API, st *store.Store, conn Connector, creds CredentialSource, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		api:    api,
		st:     st,
		conn:   conn,
		creds:  creds,
		log:    slog.Default(),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.markQ = newFIFO(store.KindMarkRead, st, &c.wg)
	c.sendQ = newFIFO(store.KindSend, st, &c.wg)
	return c
}

// Close cancels outstanding backend calls and waits for running commands.
// Commands issued after Close resolve with ErrClosed.
func (c *Coordinator) Close() error {
	c.lifeMu.Lock()
	c.isClosed = true
	c.lifeMu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

// acquire registers one running command. The caller must call wg.Done when
// acquire reports true.
func (c *Coordinator) acquire() bool {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.isClosed {
		return false
	}
	c.wg.Add(1)
	return true
}

func (c *Coordinator) closed() bool {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	return c.isClosed
}

// Connect starts the push channel with the current credential.
func (c *Coordinator) Connect() *async.Future[bool] {
	if c.closed() {
		return async.Resolved(false, ErrClosed)
	}

	cred, _ := c.creds.Credential()
	if err := c.conn.Start(cred); err != nil {
		c.log.LogAttrs(c.ctx, slog.LevelWarn, "connect rejected",
			logger.Component("coordinator"), logger.Command("connect"), logger.Error(err))
		return async.Resolved(false, err)
	}
	return async.Resolved(true, nil)
}

// Disconnect stops the push channel and any pending retry or poll.
func (c *Coordinator) Disconnect() *async.Future[bool] {
	c.conn.Stop()
	return async.Resolved(true, nil)
}

// Fetch makes f the active filter and replaces the loaded sequence with its
// first page.
func (c *Coordinator) Fetch(f notification.Filter) *async.Future[bool] {
	return c.read(readFetch, func() (notification.Filter, bool) {
		c.st.SetFilter(f)
		return f, true
	})
}

// Refresh reloads the active filter from offset zero. The polling fallback
// uses it.
func (c *Coordinator) Refresh() *async.Future[bool] {
	return c.read(readRefresh, func() (notification.Filter, bool) {
		return c.st.Filter().WithSkip(0), true
	})
}

// LoadMore appends the next page of the active filter. It resolves to false
// without a backend call when everything is loaded or while a Fetch or
// Refresh is still replacing the sequence it would extend.
func (c *Coordinator) LoadMore() *async.Future[bool] {
	return c.read(readLoadMore, func() (notification.Filter, bool) {
		if c.replacing > 0 {
			return notification.Filter{}, false
		}
		snap := c.st.Snapshot()
		if !snap.HasMore() {
			return notification.Filter{}, false
		}
		return snap.Filter.WithSkip(len(snap.Items)), true
	})
}

// read issues one read of kind. prepare runs under applyMu and yields the
// query, or false to resolve without a backend call.
func (c *Coordinator) read(kind readKind, prepare func() (notification.Filter, bool)) *async.Future[bool] {
	if !c.acquire() {
		return async.Resolved(false, ErrClosed)
	}

	c.applyMu.Lock()
	epoch := c.st.Epoch()
	f, ok := prepare()
	if !ok {
		c.applyMu.Unlock()
		c.wg.Done()
		return async.Resolved(false, nil)
	}

	c.seq[kind]++
	switch kind {
	case readFetch:
		c.filterGen++
		c.listGen++
	case readRefresh:
		c.listGen++
	}
	t := ticket{kind: kind, seq: c.seq[kind], filterGen: c.filterGen, listGen: c.listGen, epoch: epoch}
	if kind.replaces() {
		c.replacing++
	}
	c.pending++
	c.st.SetInFlight(store.KindFetch, true)
	c.applyMu.Unlock()

	future, resolve := async.NewPromise[bool]()
	go func() {
		defer c.wg.Done()
		resolve(c.apply(t, f))
	}()
	return future
}

// stale reports whether a later command superseded t. Callers hold applyMu.
func (c *Coordinator) stale(t ticket) bool {
	if t.seq != c.seq[t.kind] || t.epoch != c.st.Epoch() {
		return true
	}
	switch t.kind {
	case readRefresh:
		return t.filterGen != c.filterGen
	case readLoadMore:
		return t.listGen != c.listGen
	}
	return false
}

func (c *Coordinator) apply(t ticket, f notification.Filter) (bool, error) {
	page, err := c.api.GetPage(c.ctx, f)

	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.pending--
	if t.kind.replaces() {
		c.replacing--
	}
	if c.pending == 0 {
		c.st.SetInFlight(store.KindFetch, false)
	}

	if c.stale(t) {
		c.log.LogAttrs(c.ctx, slog.LevelDebug, "stale read discarded",
			logger.Component("coordinator"), logger.Command(t.kind.String()))
		return false, nil
	}

	if err != nil {
		c.st.Fail(store.KindFetch, displayMessage(err))
		c.log.LogAttrs(c.ctx, slog.LevelWarn, "read failed",
			logger.Component("coordinator"), logger.Command(t.kind.String()), logger.Error(err))
		return false, err
	}

	if !c.st.ApplyFetchResultAt(t.epoch, page.Items, page.TotalCount, t.kind.replaces()) {
		c.log.LogAttrs(c.ctx, slog.LevelDebug, "read discarded after clear",
			logger.Component("coordinator"), logger.Command(t.kind.String()))
		return false, nil
	}
	c.st.Succeed(store.KindFetch)
	return true, nil
}

// MarkRead flags id as read on the backend, then locally. Nothing changes
// locally when the call fails.
func (c *Coordinator) MarkRead(id string) *async.Future[bool] {
	if !c.acquire() {
		return async.Resolved(false, ErrClosed)
	}

	future, resolve := async.NewPromise[bool]()
	c.markQ.push(func() {
		defer c.wg.Done()
		if err := c.api.MarkRead(c.ctx, id); err != nil {
			c.st.Fail(store.KindMarkRead, displayMessage(err))
			c.log.LogAttrs(c.ctx, slog.LevelWarn, "mark read failed",
				logger.Component("coordinator"), logger.NotificationID(id), logger.Error(err))
			resolve(false, err)
			return
		}

		changed := c.st.ApplyMarkRead(id, notification.At(c.now()))
		c.st.Succeed(store.KindMarkRead)
		resolve(changed, nil)
	})
	return future
}

// Send delivers in to its recipient. Sent notifications are not inserted
// locally; they arrive by fetch or push like any other.
func (c *Coordinator) Send(in notification.CreateInput) *async.Future[bool] {
	return c.send("send", in, c.api.Send)
}

// Broadcast delivers in to every user.
func (c *Coordinator) Broadcast(in notification.CreateInput) *async.Future[bool] {
	return c.send("broadcast", in, c.api.Broadcast)
}

func (c *Coordinator) send(cmd string, in notification.CreateInput, call func(context.Context, notification.CreateInput) error) *async.Future[bool] {
	if c.closed() {
		return async.Resolved(false, ErrClosed)
	}
	if !in.Level.Valid() {
		c.st.Fail(store.KindSend, ErrUnknownLevel.Error())
		return async.Resolved(false, ErrUnknownLevel)
	}
	if !c.acquire() {
		return async.Resolved(false, ErrClosed)
	}

	future, resolve := async.NewPromise[bool]()
	c.sendQ.push(func() {
		defer c.wg.Done()
		if err := call(c.ctx, in); err != nil {
			c.st.Fail(store.KindSend, displayMessage(err))
			c.log.LogAttrs(c.ctx, slog.LevelWarn, "send failed",
				logger.Component("coordinator"), logger.Command(cmd), logger.Error(err))
			resolve(false, err)
			return
		}

		c.st.Succeed(store.KindSend)
		c.log.LogAttrs(c.ctx, slog.LevelInfo, "notification sent",
			logger.Component("coordinator"), logger.Command(cmd),
			slog.String("level", in.Level.String()))
		resolve(true, nil)
	})
	return future
}
