package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/notifysync/pkg/broadcast"
	"github.com/dmitrymomot/notifysync/pkg/logger"
)

// Persister saves the session between process runs.
// Load returns a zero Session and no error when nothing was saved.
type Persister interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Store is the credential supplier: it holds the current session in memory,
// mirrors it to an optional Persister and publishes credential changes.
type Store struct {
	mu        sync.RWMutex
	current   Session
	persister Persister
	changes   *broadcast.MemoryBroadcaster[Change]
	signOuts  uint64
	log       *slog.Logger
}

// NewStore creates a store. A nil persister keeps the session in memory only.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		persister: p,
		changes:   broadcast.NewMemoryBroadcaster[Change](4),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the persisted session. Subscribers see the restored
// credential as a change when it differs from the current one.
func (s *Store) Restore(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	loaded, err := s.persister.Load(ctx)
	if err != nil {
		return errors.Join(ErrRestore, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := !s.current.Credential.Equal(loaded.Credential)
	s.countSignOutLocked(loaded.Credential)
	s.current = loaded
	if changed {
		s.changes.Publish(s.changeLocked())
	}
	return nil
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Credential returns the current credential and whether a token is present.
func (s *Store) Credential() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Credential, s.current.Credential.Present()
}

// Token returns the raw bearer token, empty when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Credential.Token
}

// TenantID returns the selected tenant identifier, empty for the host.
func (s *Store) TenantID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Tenant.ID
}

// Language returns the selected UI language, empty when unset.
func (s *Store) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Language
}

// SetCredential stores cred and notifies watchers when it differs from the
// current one. The in-memory value is updated even when persisting fails.
func (s *Store) SetCredential(ctx context.Context, cred Credential) error {
	return s.update(ctx, func(cur *Session) bool {
		if cur.Credential.Equal(cred) {
			return false
		}
		cur.Credential = cred
		return true
	})
}

// ClearCredential signs out while keeping tenant and language.
func (s *Store) ClearCredential(ctx context.Context) error {
	return s.SetCredential(ctx, Credential{})
}

// SetTenant selects the tenant sent with each request.
func (s *Store) SetTenant(ctx context.Context, t Tenant) error {
	return s.update(ctx, func(cur *Session) bool {
		cur.Tenant = t
		return false
	})
}

// SetLanguage selects the Accept-Language sent with each request.
func (s *Store) SetLanguage(ctx context.Context, lang string) error {
	return s.update(ctx, func(cur *Session) bool {
		cur.Language = lang
		return false
	})
}

// ClearAll forgets the whole session, including the persisted copy.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	changed := s.current.Credential.Present()
	s.countSignOutLocked(Credential{})
	s.current = Session{}
	if changed {
		s.changes.Publish(s.changeLocked())
	}
	s.mu.Unlock()

	if s.persister == nil {
		return nil
	}
	if err := s.persister.Clear(ctx); err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn, "failed to clear persisted session",
			logger.Component("session"), logger.Error(err))
		return errors.Join(ErrPersist, err)
	}
	return nil
}

// Watch subscribes to credential changes. The subscriber immediately receives
// the current credential so it never has to race a separate read.
func (s *Store) Watch(ctx context.Context) broadcast.Subscriber[Change] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changes.SubscribeFrom(ctx, s.changeLocked())
}

// Close releases watchers.
func (s *Store) Close() error {
	return s.changes.Close()
}

func (s *Store) update(ctx context.Context, mutate func(*Session) bool) error {
	s.mu.Lock()
	prev := s.current.Credential
	if mutate(&s.current) {
		if prev.Present() && !s.current.Credential.Present() {
			s.signOuts++
		}
		// published under the lock so watchers see changes in order
		s.changes.Publish(s.changeLocked())
	}
	snapshot := s.current
	s.mu.Unlock()

	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(ctx, snapshot); err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn, "failed to persist session",
			logger.Component("session"), logger.Error(err))
		return errors.Join(ErrPersist, err)
	}
	return nil
}

func (s *Store) countSignOutLocked(next Credential) {
	if s.current.Credential.Present() && !next.Present() {
		s.signOuts++
	}
}

func (s *Store) changeLocked() Change {
	return Change{
		Credential: s.current.Credential,
		Present:    s.current.Credential.Present(),
		SignOuts:   s.signOuts,
	}
}
