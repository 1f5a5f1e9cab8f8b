package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifysync/pkg/session"
)

type memoryPersister struct {
	saved   session.Session
	saves   int
	cleared int
	err     error
}

func (p *memoryPersister) Load(context.Context) (session.Session, error) {
	return p.saved, p.err
}

func (p *memoryPersister) Save(_ context.Context, s session.Session) error {
	if p.err != nil {
		return p.err
	}
	p.saved = s
	p.saves++
	return nil
}

func (p *memoryPersister) Clear(context.Context) error {
	if p.err != nil {
		return p.err
	}
	p.saved = session.Session{}
	p.cleared++
	return nil
}

func receive(t *testing.T, ch <-chan session.Change) session.Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(time.Second):
		t.Fatal("no change received")
		return session.Change{}
	}
}

func assertNoChange(t *testing.T, ch <-chan session.Change) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change: %+v", c)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestStore_WatchSeedsCurrent(t *testing.T) {
	t.Parallel()

	st := session.NewStore(nil)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.SetCredential(ctx, session.Credential{Token: "abc"}))

	sub := st.Watch(ctx)
	c := receive(t, sub.Receive())
	assert.True(t, c.Present)
	assert.Equal(t, "abc", c.Credential.Token)
}

func TestStore_CredentialChanges(t *testing.T) {
	t.Parallel()

	st := session.NewStore(nil)
	defer st.Close()

	ctx := context.Background()
	sub := st.Watch(ctx)
	initial := receive(t, sub.Receive())
	assert.False(t, initial.Present)

	require.NoError(t, st.SetCredential(ctx, session.Credential{Token: "abc"}))
	assert.Equal(t, "abc", receive(t, sub.Receive()).Credential.Token)

	t.Run("same credential publishes nothing", func(t *testing.T) {
		require.NoError(t, st.SetCredential(ctx, session.Credential{Token: "abc"}))
		assertNoChange(t, sub.Receive())
	})

	t.Run("tenant and language publish nothing", func(t *testing.T) {
		require.NoError(t, st.SetTenant(ctx, session.Tenant{ID: "t1"}))
		require.NoError(t, st.SetLanguage(ctx, "de"))
		assertNoChange(t, sub.Receive())
		assert.Equal(t, "t1", st.TenantID())
		assert.Equal(t, "de", st.Language())
	})

	t.Run("clear credential keeps context", func(t *testing.T) {
		require.NoError(t, st.ClearCredential(ctx))
		c := receive(t, sub.Receive())
		assert.False(t, c.Present)
		assert.Empty(t, st.Token())
		assert.Equal(t, "t1", st.TenantID())
	})
}

func TestStore_SignOutsSurviveDroppedChanges(t *testing.T) {
	t.Parallel()

	st := session.NewStore(nil)
	defer st.Close()

	ctx := context.Background()
	sub := st.Watch(ctx)
	assert.Zero(t, receive(t, sub.Receive()).SignOuts)

	// Nobody reads while two users sign in and out, so intermediate
	// changes overflow the watcher buffer.
	for _, tok := range []string{"alice-1", "alice-2", "bob"} {
		require.NoError(t, st.SetCredential(ctx, session.Credential{Token: tok}))
		if tok == "alice-2" {
			require.NoError(t, st.ClearCredential(ctx))
		}
	}
	require.NoError(t, st.SetCredential(ctx, session.Credential{Token: "bob-2"}))
	require.NoError(t, st.SetCredential(ctx, session.Credential{Token: "bob-3"}))
	require.NoError(t, st.SetCredential(ctx, session.Credential{Token: "bob-4"}))

	var last session.Change
	for {
		select {
		case c := <-sub.Receive():
			last = c
			continue
		case <-time.After(50 * time.Millisecond):
		}
		break
	}
	assert.Equal(t, "bob-4", last.Credential.Token)
	assert.Equal(t, uint64(1), last.SignOuts)

	require.NoError(t, st.ClearAll(ctx))
	assert.Equal(t, uint64(2), receive(t, sub.Receive()).SignOuts)
}

func TestStore_Persistence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := &memoryPersister{saved: session.Session{
		Credential: session.Credential{Token: "restored"},
		Language:   "en",
	}}

	st := session.NewStore(p)
	defer st.Close()

	require.NoError(t, st.Restore(ctx))
	cred, ok := st.Credential()
	assert.True(t, ok)
	assert.Equal(t, "restored", cred.Token)
	assert.Equal(t, "en", st.Language())

	require.NoError(t, st.SetCredential(ctx, session.Credential{Token: "next"}))
	assert.Equal(t, "next", p.saved.Credential.Token)
	assert.Equal(t, "en", p.saved.Language)

	require.NoError(t, st.ClearAll(ctx))
	assert.Equal(t, 1, p.cleared)
	assert.Equal(t, session.Session{}, st.Snapshot())
}

func TestStore_PersistFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := &memoryPersister{err: errors.New("disk full")}
	st := session.NewStore(p)
	defer st.Close()

	err := st.SetCredential(ctx, session.Credential{Token: "abc"})
	assert.ErrorIs(t, err, session.ErrPersist)
	assert.Equal(t, "abc", st.Token(), "memory copy is updated regardless")

	assert.ErrorIs(t, st.Restore(ctx), session.ErrRestore)
	assert.ErrorIs(t, st.ClearAll(ctx), session.ErrPersist)
}
