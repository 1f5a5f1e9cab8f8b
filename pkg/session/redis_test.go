package session_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifysync/pkg/session"
)

func TestConnectRedis_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := session.ConnectRedis(context.Background(), session.RedisConfig{ConnectionURL: "://nope"})
	assert.ErrorIs(t, err, session.ErrFailedToParseRedisConnString)
}

func TestRedisPersister(t *testing.T) {
	url := os.Getenv("NOTIFY_TEST_REDIS_URL")
	if url == "" {
		t.Skip("NOTIFY_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := session.ConnectRedis(ctx, session.RedisConfig{
		ConnectionURL:  url,
		RetryAttempts:  1,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	p := session.NewRedisPersister(client, "notifysync:test:"+t.Name())
	t.Cleanup(func() { _ = p.Clear(ctx) })

	empty, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Session{}, empty)

	want := session.Session{
		Credential: session.Credential{Token: "abc", ExpireTime: 1700000000000},
		Tenant:     session.Tenant{ID: "t1", Name: "acme"},
		Language:   "de",
	}
	require.NoError(t, p.Save(ctx, want))

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, p.Clear(ctx))
	got, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Session{}, got)
}
