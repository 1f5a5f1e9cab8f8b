package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding the session when no key is given.
const DefaultRedisKey = "notifysync:session"

// RedisConfig describes the redis connection used by RedisPersister.
type RedisConfig struct {
	ConnectionURL  string        `env:"REDIS_URL"`                            // redis://:password@localhost:6379/0
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`  // ping attempts before giving up
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"` // wait between attempts
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"10s"`
}

// Enabled reports whether a redis URL is configured.
func (c RedisConfig) Enabled() bool {
	return c.ConnectionURL != ""
}

// ConnectRedis opens a client and pings it until it answers, retrying up to
// cfg.RetryAttempts times within cfg.ConnectTimeout.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	for range max(cfg.RetryAttempts, 1) {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrRedisNotReady
}

// RedisPersister keeps the session in a redis hash, so several client
// processes on one host can share a sign-in.
type RedisPersister struct {
	client redis.Cmdable
	key    string
}

// NewRedisPersister stores the session under key, or DefaultRedisKey when empty.
func NewRedisPersister(client redis.Cmdable, key string) *RedisPersister {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisPersister{client: client, key: key}
}

const (
	fieldToken      = "token"
	fieldExpireTime = "expire_time"
	fieldTenantID   = "tenant_id"
	fieldTenantName = "tenant_name"
	fieldLanguage   = "language"
)

func (p *RedisPersister) Load(ctx context.Context) (Session, error) {
	fields, err := p.client.HGetAll(ctx, p.key).Result()
	if err != nil {
		return Session{}, fmt.Errorf("redis hgetall %s: %w", p.key, err)
	}
	if len(fields) == 0 {
		return Session{}, nil
	}

	s := Session{
		Credential: Credential{Token: fields[fieldToken]},
		Tenant:     Tenant{ID: fields[fieldTenantID], Name: fields[fieldTenantName]},
		Language:   fields[fieldLanguage],
	}
	if raw := fields[fieldExpireTime]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Session{}, fmt.Errorf("redis field %s: %w", fieldExpireTime, err)
		}
		s.Credential.ExpireTime = ms
	}
	return s, nil
}

func (p *RedisPersister) Save(ctx context.Context, s Session) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.key)
		pipe.HSet(ctx, p.key,
			fieldToken, s.Credential.Token,
			fieldExpireTime, strconv.FormatInt(s.Credential.ExpireTime, 10),
			fieldTenantID, s.Tenant.ID,
			fieldTenantName, s.Tenant.Name,
			fieldLanguage, s.Language,
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", p.key, err)
	}
	return nil
}

func (p *RedisPersister) Clear(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", p.key, err)
	}
	return nil
}
