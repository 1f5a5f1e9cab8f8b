package config

import (
	"errors"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option customizes Load and Parse.
type Option func(*options)

type options struct {
	prefix   string
	envFiles []string
}

// WithPrefix requires every variable to carry prefix, so NOTIFY_ with
// `env:"API_URL"` reads NOTIFY_API_URL.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvFiles loads the given .env files before parsing. Later files win
// over earlier ones and over the process environment. Missing files are an
// error.
func WithEnvFiles(paths ...string) Option {
	return func(o *options) { o.envFiles = append(o.envFiles, paths...) }
}

type cacheKey struct {
	typ    reflect.Type
	prefix string
}

var (
	cacheMu sync.Mutex
	cache   = map[cacheKey]any{}

	defaultEnvOnce sync.Once
)

// Load parses T once per type and prefix and serves later calls from
// memory. The .env file in the working directory is read first, if present.
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}
	defaultEnvOnce.Do(func() { _ = godotenv.Load() })

	o := apply(opts)
	key := cacheKey{typ: reflect.TypeFor[T](), prefix: o.prefix}

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}
	if err := parse(v, o); err != nil {
		return err
	}
	cache[key] = *v
	return nil
}

// Parse fills v from the environment without touching the cache.
func Parse[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}
	return parse(v, apply(opts))
}

// LoadEnv applies .env files to the process environment; with no paths the
// .env of the working directory is used.
func LoadEnv(paths ...string) error {
	if err := godotenv.Overload(paths...); err != nil {
		return errors.Join(ErrEnvFile, err)
	}
	return nil
}

// Reset forgets every cached configuration.
func Reset() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	clear(cache)
}

func apply(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func parse[T any](v *T, o options) error {
	if len(o.envFiles) > 0 {
		if err := LoadEnv(o.envFiles...); err != nil {
			return err
		}
	}
	if err := env.ParseWithOptions(v, env.Options{Prefix: o.prefix}); err != nil {
		return errors.Join(ErrParse, err)
	}
	return nil
}
