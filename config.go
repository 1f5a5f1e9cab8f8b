package notifysync

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/dmitrymomot/notifysync/pkg/config"
	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/session"
	"github.com/dmitrymomot/notifysync/pkg/signalr"
	"github.com/dmitrymomot/notifysync/pkg/statusapi"
)

// EnvPrefix is prepended to every configuration variable.
const EnvPrefix = "NOTIFY_"

// ErrInvalidConfig wraps every validation failure of Config.
var ErrInvalidConfig = errors.New("notifysync: invalid configuration")

// Config is the client configuration, read from NOTIFY_* variables.
type Config struct {
	APIURL            string        `env:"API_URL,required"`
	HubPath           string        `env:"HUB_PATH" envDefault:"signalr-hubs/notifications"`
	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
	ReconnectSchedule string        `env:"RECONNECT_SCHEDULE" envDefault:"0s,2s,10s,30s"`
	FallbackAfter     int           `env:"FALLBACK_AFTER" envDefault:"1"`
	PageSize          int           `env:"PAGE_SIZE" envDefault:"20"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" envDefault:"0s"`
	Language          string        `env:"LANGUAGE"`

	// LogLevel and LogFormat override the defaults of Env when set.
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`
	Env       string `env:"ENV" envDefault:"development"`

	SessionFile string `env:"SESSION_FILE"`
	RedisKey    string `env:"REDIS_KEY"`

	Redis  session.RedisConfig
	OAuth  session.OAuthConfig
	Status statusapi.Config
}

// LoadConfig reads Config from the environment, after the given .env files.
func LoadConfig(envFiles ...string) (Config, error) {
	opts := []config.Option{config.WithPrefix(EnvPrefix)}
	if len(envFiles) > 0 {
		opts = append(opts, config.WithEnvFiles(envFiles...))
	}

	var cfg Config
	if err := config.Parse(&cfg, opts...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values env parsing cannot.
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_URL %q must be an absolute http(s) URL", c.APIURL))
	}
	if _, err := c.Schedule(); err != nil {
		errs = append(errs, fmt.Errorf("RECONNECT_SCHEDULE: %w", err))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL must be positive"))
	}
	if c.FallbackAfter < 0 {
		errs = append(errs, errors.New("FALLBACK_AFTER must not be negative"))
	}
	if c.PageSize <= 0 {
		errs = append(errs, errors.New("PAGE_SIZE must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

// Schedule parses ReconnectSchedule.
func (c Config) Schedule() (connection.Schedule, error) {
	return connection.ParseSchedule(c.ReconnectSchedule)
}

func (c Config) hubPath() string {
	if c.HubPath == "" {
		return signalr.DefaultHubPath
	}
	return c.HubPath
}

// NewLogger builds the process logger for c. Records go to stderr so
// command output on stdout stays clean.
func (c Config) NewLogger(service string) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(c.Env, service),
		logger.WithOutput(os.Stderr),
		logger.WithContextExtractors(statusapi.RequestIDExtractor()),
	}
	if c.LogLevel != "" {
		opts = append(opts, logger.WithLevel(logger.ParseLevel(c.LogLevel)))
	}
	switch logger.Format(c.LogFormat) {
	case logger.FormatJSON, logger.FormatText:
		opts = append(opts, logger.WithFormat(logger.Format(c.LogFormat)))
	}
	return logger.New(opts...)
}
