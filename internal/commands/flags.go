package commands

import (
	"log/slog"

	"github.com/dmitrymomot/notifysync"
)

// Flags holds the global flags.
type Flags struct {
	EnvFiles []string
	LogLevel string
}

// App is populated in the Before hook and shared by every command.
type App struct {
	Config notifysync.Config
	Log    *slog.Logger
	Client *notifysync.Client
}
