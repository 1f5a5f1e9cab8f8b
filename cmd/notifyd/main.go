package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/notifysync"
	"github.com/dmitrymomot/notifysync/internal/commands"
	"github.com/dmitrymomot/notifysync/pkg/logger"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

func build() string {
	v, c := version, commit
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
				}
			}
		}
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return fmt.Sprintf("%s (%s)", v, c)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var (
		flags = &commands.Flags{}
		app   = &commands.App{}
	)

	root := &cli.Command{
		Name:      "notifyd",
		Usage:     "Real-time notification client",
		UsageText: "notifyd [global options] command [command options]",
		Description: `notifyd keeps the signed-in user's notifications in sync with the backend.

Configuration is read from NOTIFY_* environment variables and optional .env
files. Run 'notifyd login' once, then 'notifyd watch' or 'notifyd serve'.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:        "env-file",
				Aliases:     []string{"e"},
				Usage:       "load variables from these .env files first",
				Destination: &flags.EnvFiles,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("NOTIFY_LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := notifysync.LoadConfig(flags.EnvFiles...)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.LogLevel != "" {
				cfg.LogLevel = flags.LogLevel
			}
			log := cfg.NewLogger("notifyd")

			client, err := notifysync.New(ctx, cfg, notifysync.WithLogger(log))
			if err != nil {
				return ctx, fmt.Errorf("create client: %w", err)
			}

			*app = commands.App{Config: cfg, Log: log, Client: client}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if app.Client == nil {
				return nil
			}
			if err := app.Client.Close(); err != nil {
				app.Log.ErrorContext(ctx, "close client", logger.Error(err))
				return err
			}
			return nil
		},
	}

	root = commands.NewLoginCmd(app).Register(root)
	root = commands.NewListCmd(app).Register(root)
	root = commands.NewSendCmd(app).Register(root)
	root = commands.NewWatchCmd(app).Register(root)

	exitCode := 0
	if err := root.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}

	stop()
	os.Exit(exitCode)
}
