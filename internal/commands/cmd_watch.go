package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/notification"
	"github.com/dmitrymomot/notifysync/pkg/statusapi"
	"github.com/dmitrymomot/notifysync/pkg/store"
)

type WatchCmd struct {
	app *App

	// flags
	jsonOutput bool
	addr       string
}

// NewWatchCmd creates a new watch command
func NewWatchCmd(app *App) *WatchCmd {
	return &WatchCmd{app: app}
}

// Register adds the watch and serve commands to the application
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "watch",
			Usage:     "Stream notifications as they arrive",
			UsageText: "notifyd watch [--json]",
			Description: `Connects the push channel with the stored credential and prints every new
notification until interrupted. Connection changes are printed too.
When the channel cannot be established the list is polled instead.`,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:        "json",
					Usage:       "output as JSON lines",
					Destination: &cmd.jsonOutput,
				},
			},
			Action: cmd.watch,
		},
		&cli.Command{
			Name:      "serve",
			Usage:     "Run the client with a local status server",
			UsageText: "notifyd serve [--addr HOST:PORT]",
			Description: `Runs the client and serves its state over HTTP: GET /state, the /stream
event stream and POST endpoints for every command.`,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "addr",
					Usage:       "listen address; defaults to NOTIFY_STATUS_ADDR",
					Destination: &cmd.addr,
				},
			},
			Action: cmd.serve,
		},
	)

	return app
}

func (cmd *WatchCmd) watch(ctx context.Context, c *cli.Command) error {
	client := cmd.app.Client
	out := c.Root().Writer

	g, ctx := errgroup.WithContext(ctx)

	statuses := client.Connection.Subscribe(ctx)
	defer func() { _ = statuses.Close() }()
	g.Go(func() error {
		for s := range statuses.Receive() {
			cmd.printStatus(out, s)
		}
		return nil
	})

	snaps := client.Store.Subscribe(ctx)
	defer func() { _ = snaps.Close() }()
	g.Go(func() error {
		seen := make(map[string]struct{})
		for snap := range snaps.Receive() {
			for _, n := range fresh(snap, seen) {
				if err := cmd.printNotification(out, n); err != nil {
					return err
				}
			}
		}
		return nil
	})

	g.Go(func() error {
		return client.Run(ctx)
	})

	return g.Wait()
}

func (cmd *WatchCmd) serve(ctx context.Context, c *cli.Command) error {
	cfg := cmd.app.Config.Status
	if cmd.addr != "" {
		cfg.Addr = cmd.addr
	}
	srv := statusapi.NewServer(cfg, statusapi.WithServerLogger(cmd.app.Log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cmd.app.Client.Run(ctx)
	})
	g.Go(func() error {
		return srv.Run(ctx, cmd.app.Client.Handler())
	})

	cmd.app.Log.LogAttrs(ctx, slog.LevelInfo, "serving notification state", slog.String("addr", cfg.Addr))
	return g.Wait()
}

// fresh returns the items of snap not recorded in seen, oldest first, and
// records them. A cleared store forgets everything seen.
func fresh(snap store.Snapshot, seen map[string]struct{}) []notification.Notification {
	if len(snap.Items) == 0 {
		clear(seen)
		return nil
	}

	var out []notification.Notification
	for i := len(snap.Items) - 1; i >= 0; i-- {
		n := snap.Items[i]
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out
}

func (cmd *WatchCmd) printNotification(out io.Writer, n notification.Notification) error {
	if cmd.jsonOutput {
		if err := json.NewEncoder(out).Encode(n); err != nil {
			return fmt.Errorf("encode notification: %w", err)
		}
		return nil
	}

	marker := "*"
	if n.Read {
		marker = " "
	}
	_, _ = fmt.Fprintf(out, "%s [%s] %s: %s (%s)\n",
		marker, strings.ToLower(n.Level.String()), n.Title, n.Content, n.ID)
	return nil
}

func (cmd *WatchCmd) printStatus(out io.Writer, s connection.Status) {
	if cmd.jsonOutput {
		return
	}
	if s.LastError != "" {
		_, _ = fmt.Fprintf(out, "-- %s (%s)\n", s.State, s.LastError)
		return
	}
	_, _ = fmt.Fprintf(out, "-- %s\n", s.State)
}
