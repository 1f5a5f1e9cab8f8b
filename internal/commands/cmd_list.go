package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/notifysync/pkg/notification"
)

type ListCmd struct {
	app *App

	// flags
	skip       int
	limit      int
	all        bool
	unread     bool
	level      string
	title      string
	jsonOutput bool
}

// NewListCmd creates a new list command
func NewListCmd(app *App) *ListCmd {
	return &ListCmd{app: app}
}

// Register adds the list, read and users commands to the application
func (cmd *ListCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "list",
			Aliases:   []string{"ls"},
			Usage:     "List notifications",
			UsageText: "notifyd list [--unread] [--level NAME] [--all] [--json]",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:        "skip",
					Usage:       "number of notifications to skip",
					Destination: &cmd.skip,
				},
				&cli.IntFlag{
					Name:        "limit",
					Usage:       "page size; defaults to NOTIFY_PAGE_SIZE",
					Destination: &cmd.limit,
				},
				&cli.BoolFlag{
					Name:        "all",
					Usage:       "keep loading pages until the list is complete",
					Destination: &cmd.all,
				},
				&cli.BoolFlag{
					Name:        "unread",
					Usage:       "only unread notifications",
					Destination: &cmd.unread,
				},
				&cli.StringFlag{
					Name:        "level",
					Usage:       "only this level (warning, information, error)",
					Destination: &cmd.level,
				},
				&cli.StringFlag{
					Name:        "title",
					Usage:       "title contains",
					Destination: &cmd.title,
				},
				&cli.BoolFlag{
					Name:        "json",
					Usage:       "output as JSON lines",
					Destination: &cmd.jsonOutput,
				},
			},
			Action: cmd.list,
		},
		&cli.Command{
			Name:      "read",
			Usage:     "Mark notifications as read",
			UsageText: "notifyd read ID [ID...]",
			Action:    cmd.read,
		},
		&cli.Command{
			Name:      "users",
			Usage:     "List recipient candidates",
			UsageText: "notifyd users [--skip N] [--limit N]",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:        "skip",
					Destination: &cmd.skip,
				},
				&cli.IntFlag{
					Name:        "limit",
					Value:       notification.DefaultPageSize,
					Destination: &cmd.limit,
				},
			},
			Action: cmd.users,
		},
	)

	return app
}

func (cmd *ListCmd) filter() (notification.Filter, error) {
	f := notification.DefaultFilter()
	f.MaxResultCount = cmd.app.Config.PageSize
	if cmd.limit > 0 {
		f.MaxResultCount = cmd.limit
	}
	f.SkipCount = max(cmd.skip, 0)
	if cmd.unread {
		read := false
		f.Read = &read
	}
	if cmd.level != "" {
		level, ok := notification.ParseLevel(cmd.level)
		if !ok {
			return f, fmt.Errorf("unknown level %q", cmd.level)
		}
		f.Level = &level
	}
	if cmd.title != "" {
		f.Title = &cmd.title
	}
	return f, nil
}

func (cmd *ListCmd) list(ctx context.Context, c *cli.Command) error {
	f, err := cmd.filter()
	if err != nil {
		return err
	}

	coord := cmd.app.Client.Coordinator
	if _, err := coord.Fetch(f).AwaitContext(ctx); err != nil {
		return fmt.Errorf("fetch notifications: %w", err)
	}
	for cmd.all {
		more, err := coord.LoadMore().AwaitContext(ctx)
		if err != nil {
			return fmt.Errorf("load more notifications: %w", err)
		}
		if !more {
			break
		}
	}

	snap := cmd.app.Client.Store.Snapshot()
	out := c.Root().Writer

	if cmd.jsonOutput {
		enc := json.NewEncoder(out)
		for _, n := range snap.Items {
			if err := enc.Encode(n); err != nil {
				return fmt.Errorf("encode notification: %w", err)
			}
		}
		return nil
	}

	writeNotifications(out, snap.Items)
	_, _ = fmt.Fprintf(out, "\n%d of %d shown, %d unread\n", len(snap.Items), snap.TotalCount, snap.Unread())
	return nil
}

func (cmd *ListCmd) read(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("read needs at least one notification id")
	}

	out := c.Root().Writer
	for _, id := range c.Args().Slice() {
		if _, err := cmd.app.Client.Coordinator.MarkRead(id).AwaitContext(ctx); err != nil {
			return fmt.Errorf("mark %s read: %w", id, err)
		}
		_, _ = fmt.Fprintf(out, "%s marked read\n", id)
	}
	return nil
}

func (cmd *ListCmd) users(ctx context.Context, c *cli.Command) error {
	list, err := cmd.app.Client.API.Users(ctx, cmd.skip, cmd.limit)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tUSER\tNAME\tEMAIL")
	for _, u := range list.Items {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.UserName, u.Name, u.Email)
	}
	return w.Flush()
}

func writeNotifications(out io.Writer, items []notification.Notification) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tLEVEL\tREAD\tCREATED\tFROM\tTITLE")
	for _, n := range items {
		created := ""
		if !n.CreationTime.IsZero() {
			created = n.CreationTime.Local().Format("2006-01-02 15:04")
		}
		read := ""
		if n.Read {
			read = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			n.ID, strings.ToLower(n.Level.String()), read, created, n.SenderUserName, n.Title)
	}
	_ = w.Flush()
}
