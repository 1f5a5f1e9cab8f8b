package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/notifysync/pkg/notification"
)

type SendCmd struct {
	app *App

	// flags
	title     string
	level     string
	toID      string
	toName    string
	broadcast bool
}

// NewSendCmd creates a new send command
func NewSendCmd(app *App) *SendCmd {
	return &SendCmd{app: app}
}

// Register adds the send command to the application
func (cmd *SendCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "send",
		Usage:     "Send a notification to a user or to everyone",
		UsageText: "notifyd send --title TITLE [--level NAME] (--to-id ID | --to-name NAME | --broadcast) CONTENT...",
		Description: `Sends a notification through the endpoint of its level. The content is the
remaining arguments joined by spaces.

Sent notifications are not added to the local list; they arrive by push or
on the next fetch like any other.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "title",
				Required:    true,
				Destination: &cmd.title,
			},
			&cli.StringFlag{
				Name:        "level",
				Aliases:     []string{"l"},
				Usage:       "warning, information or error",
				Value:       "information",
				Destination: &cmd.level,
			},
			&cli.StringFlag{
				Name:        "to-id",
				Usage:       "recipient user id",
				Destination: &cmd.toID,
			},
			&cli.StringFlag{
				Name:        "to-name",
				Usage:       "recipient user name",
				Destination: &cmd.toName,
			},
			&cli.BoolFlag{
				Name:        "broadcast",
				Aliases:     []string{"b"},
				Usage:       "send to every user",
				Destination: &cmd.broadcast,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SendCmd) input(args []string) (notification.CreateInput, error) {
	level, ok := notification.ParseLevel(cmd.level)
	if !ok {
		return notification.CreateInput{}, fmt.Errorf("unknown level %q", cmd.level)
	}
	content := strings.TrimSpace(strings.Join(args, " "))
	if content == "" {
		return notification.CreateInput{}, fmt.Errorf("send needs content")
	}
	if !cmd.broadcast && cmd.toID == "" && cmd.toName == "" {
		return notification.CreateInput{}, fmt.Errorf("send needs --to-id, --to-name or --broadcast")
	}
	return notification.CreateInput{
		Title:           cmd.title,
		Content:         content,
		Level:           level,
		ReceiveUserID:   cmd.toID,
		ReceiveUserName: cmd.toName,
	}, nil
}

func (cmd *SendCmd) run(ctx context.Context, c *cli.Command) error {
	in, err := cmd.input(c.Args().Slice())
	if err != nil {
		return err
	}

	coord := cmd.app.Client.Coordinator
	future := coord.Send(in)
	if cmd.broadcast {
		future = coord.Broadcast(in)
	}
	if _, err := future.AwaitContext(ctx); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	target := "everyone"
	switch {
	case cmd.broadcast:
	case cmd.toName != "":
		target = cmd.toName
	default:
		target = cmd.toID
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "%s notification sent to %s\n", strings.ToLower(in.Level.String()), target)
	return nil
}
