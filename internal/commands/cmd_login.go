package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type LoginCmd struct {
	app *App

	// flags
	tenant   string
	user     string
	password string
}

// NewLoginCmd creates a new login command
func NewLoginCmd(app *App) *LoginCmd {
	return &LoginCmd{app: app}
}

// Register adds the login and logout commands to the application
func (cmd *LoginCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "login",
			Usage:     "Sign in and store the credential",
			UsageText: "notifyd login --user NAME [--tenant NAME] [--password SECRET]",
			Description: `Signs in against the identity server (password grant) when NOTIFY_OAUTH_ISSUER
is set, otherwise against the account login endpoint. The credential and
tenant are written to the configured session store.`,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "tenant",
					Aliases:     []string{"t"},
					Usage:       "tenant name; empty selects the host",
					Sources:     cli.EnvVars("NOTIFY_TENANT"),
					Destination: &cmd.tenant,
				},
				&cli.StringFlag{
					Name:        "user",
					Aliases:     []string{"u"},
					Usage:       "user name or email",
					Required:    true,
					Destination: &cmd.user,
				},
				&cli.StringFlag{
					Name:        "password",
					Aliases:     []string{"p"},
					Usage:       "password",
					Sources:     cli.EnvVars("NOTIFY_PASSWORD"),
					Required:    true,
					Destination: &cmd.password,
				},
			},
			Action: cmd.login,
		},
		&cli.Command{
			Name:   "logout",
			Usage:  "Revoke and forget the stored credential",
			Action: cmd.logout,
		},
	)

	return app
}

func (cmd *LoginCmd) login(ctx context.Context, c *cli.Command) error {
	cred, err := cmd.app.Client.Login(ctx, cmd.tenant, cmd.user, cmd.password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	out := c.Root().Writer
	if exp, ok := cred.ExpiresAt(); ok {
		_, _ = fmt.Fprintf(out, "signed in as %s, token expires %s\n", cmd.user, exp.Local().Format("2006-01-02 15:04"))
		return nil
	}
	_, _ = fmt.Fprintf(out, "signed in as %s\n", cmd.user)
	return nil
}

func (cmd *LoginCmd) logout(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Client.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	_, _ = fmt.Fprintln(c.Root().Writer, "signed out")
	return nil
}
