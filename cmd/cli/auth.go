package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the service",
		Long: `Exchange a username and password for a token and store it for later
commands. Missing credentials are prompted for when running in a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(username) == 0 || len(password) == 0 {
				if err := promptCredentials(&username, &password); err != nil {
					return err
				}
			}

			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			session, err := a.api.Login(ctx, username, password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render("Login successful!"))
			fmt.Fprintf(out, "Service: %s\n", a.api.GetBaseURL())
			fmt.Fprintf(out, "Logged in at: %s\n", session.IssuedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", os.Getenv("PROPEL_USERNAME"), "Username (env PROPEL_USERNAME)")
	cmd.Flags().StringVarP(&password, "password", "p", os.Getenv("PROPEL_PASSWORD"), "Password (env PROPEL_PASSWORD)")

	return cmd
}

// promptCredentials asks for whatever is missing. Without a terminal there
// is nobody to ask, so the missing value is an error.
func promptCredentials(username *string, password *string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("username and password are required (use --username and --password)")
	}

	var fields []huh.Field

	if len(*username) == 0 {
		fields = append(fields, huh.NewInput().
			Title("Username").
			Value(username).
			Validate(func(s string) error {
				if len(strings.TrimSpace(s)) == 0 {
					return fmt.Errorf("username is required")
				}
				return nil
			}))
	}

	if len(*password) == 0 {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password))
	}

	form := huh.NewForm(huh.NewGroup(fields...))
	if err := form.Run(); err != nil {
		return fmt.Errorf("login prompt cancelled: %w", err)
	}

	return nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the token and remove the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup := commandContext(cmd)
			defer cleanup()

			if err := a.api.Logout(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Logged out"))
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configured service and session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, titleStyle.Render("Propel client status"))
			fmt.Fprintf(out, "Service: %s\n", a.cfg.URL)

			sessionFile, err := a.sessions.GetSessionFile()
			if err == nil {
				fmt.Fprintf(out, "Session file: %s\n", sessionFile)
			}

			session, ok := a.sessions.Load()
			switch {
			case !ok:
				fmt.Fprintf(out, "Session: %s\n", warningStyle.Render("not logged in"))
			case session.IsExpired():
				fmt.Fprintf(out, "Session: %s\n", expiredStyle.Render("expired"))
			default:
				fmt.Fprintf(out, "Session: %s (since %s)\n",
					activeStyle.Render("active"), session.IssuedAt.Format("2006-01-02 15:04:05"))
			}

			return nil
		},
	}
}
