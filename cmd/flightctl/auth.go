package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/evolution-fly/flight-service/internal/client/gateway"
)

func newLoginCmd(app *cliApp) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = promptLine("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptSecret("Password: "); err != nil {
					return err
				}
			}

			identity, err := app.session.Login(cmd.Context(), email, password)
			if err != nil {
				return app.report(err)
			}
			fmt.Fprintf(app.out, "Signed in as %s (%s)\n", identity.Email, identity.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Run: func(cmd *cobra.Command, args []string) {
			// Local teardown always succeeds even when the authority is
			// unreachable; the server-side revocation is best effort.
			app.session.Logout(cmd.Context())
			fmt.Fprintln(app.out, "Signed out.")
		},
	}
}

func newRegisterCmd(app *cliApp) *cobra.Command {
	var profile gateway.Profile
	var phone string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if profile.Password == "" {
				if profile.Password, err = promptSecret("Password: "); err != nil {
					return err
				}
				if profile.PasswordConfirm, err = promptSecret("Confirm password: "); err != nil {
					return err
				}
			} else if profile.PasswordConfirm == "" {
				profile.PasswordConfirm = profile.Password
			}
			if phone != "" {
				profile.Phone = &phone
			}

			identity, err := app.session.Register(cmd.Context(), profile)
			if err != nil {
				return app.report(err)
			}
			fmt.Fprintf(app.out, "Welcome, %s. You are signed in as %s.\n", identity.FirstName, identity.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&profile.Username, "username", "", "username")
	cmd.Flags().StringVar(&profile.Email, "email", "", "account email")
	cmd.Flags().StringVar(&profile.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&profile.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&profile.Password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newWhoamiCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active session",
		Run: func(cmd *cobra.Command, args []string) {
			identity := app.session.Identity()
			if identity == nil {
				fmt.Fprintln(app.out, "Not signed in.")
				return
			}
			fmt.Fprintf(app.out, "%s <%s> role=%s\n", identity.FullName(), identity.Email, identity.Role)
		},
	}
}

func promptLine(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptSecret(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
