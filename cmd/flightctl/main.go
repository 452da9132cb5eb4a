// flightctl is the terminal client for the flight request service. It keeps
// a session on disk between invocations and talks to the authority over its
// HTTP API.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evolution-fly/flight-service/internal/client/gateway"
	"github.com/evolution-fly/flight-service/internal/client/lifecycle"
	"github.com/evolution-fly/flight-service/internal/client/session"
	"github.com/evolution-fly/flight-service/internal/config"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

type cliApp struct {
	session   *session.Store
	lifecycle *lifecycle.Manager
	out       *os.File
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "flightctl:", err)
		os.Exit(1)
	}

	logger := zap.NewNop()
	if os.Getenv("FLIGHTCTL_DEBUG") != "" {
		if l, lerr := zap.NewDevelopment(); lerr == nil {
			logger = l
		}
	}

	app := &cliApp{out: os.Stdout}

	// The gateway pulls the token from the store and the store submits
	// credentials through the gateway, so the token source closes over the
	// app and the store is assigned right after.
	gw := gateway.NewHTTPGateway(cfg.Client.BaseURL, gateway.Options{
		Token: func() string {
			if app.session == nil {
				return ""
			}
			return app.session.Token()
		},
		OnAuthRejected: func() {
			if app.session != nil {
				app.session.Teardown()
			}
			fmt.Fprintln(os.Stderr, "Your session is no longer valid. Please sign in again with `flightctl login`.")
		},
		HTTPClient: &http.Client{Timeout: cfg.Client.RequestTimeout},
	})
	app.session = session.NewStore(cfg.Client.SessionFile, gw, logger)
	app.lifecycle = lifecycle.NewManager(gw, app.session, logger)

	root := newRootCmd(app)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(app *cliApp) *cobra.Command {
	root := &cobra.Command{
		Use:           "flightctl",
		Short:         "Manage flight requests from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Restore is offline and optimistic: a persisted identity is
			// trusted until the authority says otherwise.
			app.session.Restore()
		},
	}

	root.AddCommand(
		newLoginCmd(app),
		newLogoutCmd(app),
		newRegisterCmd(app),
		newWhoamiCmd(app),
		newDestinationsCmd(app),
		newRequestCmd(app),
	)
	return root
}

// report prints failures in user terms. A wrong-role denial is not an error
// screen: the user is steered back to what they can do, quietly.
func (a *cliApp) report(err error) error {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeUnauthorized:
		fmt.Fprintln(os.Stderr, "Please sign in first: flightctl login")
	case apperrors.CodeForbidden:
		fmt.Fprintln(a.out, "Nothing to do here. Try `flightctl request list`.")
		return nil
	case apperrors.CodeConflict:
		fmt.Fprintln(os.Stderr, "Someone got there first; the request is no longer available.")
	case apperrors.CodeValidationFailed:
		fmt.Fprintln(os.Stderr, domainMessage(err))
	case apperrors.CodeUnavailable:
		fmt.Fprintln(os.Stderr, "The service is unreachable right now. Try again in a moment.")
	default:
		fmt.Fprintln(os.Stderr, "flightctl:", domainMessage(err))
	}
	return err
}

func domainMessage(err error) string {
	if derr := apperrors.ToDomainError(err); derr != nil {
		return derr.Message
	}
	return err.Error()
}
