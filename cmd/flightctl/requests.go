package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/evolution-fly/flight-service/internal/api/dto"
	"github.com/evolution-fly/flight-service/internal/client/lifecycle"
)

func newRequestCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Create and track flight requests",
	}
	cmd.AddCommand(
		newRequestCreateCmd(app),
		newRequestListCmd(app),
		newRequestPendingCmd(app),
		newRequestReserveCmd(app),
	)
	return cmd
}

func newRequestCreateCmd(app *cliApp) *cobra.Command {
	var destinationID, date, notes string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new flight request",
		RunE: func(cmd *cobra.Command, args []string) error {
			travel, err := time.Parse(dto.DateOnly, date)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "invalid --date %q, expected YYYY-MM-DD\n", date)
				return err
			}
			var notesPtr *string
			if notes != "" {
				notesPtr = &notes
			}
			created, err := app.lifecycle.Create(cmd.Context(), destinationID, travel, notesPtr)
			if err != nil {
				return app.report(err)
			}
			fmt.Fprintf(app.out, "Created %s for %s on %s (%d days out)\n",
				created.ReferenceKey, destinationLabel(created), created.TravelDate,
				lifecycle.DaysUntilTravel(*created, time.Now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&destinationID, "destination", "", "destination id")
	cmd.Flags().StringVar(&date, "date", "", "travel date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&notes, "notes", "", "optional notes")
	_ = cmd.MarkFlagRequired("destination")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newRequestListCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your flight requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			requests, err := app.lifecycle.ListMine(cmd.Context())
			if err != nil {
				return app.report(err)
			}
			app.renderRequests(requests)
			return nil
		},
	}
}

func newRequestPendingCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List the pending request queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			requests, err := app.lifecycle.ListPending(cmd.Context())
			if err != nil {
				return app.report(err)
			}
			app.renderRequests(requests)
			return nil
		},
	}
}

func newRequestReserveCmd(app *cliApp) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "reserve <request-id>",
		Short: "Claim a pending request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var notesPtr *string
			if notes != "" {
				notesPtr = &notes
			}
			claimed, err := app.lifecycle.Reserve(cmd.Context(), args[0], notesPtr)
			if err != nil {
				return app.report(err)
			}
			fmt.Fprintf(app.out, "Reserved %s (%s on %s)\n", claimed.ReferenceKey, destinationLabel(claimed), claimed.TravelDate)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "operator notes")
	return cmd
}

func (a *cliApp) renderRequests(requests []dto.FlightRequestResponse) {
	if len(requests) == 0 {
		fmt.Fprintln(a.out, "No flight requests.")
		return
	}

	showRequester := a.lifecycle.ShowRequesterColumn()
	now := time.Now()

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	if showRequester {
		fmt.Fprintln(w, "REFERENCE\tID\tREQUESTER\tDESTINATION\tTRAVEL DATE\tDAYS\tSTATUS")
	} else {
		fmt.Fprintln(w, "REFERENCE\tID\tDESTINATION\tTRAVEL DATE\tDAYS\tSTATUS")
	}
	for i := range requests {
		r := &requests[i]
		days := lifecycle.DaysUntilTravel(*r, now)
		if showRequester {
			requester := ""
			if r.Requester != nil {
				requester = r.Requester.Email
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n", r.ReferenceKey, r.ID, requester, destinationLabel(r), r.TravelDate, days, r.Status)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", r.ReferenceKey, r.ID, destinationLabel(r), r.TravelDate, days, r.Status)
		}
	}
	w.Flush()
}

func destinationLabel(r *dto.FlightRequestResponse) string {
	if r.Destination == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)", r.Destination.Name, r.Destination.Code)
}
