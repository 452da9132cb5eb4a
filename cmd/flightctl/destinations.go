package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDestinationsCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "destinations",
		Short: "List active destinations",
		RunE: func(cmd *cobra.Command, args []string) error {
			destinations, err := app.lifecycle.RefreshDestinations(cmd.Context())
			if err != nil {
				return app.report(err)
			}
			if len(destinations) == 0 {
				fmt.Fprintln(app.out, "No active destinations.")
				return nil
			}

			w := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCODE\tNAME")
			for i := range destinations {
				d := &destinations[i]
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Code, d.Name)
			}
			w.Flush()
			return nil
		},
	}
}
