package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dvaldes/tars-go/internal/app"
)

func newHistoryCommand(opts Options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent turns",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.Build(cmd.Context(), app.Options{Verbose: opts.Verbose, NoAudio: true})
			if err != nil {
				return err
			}
			defer container.Close()

			if container.History == nil {
				return fmt.Errorf("history store unavailable")
			}
			records, err := container.History.Recent(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no turns recorded yet")
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(os.Stdout, "%s  [%s]  %q -> %q",
					humanize.Time(r.Timestamp), r.Intent, r.UserText, clipText(r.FinalText, 60))
				if r.Command != "" {
					fmt.Fprintf(os.Stdout, "  (%s, exit %d)", r.Command, r.ExitCode)
				}
				fmt.Fprintln(os.Stdout)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of turns to show")
	return cmd
}

func clipText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
