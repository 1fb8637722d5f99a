package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is overridable at build time via -ldflags.
var Version = "0.3.0"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("tars", Version)
		},
	}
}
