// Package cli exposes the cobra command tree and the terminal adapters
// (sudo prompter, result rendering).
package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) *cobra.Command {
	askCmd := newAskCommand(opts)

	root := &cobra.Command{
		Use:   "tars [input]",
		Short: "TARS - local voice/text assistant",
		Long: "TARS turns natural language into conversational replies or " +
			"security-gated system actions (shell commands and web searches), " +
			"spoken back through a local speech pipeline.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			askCmd.SetArgs([]string{strings.Join(args, " ")})
			return askCmd.ExecuteContext(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(askCmd)
	root.AddCommand(newReplCommand(opts))
	root.AddCommand(newHistoryCommand(opts))
	root.AddCommand(newConfigCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}
