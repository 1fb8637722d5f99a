package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvaldes/tars-go/internal/app"
	"github.com/dvaldes/tars-go/internal/domain"
)

func newReplCommand(opts Options) *cobra.Command {
	var noAudio bool

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive conversation loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := app.Build(ctx, app.Options{
				Verbose:   opts.Verbose,
				NoAudio:   noAudio,
				Presenter: NewPrompter(nil, nil),
			})
			if err != nil {
				return err
			}
			defer container.Close()

			fmt.Println("TARS ready. Type your request, or 'exit' to quit.")
			reader := bufio.NewReader(os.Stdin)
			for {
				fmt.Print("> ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return nil
				}
				text := strings.TrimSpace(line)
				if text == "" {
					continue
				}
				if text == "exit" || text == "quit" {
					return nil
				}
				if handled := handleMeta(container, text); handled {
					continue
				}

				result, err := runTurn(ctx, container, domain.TurnInput{Text: text})
				RenderResult(os.Stdout, result, opts.Verbose)
				if errors.Is(err, domain.ErrStopped) {
					return nil
				}
				if err != nil && !errors.Is(err, domain.ErrSecurityRejected) {
					fmt.Fprintln(os.Stderr, "error:", err)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Skip speech output")
	return cmd
}

// handleMeta intercepts repl maintenance commands. The response cache lives
// for the session, so it is only inspectable from inside one.
func handleMeta(container *app.Container, text string) bool {
	switch text {
	case ":cache":
		fmt.Printf("%d cached responses\n", container.Cache.Len())
		for _, key := range container.Cache.Keys() {
			fmt.Printf(" - %s\n", clipText(key, 70))
		}
		return true
	case ":cache clear":
		container.Cache.Clear()
		fmt.Println("cache cleared")
		return true
	}
	return false
}
