package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dvaldes/tars-go/internal/app"
	"github.com/dvaldes/tars-go/internal/domain"
)

func newAskCommand(opts Options) *cobra.Command {
	var noAudio bool

	cmd := &cobra.Command{
		Use:   "ask [natural language]",
		Short: "Run one assistant turn",
		Args:  cobra.MinimumNArgs(1),
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

			input := domain.TurnInput{Text: strings.Join(args, " ")}
			result, err := runTurn(ctx, container, input)
			RenderResult(os.Stdout, result, opts.Verbose)
			return err
		},
	}

	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Skip speech output")
	return cmd
}

// runTurn submits the turn on a worker goroutine so the presentation side
// (sudo prompt, Ctrl-C) stays responsive; SIGINT cancels the turn.
func runTurn(ctx context.Context, container *app.Container, input domain.TurnInput) (domain.TurnResult, error) {
	type outcome struct {
		result domain.TurnResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := container.Orchestrator.Submit(ctx, input)
		done <- outcome{result: result, err: err}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	for {
		select {
		case out := <-done:
			return out.result, out.err
		case <-interrupt:
			fmt.Fprintln(os.Stderr, "stopping...")
			container.Orchestrator.Stop()
		}
	}
}
