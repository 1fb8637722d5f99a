package cli

import (
	"fmt"
	"io"

	"github.com/dvaldes/tars-go/internal/domain"
)

// RenderResult prints the outcome of a turn.
func RenderResult(w io.Writer, result domain.TurnResult, verbose bool) {
	if result.FinalText != "" {
		fmt.Fprintln(w, result.FinalText)
	}
	if result.Command != "" {
		fmt.Fprintf(w, "  (ran: %s, exit %d)\n", result.Command, result.ExitCode)
	}
	if verbose {
		m := result.Metrics
		fmt.Fprintf(w, "  [total %dms | processing %dms | tts %dms | audio %.1fs]\n",
			m.TotalTime.Milliseconds(),
			m.ProcessingTime.Milliseconds(),
			m.TTSTime.Milliseconds(),
			m.AudioDuration.Seconds(),
		)
	}
}
