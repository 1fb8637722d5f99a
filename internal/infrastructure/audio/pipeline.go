// Package audio implements the two-process speech pipeline: a synthesizer
// reads UTF-8 text on stdin and writes raw PCM to stdout; a player reads
// that PCM on stdin. The relay between them copies fixed-size chunks so
// neither process can stall the other, and stops as soon as cancellation is
// requested.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	osexec "os/exec"
	"sync"
	"time"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/infrastructure/executor"
	"github.com/dvaldes/tars-go/internal/ports"
)

// Pipeline implements the Speaker port.
type Pipeline struct {
	settings domain.AudioSettings
	logger   ports.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	synth  *osexec.Cmd
	player *osexec.Cmd
}

// NewPipeline builds the speech pipeline.
func NewPipeline(settings domain.AudioSettings, logger ports.Logger) *Pipeline {
	return &Pipeline{settings: settings, logger: logger}
}

// Speak implements ports.Speaker. It reports the duration of the synthesized
// audio derived from the relayed byte count.
func (p *Pipeline) Speak(ctx context.Context, text string) (time.Duration, error) {
	if !p.settings.Enabled || text == "" {
		return 0, nil
	}
	if len(p.settings.SynthCommand) == 0 || len(p.settings.PlayerCommand) == 0 {
		return 0, errors.New("audio pipeline not configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	synth := osexec.Command(p.settings.SynthCommand[0], p.settings.SynthCommand[1:]...)
	player := osexec.Command(p.settings.PlayerCommand[0], p.settings.PlayerCommand[1:]...)
	executor.SetProcessGroup(synth)
	executor.SetProcessGroup(player)

	synthIn, err := synth.StdinPipe()
	if err != nil {
		return 0, fmt.Errorf("synth stdin: %w", err)
	}
	synthOut, err := synth.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("synth stdout: %w", err)
	}
	playerIn, err := player.StdinPipe()
	if err != nil {
		return 0, fmt.Errorf("player stdin: %w", err)
	}

	if err := synth.Start(); err != nil {
		return 0, fmt.Errorf("start synthesizer: %w", err)
	}
	if err := player.Start(); err != nil {
		executor.KillTree(synth)
		_ = synth.Wait()
		return 0, fmt.Errorf("start player: %w", err)
	}

	p.track(cancel, synth, player)
	defer p.untrack()

	go func() {
		_, _ = io.WriteString(synthIn, text)
		_ = synthIn.Close()
	}()

	relayed, relayErr := relay(ctx, synthOut, playerIn, p.chunkBytes())
	_ = playerIn.Close()

	grace := p.settings.Grace()
	if ctx.Err() != nil {
		// Cancelled mid-stream: both processes must go away now.
		executor.TerminateTree(synth)
		executor.TerminateTree(player)
	}
	reap(synth, grace)
	reap(player, grace)

	if ctx.Err() != nil {
		return p.pcmDuration(relayed), domain.ErrStopped
	}
	if relayErr != nil {
		return p.pcmDuration(relayed), relayErr
	}
	return p.pcmDuration(relayed), nil
}

// Stop implements ports.Speaker: it interrupts any in-flight Speak and
// terminates both audio processes so the audio device is never held by
// orphans.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel, synth, player := p.cancel, p.synth, p.player
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	executor.TerminateTree(synth)
	executor.TerminateTree(player)
}

func (p *Pipeline) track(cancel context.CancelFunc, synth, player *osexec.Cmd) {
	p.mu.Lock()
	p.cancel, p.synth, p.player = cancel, synth, player
	p.mu.Unlock()
}

func (p *Pipeline) untrack() {
	p.mu.Lock()
	p.cancel, p.synth, p.player = nil, nil, nil
	p.mu.Unlock()
}

func (p *Pipeline) chunkBytes() int {
	if p.settings.ChunkBytes <= 0 {
		return 4096
	}
	return p.settings.ChunkBytes
}

// pcmDuration converts a relayed byte count into playback time for 16-bit
// mono PCM at the configured sample rate.
func (p *Pipeline) pcmDuration(bytes int64) time.Duration {
	rate := p.settings.SampleRate
	if rate <= 0 {
		rate = 22050
	}
	seconds := float64(bytes) / float64(rate*2)
	return time.Duration(seconds * float64(time.Second))
}

// relay copies fixed-size chunks from r to w until EOF or cancellation,
// returning the number of bytes moved.
func relay(ctx context.Context, r io.Reader, w io.Writer, chunk int) (int64, error) {
	buf := make([]byte, chunk)
	var total int64
	for {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, err := r.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			return total, err
		}
	}
}

// reap waits for the process, escalating to a kill after the grace period so
// a stuck process cannot leak.
func reap(cmd *osexec.Cmd, grace time.Duration) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		executor.KillTree(cmd)
		<-done
	}
}

var _ ports.Speaker = (*Pipeline)(nil)
