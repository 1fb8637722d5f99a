// Package executor runs shell commands on the host with bounded timeouts
// and full process-tree termination.
package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	osexec "os/exec"
	"strings"
	"time"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/ports"
)

// Local executes commands on the host. Commands run as an argument list
// unless they need shell features, in which case they run through shell -c.
type Local struct {
	shell string
}

// NewLocal builds an executor; shell defaults to $SHELL then /bin/sh.
func NewLocal(shell string) *Local {
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Local{shell: shell}
}

// Execute implements ports.CommandExecutor. Timeouts and nonzero exits are
// captured in the result rather than raised: the caller summarizes failures
// for the user.
func (e *Local) Execute(ctx context.Context, command string, timeout time.Duration) domain.ExecutionResult {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := e.argv(command)
	cmd := osexec.CommandContext(ctx, argv[0], argv[1:]...)
	SetProcessGroup(cmd)
	cmd.Cancel = func() error {
		KillTree(cmd)
		return nil
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	result := domain.ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
	}

	var exitErr *osexec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		result.Err = err
	default:
		result.ExitCode = -1
		result.Err = err
	}
	return result
}

// argv decides between direct argv execution and shell -c. Pipes,
// redirection, globs, quoting and variable expansion all need the shell.
func (e *Local) argv(command string) []string {
	if strings.ContainsAny(command, "|&;<>$*?~`()\"'") {
		return []string{e.shell, "-c", command}
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return []string{e.shell, "-c", command}
	}
	return fields
}

var _ ports.CommandExecutor = (*Local)(nil)
