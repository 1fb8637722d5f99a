//go:build windows

package executor

import (
	osexec "os/exec"
)

// SetProcessGroup is a no-op on Windows; the executor falls back to killing
// the direct child only.
func SetProcessGroup(cmd *osexec.Cmd) {}

// TerminateTree kills the direct child process.
func TerminateTree(cmd *osexec.Cmd) {
	KillTree(cmd)
}

// KillTree kills the direct child process.
func KillTree(cmd *osexec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
