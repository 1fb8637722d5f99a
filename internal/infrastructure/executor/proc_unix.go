//go:build !windows

package executor

import (
	osexec "os/exec"
	"syscall"
)

// SetProcessGroup puts the command in its own process group so spawned
// children can be terminated together.
func SetProcessGroup(cmd *osexec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// TerminateTree asks the full process group to exit (SIGTERM).
func TerminateTree(cmd *osexec.Cmd) {
	signalTree(cmd, syscall.SIGTERM)
}

// KillTree forcibly kills the full process group.
func KillTree(cmd *osexec.Cmd) {
	signalTree(cmd, syscall.SIGKILL)
}

func signalTree(cmd *osexec.Cmd, sig syscall.Signal) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if pid <= 0 {
		return
	}
	if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 {
		// Negative PGID targets the full process group (shell + children).
		_ = syscall.Kill(-pgid, sig)
		return
	}
	_ = cmd.Process.Signal(sig)
}
