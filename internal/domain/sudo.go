package domain

import "sync"

// SudoRequest is the ephemeral cross-goroutine handshake gating privileged
// command execution. The worker blocks in Wait until a presenter resolves the
// request, or until Deny is called as part of cancellation. A request is
// consumed exactly once; later resolutions are ignored.
type SudoRequest struct {
	Command string

	mu       sync.Mutex
	cond     *sync.Cond
	resolved bool
	approved bool
}

// NewSudoRequest builds a pending request for the given command.
func NewSudoRequest(command string) *SudoRequest {
	r := &SudoRequest{Command: command}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Resolve records the decision and wakes the waiting worker. The first
// resolution wins.
func (r *SudoRequest) Resolve(approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return
	}
	r.resolved = true
	r.approved = approved
	r.cond.Broadcast()
}

// Deny force-resolves the request to "denied". Used by cancellation so a
// blocked worker is always released.
func (r *SudoRequest) Deny() {
	r.Resolve(false)
}

// Wait blocks until the request is resolved and reports the decision. The
// lock is held only while checking the flag, never while the caller goes on
// to execute the command.
func (r *SudoRequest) Wait() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for !r.resolved {
		r.cond.Wait()
	}
	return r.approved
}

// Resolved reports whether a decision has been made.
func (r *SudoRequest) Resolved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved
}
