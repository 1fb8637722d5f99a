package domain

import (
	"errors"
	"time"
)

// TurnState enumerates the orchestrator state machine. Stopped is absorbing
// and reachable from every state via cancellation.
type TurnState string

const (
	StateIdle          TurnState = "idle"
	StateClassifying   TurnState = "classifying"
	StateAwaitingModel TurnState = "awaiting_model"
	StateToolDispatch  TurnState = "tool_dispatch"
	StateResponding    TurnState = "responding"
	StateAwaitingSudo  TurnState = "awaiting_sudo"
	StateExecuting     TurnState = "executing"
	StateSummarizing   TurnState = "summarizing"
	StateSpeaking      TurnState = "speaking"
	StateDone          TurnState = "done"
	StateStopped       TurnState = "stopped"
)

// Sentinel errors for the turn lifecycle.
var (
	// ErrTurnInProgress is returned when a turn is submitted while another
	// one is still running; turns are strictly serialized.
	ErrTurnInProgress = errors.New("a turn is already in progress")
	// ErrStopped is returned when cancellation interrupts a turn.
	ErrStopped = errors.New("assistant stopped")
	// ErrSecurityRejected marks a command refused by the security rules.
	ErrSecurityRejected = errors.New("command rejected by security rules")
)

// TurnInput is everything the orchestrator needs to start a turn. Text may
// come from the keyboard or from an external speech-to-text collaborator, in
// which case TranscriptionTime carries how long transcription took.
type TurnInput struct {
	Text              string
	TranscriptionTime time.Duration
}

// ExecutionMetrics is accumulated once per turn and emitted at turn end.
// Persistence is the caller's concern.
type ExecutionMetrics struct {
	TranscriptionTime time.Duration
	ProcessingTime    time.Duration
	TTSTime           time.Duration
	TotalTime         time.Duration
	AudioDuration     time.Duration
}

// TurnResult is the final outcome of one complete turn.
type TurnResult struct {
	ID        string
	UserText  string
	FinalText string
	Intent    Intent
	Command   string
	ExitCode  int
	Metrics   ExecutionMetrics
}

// ExecutionResult wraps details from the command executor. A nonzero exit
// code or a timeout is data, not a fatal error: the transcript is handed to
// summarization regardless.
type ExecutionResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
	Err      error
}

// SearchResult is one entry returned by the external search tool.
type SearchResult struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	URL      string `json:"url"`
}

// TurnRecord is the persisted shape of a finished turn.
type TurnRecord struct {
	ID           string
	Timestamp    time.Time
	UserText     string
	FinalText    string
	Intent       Intent
	Command      string
	ExitCode     int
	ProcessingMS int64
	TTSMS        int64
	TotalMS      int64
}
