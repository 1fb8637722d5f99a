// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// These interfaces are the contract between the orchestration core and the
// external adapters (infrastructure). The core depends on abstractions only;
// concrete implementations live under internal/infrastructure.
package ports

import (
	"context"
	"time"

	"github.com/dvaldes/tars-go/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.tars/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// ChatClient is the LLM chat contract. jsonMode asks the backend to respond
// with a JSON-formatted message so a tool call can be parsed from it.
type ChatClient interface {
	Chat(ctx context.Context, messages []domain.ChatMessage, jsonMode bool) (domain.ChatMessage, error)
}

// SecurityService validates a command against the destructive-operation
// rules. Validation is pure and recomputed per execution.
type SecurityService interface {
	Validate(command string) domain.SecurityVerdict
}

// IntentService routes raw user text before any model call.
type IntentService interface {
	Classify(text string) domain.Intent
}

// ToolCallParser interprets an assistant message as a structured action.
// Parsing never fails upward: ambiguity degrades to conversational text.
type ToolCallParser interface {
	Parse(assistantText string) domain.ParsedReply
}

// CommandExecutor runs shell commands with a bounded timeout. The whole
// process tree is terminated on timeout or cancellation.
type CommandExecutor interface {
	Execute(ctx context.Context, command string, timeout time.Duration) domain.ExecutionResult
}

// SearchTool invokes the external web search subprocess.
type SearchTool interface {
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// Speaker turns text into audible speech, reporting how long the synthesized
// audio ran. Stop interrupts playback and reaps the audio processes.
type Speaker interface {
	Speak(ctx context.Context, text string) (time.Duration, error)
	Stop()
}

// SudoPresenter shows a pending elevation request to the user on the
// presentation context. Implementations must eventually resolve the request;
// the worker stays blocked until they do (or until cancellation denies it).
type SudoPresenter interface {
	Present(req *domain.SudoRequest)
}

// HistoryRepository persists finished turns.
type HistoryRepository interface {
	Save(record domain.TurnRecord) error
	Recent(limit int) ([]domain.TurnRecord, error)
	Close() error
}

// CacheInspector exposes the response cache to maintenance commands.
type CacheInspector interface {
	Len() int
	Keys() []string
	Clear()
}

// Logger provides structured logging abstraction for the application layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
