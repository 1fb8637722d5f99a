// Package orchestrator drives a single conversation turn end to end:
// classify the input, obtain a structured reply from the model, gate and run
// tool calls, summarize the outcome and speak it. Turns are strictly
// serialized; cancellation is cooperative and checked at every state
// transition.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/ports"
)

// Fixed user-facing replies. Kept short so they sound natural when spoken.
const (
	refusalDanger     = "I won't do that. The request looks destructive, and destructive operations are off limits."
	refusalSudoDenied = "Understood. I won't run that privileged command."
)

const (
	systemPrompt = "You are TARS, a local voice assistant running on the user's machine. " +
		"When the user asks for a system action, respond ONLY with a JSON object: " +
		`{"tool":"shell","command":"...","explanation":"..."} to run a command, or ` +
		`{"tool":"search","query":"..."} to search the web. ` +
		"For anything else, reply with plain conversational text in the user's language."

	summaryInstruction = "Summarize the result above for the user in one or two natural spoken " +
		"sentences, in the user's language. If it failed, explain what went wrong. Plain text only, no JSON."
)

// Deps collects the ports the orchestrator is wired with.
type Deps struct {
	Chat      ports.ChatClient
	Security  ports.SecurityService
	Intent    ports.IntentService
	Parser    ports.ToolCallParser
	Executor  ports.CommandExecutor
	Search    ports.SearchTool
	Speaker   ports.Speaker
	Presenter ports.SudoPresenter
	History   ports.HistoryRepository
	Logger    ports.Logger
}

// Orchestrator is the per-assistant turn state machine. Exactly one turn may
// run at a time; Stop moves it into the absorbing stopped state.
type Orchestrator struct {
	cfg     domain.Config
	deps    Deps
	session *domain.Session

	mu      sync.Mutex
	state   domain.TurnState
	stopped bool
	pending *domain.SudoRequest
	cancel  context.CancelFunc
}

// New validates the dependency set and builds an orchestrator around an
// immutable configuration snapshot.
func New(cfg domain.Config, deps Deps) (*Orchestrator, error) {
	if deps.Chat == nil || deps.Security == nil || deps.Intent == nil || deps.Parser == nil ||
		deps.Executor == nil || deps.Search == nil || deps.Speaker == nil || deps.Logger == nil {
		return nil, errors.New("orchestrator dependencies not satisfied")
	}
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		session: domain.NewSession(cfg.History.MaxMessages),
		state:   domain.StateIdle,
	}, nil
}

// State reports the current turn state.
func (o *Orchestrator) State() domain.TurnState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session exposes the bounded conversation history.
func (o *Orchestrator) Session() *domain.Session {
	return o.session
}

// Stop cancels the current turn from any goroutine: the shared stop flag is
// raised, the per-turn context is cancelled so a running command, search or
// model call tears down immediately, a pending sudo request is force-denied
// so a blocked worker is released, and the audio processes are reaped.
// Stopped is absorbing.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	o.state = domain.StateStopped
	pending := o.pending
	cancel := o.cancel
	o.pending = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if pending != nil {
		pending.Deny()
	}
	o.deps.Speaker.Stop()
}

// Submit runs one complete turn and returns its result. A second submission
// while a turn is running fails with ErrTurnInProgress; submission after
// Stop fails with ErrStopped.
func (o *Orchestrator) Submit(ctx context.Context, input domain.TurnInput) (domain.TurnResult, error) {
	if err := o.begin(); err != nil {
		return domain.TurnResult{}, err
	}
	defer o.finish()

	// Every blocking operation of the turn runs under this context so Stop
	// can tear down subprocesses and in-flight model calls.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.cancel = cancel
	stopped := o.stopped
	o.mu.Unlock()
	if stopped {
		cancel()
	}
	defer func() {
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
	}()

	started := time.Now()
	result := domain.TurnResult{
		ID:       uuid.NewString(),
		UserText: input.Text,
	}
	result.Metrics.TranscriptionTime = input.TranscriptionTime

	err := o.runTurn(ctx, input, &result)

	result.Metrics.TotalTime = input.TranscriptionTime + time.Since(started)
	result.Metrics.ProcessingTime = result.Metrics.TotalTime -
		result.Metrics.TranscriptionTime - result.Metrics.TTSTime

	o.emit(result, err)
	return result, err
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return domain.ErrStopped
	}
	if o.state != domain.StateIdle && o.state != domain.StateDone {
		return domain.ErrTurnInProgress
	}
	o.state = domain.StateClassifying
	return nil
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.stopped {
		o.state = domain.StateIdle
	}
}

// transition moves to the next state unless cancellation already absorbed
// the machine.
func (o *Orchestrator) transition(next domain.TurnState) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		o.state = domain.StateStopped
		return domain.ErrStopped
	}
	o.state = next
	return nil
}

func (o *Orchestrator) runTurn(ctx context.Context, input domain.TurnInput, result *domain.TurnResult) error {
	intent := o.deps.Intent.Classify(input.Text)
	result.Intent = intent
	o.deps.Logger.Info("turn classified", map[string]interface{}{
		"turn":   result.ID,
		"intent": string(intent),
	})

	// Obviously destructive requests are refused before spending a model
	// round-trip or spawning anything.
	if intent == domain.IntentDanger {
		result.FinalText = refusalDanger
		return o.transition(domain.StateDone)
	}

	if err := o.transition(domain.StateAwaitingModel); err != nil {
		return err
	}

	jsonMode := intent == domain.IntentShell || intent == domain.IntentSearch
	messages := o.conversation(input.Text)
	reply, err := o.deps.Chat.Chat(ctx, messages, jsonMode)
	if err != nil {
		return fmt.Errorf("model call: %w", err)
	}

	parsed := o.deps.Parser.Parse(reply.Content)
	if !parsed.IsToolCall {
		if err := o.transition(domain.StateResponding); err != nil {
			return err
		}
		result.FinalText = parsed.RawText
		return o.speakAndFinish(ctx, result)
	}

	if err := o.transition(domain.StateToolDispatch); err != nil {
		return err
	}
	switch parsed.Call.Tool {
	case domain.ToolShell:
		return o.dispatchShell(ctx, parsed.Call.Shell, input, result)
	case domain.ToolSearch:
		return o.dispatchSearch(ctx, parsed.Call.Search, input, result)
	default:
		// Unreachable with a well-behaved parser; degrade to text anyway.
		result.FinalText = parsed.RawText
		return o.speakAndFinish(ctx, result)
	}
}

func (o *Orchestrator) dispatchShell(ctx context.Context, call *domain.ShellCall, input domain.TurnInput, result *domain.TurnResult) error {
	command := call.Command

	// The raw command is validated before the user is asked to approve
	// anything, so a blocked command never reaches the sudo prompt.
	if verdict := o.deps.Security.Validate(command); !verdict.Allowed {
		return o.rejectCommand(ctx, verdict, result)
	}

	if needsElevation(command) && o.cfg.Security.ConfirmSudo {
		if err := o.transition(domain.StateAwaitingSudo); err != nil {
			return err
		}
		approved, err := o.awaitSudo(command)
		if err != nil {
			return err
		}
		if !approved {
			result.FinalText = refusalSudoDenied
			return o.speakAndFinish(ctx, result)
		}
		command = RewriteElevated(command, o.cfg.Execution.ElevationTool)
	}

	if err := o.transition(domain.StateExecuting); err != nil {
		return err
	}

	// Re-validated after the elevation rewrite; the blocklist recognizes the
	// rewritten front-end as an elevation marker too.
	if verdict := o.deps.Security.Validate(command); !verdict.Allowed {
		return o.rejectCommand(ctx, verdict, result)
	}

	result.Command = command
	execResult := o.deps.Executor.Execute(ctx, command, o.cfg.Execution.CommandTimeout())
	result.ExitCode = execResult.ExitCode

	transcript := shellTranscript(command, call.Explanation, execResult)
	return o.summarize(ctx, input.Text, transcript, result)
}

func (o *Orchestrator) dispatchSearch(ctx context.Context, call *domain.SearchCall, input domain.TurnInput, result *domain.TurnResult) error {
	if err := o.transition(domain.StateExecuting); err != nil {
		return err
	}

	results, err := o.deps.Search.Search(ctx, call.Query)
	transcript := searchTranscript(call.Query, results, err)
	return o.summarize(ctx, input.Text, transcript, result)
}

// rejectCommand voices the refusal and fails the turn with the security
// sentinel.
func (o *Orchestrator) rejectCommand(ctx context.Context, verdict domain.SecurityVerdict, result *domain.TurnResult) error {
	o.deps.Logger.Warn("command rejected", map[string]interface{}{
		"turn":   result.ID,
		"reason": verdict.Reason,
	})
	result.FinalText = fmt.Sprintf("I can't run that command: %s.", verdict.Reason)
	if err := o.speakAndFinish(ctx, result); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", domain.ErrSecurityRejected, verdict.Reason)
}

// awaitSudo hands the elevation request to the presenter and suspends until
// a decision arrives or cancellation force-denies it.
func (o *Orchestrator) awaitSudo(command string) (bool, error) {
	req := domain.NewSudoRequest(command)

	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return false, domain.ErrStopped
	}
	o.pending = req
	o.mu.Unlock()

	if o.deps.Presenter != nil {
		o.deps.Presenter.Present(req)
	} else {
		// No presenter wired means nobody can approve.
		req.Deny()
	}

	approved := req.Wait()

	o.mu.Lock()
	o.pending = nil
	stopped := o.stopped
	o.mu.Unlock()

	if stopped {
		return false, domain.ErrStopped
	}
	return approved, nil
}

// summarize makes the second, non-JSON model call over the execution
// transcript. Its output is never parsed for tool calls: only the first
// model response of a turn may dispatch.
func (o *Orchestrator) summarize(ctx context.Context, userText, transcript string, result *domain.TurnResult) error {
	if err := o.transition(domain.StateSummarizing); err != nil {
		return err
	}

	messages := o.conversation(userText)
	toolMsg := domain.NewChatMessage(domain.RoleTool, transcript)
	messages = append(messages, toolMsg, domain.NewChatMessage(domain.RoleUser, summaryInstruction))

	summary, err := o.deps.Chat.Chat(ctx, messages, false)
	if err != nil {
		return fmt.Errorf("summary call: %w", err)
	}
	result.FinalText = strings.TrimSpace(summary.Content)
	return o.speakAndFinish(ctx, result)
}

// speakAndFinish voices the final text and closes the turn. Speech failures
// are logged and never fail the turn.
func (o *Orchestrator) speakAndFinish(ctx context.Context, result *domain.TurnResult) error {
	if err := o.transition(domain.StateSpeaking); err != nil {
		return err
	}

	start := time.Now()
	audio, err := o.deps.Speaker.Speak(ctx, result.FinalText)
	result.Metrics.TTSTime = time.Since(start)
	result.Metrics.AudioDuration = audio
	if err != nil && !errors.Is(err, domain.ErrStopped) {
		o.deps.Logger.Warn("speech failed", map[string]interface{}{
			"turn":  result.ID,
			"error": err.Error(),
		})
	}

	return o.transition(domain.StateDone)
}

// conversation builds the model message list: system prompt, bounded
// history, then the new user message.
func (o *Orchestrator) conversation(userText string) []domain.ChatMessage {
	history := o.session.Messages()
	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.NewChatMessage(domain.RoleSystem, systemPrompt))
	messages = append(messages, history...)
	messages = append(messages, domain.NewChatMessage(domain.RoleUser, userText))
	return messages
}

// emit appends the turn to the session history and persists the record.
func (o *Orchestrator) emit(result domain.TurnResult, turnErr error) {
	o.session.Append(domain.NewChatMessage(domain.RoleUser, result.UserText))
	if result.FinalText != "" {
		o.session.Append(domain.NewChatMessage(domain.RoleAssistant, result.FinalText))
	}

	if o.deps.History != nil {
		record := domain.TurnRecord{
			ID:           result.ID,
			Timestamp:    time.Now(),
			UserText:     result.UserText,
			FinalText:    result.FinalText,
			Intent:       result.Intent,
			Command:      result.Command,
			ExitCode:     result.ExitCode,
			ProcessingMS: result.Metrics.ProcessingTime.Milliseconds(),
			TTSMS:        result.Metrics.TTSTime.Milliseconds(),
			TotalMS:      result.Metrics.TotalTime.Milliseconds(),
		}
		if err := o.deps.History.Save(record); err != nil {
			o.deps.Logger.Warn("history save failed", map[string]interface{}{"error": err.Error()})
		}
	}

	fields := map[string]interface{}{
		"turn":     result.ID,
		"intent":   string(result.Intent),
		"total_ms": result.Metrics.TotalTime.Milliseconds(),
	}
	if turnErr != nil {
		fields["error"] = turnErr.Error()
	}
	o.deps.Logger.Info("turn finished", fields)
}

func shellTranscript(command, explanation string, res domain.ExecutionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command executed: %s\n", command)
	if explanation != "" {
		fmt.Fprintf(&b, "Purpose: %s\n", explanation)
	}
	fmt.Fprintf(&b, "Exit code: %d\n", res.ExitCode)
	if res.TimedOut {
		b.WriteString("The command timed out before completing.\n")
	}
	if out := strings.TrimSpace(res.Stdout); out != "" {
		fmt.Fprintf(&b, "Output:\n%s\n", clip(out, 2000))
	}
	if errOut := strings.TrimSpace(res.Stderr); errOut != "" {
		fmt.Fprintf(&b, "Errors:\n%s\n", clip(errOut, 1000))
	}
	return b.String()
}

func searchTranscript(query string, results []domain.SearchResult, err error) string {
	if err != nil {
		return fmt.Sprintf("Web search for %q failed: %v", query, err)
	}
	if len(results) == 0 {
		return fmt.Sprintf("Web search for %q returned no results.", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for %q:\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s - %s (%s)\n", i+1, r.Title, r.Abstract, r.URL)
	}
	return b.String()
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
