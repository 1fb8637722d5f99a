package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/infrastructure/protocol"
	"github.com/dvaldes/tars-go/internal/infrastructure/rules"
	"github.com/dvaldes/tars-go/internal/infrastructure/security"
	"github.com/dvaldes/tars-go/internal/pkg/logger"
	"github.com/dvaldes/tars-go/internal/ports"
)

type chatCall struct {
	jsonMode bool
	lastUser string
}

type fakeChat struct {
	mu      sync.Mutex
	calls   []chatCall
	replies []string
	block   chan struct{}
}

func (f *fakeChat) Chat(_ context.Context, messages []domain.ChatMessage, jsonMode bool) (domain.ChatMessage, error) {
	f.mu.Lock()
	lastUser := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			lastUser = messages[i].Content
			break
		}
	}
	f.calls = append(f.calls, chatCall{jsonMode: jsonMode, lastUser: lastUser})
	reply := ""
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return domain.NewChatMessage(domain.RoleAssistant, reply), nil
}

func (f *fakeChat) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeIntent struct{ intent domain.Intent }

func (f fakeIntent) Classify(string) domain.Intent { return f.intent }

type fakeSecurity struct {
	allow  bool
	reason string
}

func (f fakeSecurity) Validate(string) domain.SecurityVerdict {
	if f.allow {
		return domain.Allow()
	}
	return domain.Deny(f.reason)
}

type fakeExecutor struct {
	mu         sync.Mutex
	commands   []string
	result     domain.ExecutionResult
	waitCancel bool
}

func (f *fakeExecutor) Execute(ctx context.Context, command string, _ time.Duration) domain.ExecutionResult {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	res := f.result
	wait := f.waitCancel
	f.mu.Unlock()

	if wait {
		<-ctx.Done()
		res.ExitCode = -1
		res.Err = ctx.Err()
	}
	return res
}

func (f *fakeExecutor) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

type fakeSearch struct {
	results []domain.SearchResult
	err     error
	queries []string
}

func (f *fakeSearch) Search(_ context.Context, query string) ([]domain.SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	stops  int
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return 100 * time.Millisecond, nil
}

func (f *fakeSpeaker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeSpeaker) spokenTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

type fakePresenter struct {
	approve bool
	silent  bool
}

func (f fakePresenter) Present(req *domain.SudoRequest) {
	if f.silent {
		return
	}
	decision := f.approve
	go req.Resolve(decision)
}

type testRig struct {
	orch      *Orchestrator
	chat      *fakeChat
	executor  *fakeExecutor
	search    *fakeSearch
	speaker   *fakeSpeaker
	security  ports.SecurityService
	presenter fakePresenter
}

func testConfig() domain.Config {
	return domain.Config{
		Security:  domain.SecuritySettings{ConfirmSudo: true},
		Execution: domain.ExecutionSettings{ElevationTool: "pkexec", TimeoutSeconds: 5},
		History:   domain.HistorySettings{MaxMessages: 10},
	}
}

func newRig(t *testing.T, intent domain.Intent, mutate func(*testRig)) *testRig {
	t.Helper()
	rig := &testRig{
		chat:     &fakeChat{},
		executor: &fakeExecutor{},
		search:   &fakeSearch{},
		speaker:  &fakeSpeaker{},
		security: fakeSecurity{allow: true},
	}
	if mutate != nil {
		mutate(rig)
	}
	orch, err := New(testConfig(), Deps{
		Chat:      rig.chat,
		Security:  rig.security,
		Intent:    fakeIntent{intent: intent},
		Parser:    protocol.NewParser(),
		Executor:  rig.executor,
		Search:    rig.search,
		Speaker:   rig.speaker,
		Presenter: rig.presenter,
		Logger:    logger.Nop{},
	})
	require.NoError(t, err)
	rig.orch = orch
	return rig
}

func TestDangerShortCircuits(t *testing.T) {
	rig := newRig(t, domain.IntentDanger, nil)

	result, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "rm -rf /"})
	require.NoError(t, err)

	assert.Equal(t, refusalDanger, result.FinalText)
	assert.Equal(t, domain.IntentDanger, result.Intent)
	assert.Equal(t, 0, rig.chat.callCount(), "danger must not spend a model call")
	assert.Empty(t, rig.executor.executed(), "danger must not spawn a command")
	assert.Empty(t, rig.speaker.spokenTexts(), "danger must not spawn audio processes")
}

func TestConversationalReply(t *testing.T) {
	rig := newRig(t, domain.IntentConversation, func(r *testRig) {
		r.chat.replies = []string{"Hello! All systems nominal."}
	})

	result, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "how are you?"})
	require.NoError(t, err)

	assert.Equal(t, "Hello! All systems nominal.", result.FinalText)
	require.Equal(t, 1, rig.chat.callCount())
	assert.False(t, rig.chat.calls[0].jsonMode, "conversation calls are not JSON-biased")
	assert.Equal(t, []string{"Hello! All systems nominal."}, rig.speaker.spokenTexts())
	assert.Empty(t, rig.executor.executed())
}

func TestShellToolCallFlow(t *testing.T) {
	rig := newRig(t, domain.IntentShell, func(r *testRig) {
		r.chat.replies = []string{
			`{"tool":"shell","command":"pacman -S htop","explanation":"installs htop"}`,
			"htop is installed and ready to use.",
		}
		r.executor.result = domain.ExecutionResult{Stdout: "resolving dependencies...", ExitCode: 0}
	})

	result, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "instala htop"})
	require.NoError(t, err)

	assert.Equal(t, []string{"pacman -S htop"}, rig.executor.executed())
	require.Equal(t, 2, rig.chat.callCount(), "tool turn makes exactly two model calls")
	assert.True(t, rig.chat.calls[0].jsonMode)
	assert.False(t, rig.chat.calls[1].jsonMode, "the summary call is never JSON-biased")
	assert.Equal(t, "htop is installed and ready to use.", result.FinalText)
	assert.Equal(t, "pacman -S htop", result.Command)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, []string{"htop is installed and ready to use."}, rig.speaker.spokenTexts())
}

func TestFailedCommandStillSummarized(t *testing.T) {
	rig := newRig(t, domain.IntentShell, func(r *testRig) {
		r.chat.replies = []string{
			`{"tool":"shell","command":"pacman -S nosuchpkg","explanation":"install"}`,
			"The package was not found in the repositories.",
		}
		r.executor.result = domain.ExecutionResult{Stderr: "target not found", ExitCode: 1}
	})

	result, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "instala nosuchpkg"})
	require.NoError(t, err, "a nonzero exit is data for the summary, not a turn error")

	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, 2, rig.chat.callCount())
	assert.Equal(t, "The package was not found in the repositories.", result.FinalText)
}

func TestSecurityRejectionAborts(t *testing.T) {
	rig := newRig(t, domain.IntentShell, func(r *testRig) {
		r.security = fakeSecurity{allow: false, reason: "recursive forced delete"}
		r.chat.replies = []string{`{"tool":"shell","command":"rm -rf /tmp/x","explanation":""}`}
	})

	result, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "clean tmp"})
	require.ErrorIs(t, err, domain.ErrSecurityRejected)

	assert.Empty(t, rig.executor.executed(), "rejected commands never run")
	assert.Contains(t, result.FinalText, "recursive forced delete")
	assert.Equal(t, 1, rig.chat.callCount(), "no summary call after a rejection")
}

func TestSudoDenied(t *testing.T) {
	rig := newRig(t, domain.IntentShell, func(r *testRig) {
		r.presenter = fakePresenter{approve: false}
		r.chat.replies = []string{`{"tool":"shell","command":"sudo systemctl restart nginx","explanation":""}`}
	})

	result, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "restart nginx"})
	require.NoError(t, err)

	assert.Equal(t, refusalSudoDenied, result.FinalText)
	assert.Empty(t, rig.executor.executed(), "denied elevation must never execute")
	assert.Equal(t, 1, rig.chat.callCount())
}

func TestElevationRewriteCannotBypassAccountBlocklist(t *testing.T) {
	ruleFile, err := rules.Load("/nonexistent/rules.yaml")
	require.NoError(t, err)
	validator, err := security.NewValidator(ruleFile.Security)
	require.NoError(t, err)

	rig := newRig(t, domain.IntentShell, func(r *testRig) {
		r.security = validator
		r.presenter = fakePresenter{approve: true}
		r.chat.replies = []string{`{"tool":"shell","command":"sudo userdel alice","explanation":""}`}
	})

	result, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "remove the alice account"})
	require.ErrorIs(t, err, domain.ErrSecurityRejected)

	assert.Empty(t, rig.executor.executed(), "a blocklisted command must never run, rewritten or not")
	assert.Contains(t, result.FinalText, "privileged")
}

func TestStopDuringExecutionCancelsCommand(t *testing.T) {
	rig := newRig(t, domain.IntentShell, func(r *testRig) {
		r.executor.waitCancel = true
		r.chat.replies = []string{`{"tool":"shell","command":"sleep 600","explanation":""}`}
	})

	done := make(chan error, 1)
	go func() {
		_, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "wait for a while"})
		done <- err
	}()

	require.Eventually(t, func() bool {
		return rig.orch.State() == domain.StateExecuting
	}, time.Second, time.Millisecond)

	rig.orch.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not tear down the running command within bounded time")
	}
}

func TestSudoApprovedRewritesCommand(t *testing.T) {
	rig := newRig(t, domain.IntentShell, func(r *testRig) {
		r.presenter = fakePresenter{approve: true}
		r.chat.replies = []string{
			`{"tool":"shell","command":"sudo systemctl restart nginx","explanation":""}`,
			"nginx was restarted.",
		}
	})

	result, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "restart nginx"})
	require.NoError(t, err)

	require.Equal(t, []string{"pkexec systemctl restart nginx"}, rig.executor.executed())
	assert.Equal(t, "nginx was restarted.", result.FinalText)
}

func TestSearchToolCallFlow(t *testing.T) {
	rig := newRig(t, domain.IntentSearch, func(r *testRig) {
		r.chat.replies = []string{
			`{"tool":"search","query":"arch linux news"}`,
			"The latest Arch news covers a grub update.",
		}
		r.search.results = []domain.SearchResult{
			{Title: "Arch news", Abstract: "grub update", URL: "https://archlinux.org/news"},
		}
	})

	result, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "busca noticias de arch"})
	require.NoError(t, err)

	assert.Equal(t, []string{"arch linux news"}, rig.search.queries)
	assert.Empty(t, rig.executor.executed(), "search never touches the shell executor")
	assert.Equal(t, "The latest Arch news covers a grub update.", result.FinalText)
	assert.Equal(t, 2, rig.chat.callCount())
}

func TestSearchFailureDegrades(t *testing.T) {
	rig := newRig(t, domain.IntentSearch, func(r *testRig) {
		r.chat.replies = []string{
			`{"tool":"search","query":"weather"}`,
			"I could not reach the search service.",
		}
		r.search.err = errors.New("exit status 1")
	})

	result, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "busca el clima"})
	require.NoError(t, err, "search failure degrades to an explanation")
	assert.Equal(t, "I could not reach the search service.", result.FinalText)
}

func TestNonJSONModelReplyFallsBackToText(t *testing.T) {
	rig := newRig(t, domain.IntentShell, func(r *testRig) {
		r.chat.replies = []string{"I would run pacman -S htop for that."}
	})

	result, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "instala htop"})
	require.NoError(t, err)

	assert.Empty(t, rig.executor.executed(), "a parse fallback must not dispatch")
	assert.Equal(t, "I would run pacman -S htop for that.", result.FinalText)
}

func TestTurnsAreSerialized(t *testing.T) {
	block := make(chan struct{})
	rig := newRig(t, domain.IntentConversation, func(r *testRig) {
		r.chat.replies = []string{"slow reply"}
		r.chat.block = block
	})

	done := make(chan struct{})
	go func() {
		_, _ = rig.orch.Submit(context.Background(), domain.TurnInput{Text: "first"})
		close(done)
	}()

	// Wait for the first turn to occupy the machine.
	require.Eventually(t, func() bool {
		return rig.orch.State() == domain.StateAwaitingModel
	}, time.Second, time.Millisecond)

	_, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "second"})
	assert.ErrorIs(t, err, domain.ErrTurnInProgress)

	close(block)
	<-done
}

func TestStopDuringSudoWaitUnblocks(t *testing.T) {
	rig := newRig(t, domain.IntentShell, func(r *testRig) {
		r.presenter = fakePresenter{silent: true}
		r.chat.replies = []string{`{"tool":"shell","command":"sudo reboot-helper","explanation":""}`}
	})

	type outcome struct {
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		_, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "do the thing"})
		done <- outcome{err: err}
	}()

	require.Eventually(t, func() bool {
		return rig.orch.State() == domain.StateAwaitingSudo
	}, time.Second, time.Millisecond)

	rig.orch.Stop()

	select {
	case out := <-done:
		assert.ErrorIs(t, out.err, domain.ErrStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("worker was not released by Stop within bounded time")
	}
	assert.Empty(t, rig.executor.executed())

	_, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "again"})
	assert.ErrorIs(t, err, domain.ErrStopped, "stopped is absorbing")
}

func TestSessionHistoryRecordsTurn(t *testing.T) {
	rig := newRig(t, domain.IntentConversation, func(r *testRig) {
		r.chat.replies = []string{"nice to meet you"}
	})

	_, err := rig.orch.Submit(context.Background(), domain.TurnInput{Text: "hola"})
	require.NoError(t, err)

	messages := rig.orch.Session().Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
	assert.Equal(t, "hola", messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, messages[1].Role)
	assert.Equal(t, "nice to meet you", messages[1].Content)
}

func TestMetricsAccumulated(t *testing.T) {
	rig := newRig(t, domain.IntentConversation, func(r *testRig) {
		r.chat.replies = []string{"ok"}
	})

	result, err := rig.orch.Submit(context.Background(), domain.TurnInput{
		Text:              "hola",
		TranscriptionTime: 250 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, result.Metrics.TranscriptionTime)
	assert.Equal(t, 100*time.Millisecond, result.Metrics.AudioDuration)
	assert.GreaterOrEqual(t, result.Metrics.TotalTime, result.Metrics.TranscriptionTime)
	assert.NotEmpty(t, result.ID)
}
