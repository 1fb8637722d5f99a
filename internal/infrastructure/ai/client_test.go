package ai

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/pkg/logger"
)

type scriptedChat struct {
	mu       sync.Mutex
	calls    int
	failures int
	reply    string
}

func (s *scriptedChat) Chat(_ context.Context, _ []domain.ChatMessage, _ bool) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return domain.ChatMessage{}, errors.New("connection refused")
	}
	return domain.NewChatMessage(domain.RoleAssistant, s.reply), nil
}

func (s *scriptedChat) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fastSettings() domain.ModelSettings {
	return domain.ModelSettings{Retries: 3, RetryDelayMS: 1, CacheEntries: 8}
}

func userMessages(text string) []domain.ChatMessage {
	return []domain.ChatMessage{domain.NewChatMessage(domain.RoleUser, text)}
}

func TestChatCachesIdenticalPrompts(t *testing.T) {
	upstream := &scriptedChat{reply: "hola!"}
	client := NewClient(upstream, fastSettings(), logger.Nop{})

	first, err := client.Chat(context.Background(), userMessages("hola"), false)
	require.NoError(t, err)
	second, err := client.Chat(context.Background(), userMessages("hola"), false)
	require.NoError(t, err)

	assert.Equal(t, 1, upstream.callCount(), "second identical prompt must be a cache hit")
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, client.Len())
}

func TestChatJSONModeIsNeverCached(t *testing.T) {
	upstream := &scriptedChat{reply: `{"tool":"shell","command":"ls"}`}
	client := NewClient(upstream, fastSettings(), logger.Nop{})

	_, err := client.Chat(context.Background(), userMessages("lista archivos"), true)
	require.NoError(t, err)
	_, err = client.Chat(context.Background(), userMessages("lista archivos"), true)
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.callCount(), "tool-biased calls must bypass the cache")
	assert.Equal(t, 0, client.Len())
}

func TestChatRetriesTransientFailures(t *testing.T) {
	upstream := &scriptedChat{reply: "ok", failures: 2}
	client := NewClient(upstream, fastSettings(), logger.Nop{})

	reply, err := client.Chat(context.Background(), userMessages("hello"), false)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Content)
	assert.Equal(t, 3, upstream.callCount())
}

func TestChatDegradesAfterExhaustedRetries(t *testing.T) {
	upstream := &scriptedChat{reply: "never", failures: 99}
	client := NewClient(upstream, fastSettings(), logger.Nop{})

	reply, err := client.Chat(context.Background(), userMessages("hello"), false)
	require.NoError(t, err, "exhausted retries surface a degraded reply, not an error")
	assert.Equal(t, degradedReply, reply.Content)
	assert.Equal(t, 3, upstream.callCount())
	assert.Equal(t, 0, client.Len(), "degraded replies are not cached")
}

func TestCacheClear(t *testing.T) {
	upstream := &scriptedChat{reply: "x"}
	client := NewClient(upstream, fastSettings(), logger.Nop{})

	_, err := client.Chat(context.Background(), userMessages("a"), false)
	require.NoError(t, err)
	require.Equal(t, 1, client.Len())

	client.Clear()
	assert.Equal(t, 0, client.Len())

	_, err = client.Chat(context.Background(), userMessages("a"), false)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.callCount())
}
