package ai

import (
	"context"
	"time"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/ports"
)

// degradedReply is surfaced when every retry fails, so the turn can still
// complete with an explanation instead of an error.
const degradedReply = "I could not reach the language model right now. Please check that the backend is running and try again."

// Client wraps a raw chat client with bounded retries and a response cache.
//
// Only plain conversational calls are cached, keyed by the content of the
// last user message. JSON-biased (tool) calls depend on the whole
// conversation context and are never cached.
type Client struct {
	upstream ports.ChatClient
	cache    *responseCache
	retries  int
	delay    time.Duration
	logger   ports.Logger
}

// NewClient builds the retry/cache wrapper from model settings.
func NewClient(upstream ports.ChatClient, settings domain.ModelSettings, logger ports.Logger) *Client {
	retries := settings.Retries
	if retries <= 0 {
		retries = 3
	}
	return &Client{
		upstream: upstream,
		cache:    newResponseCache(settings.CacheEntries),
		retries:  retries,
		delay:    settings.RetryDelay(),
		logger:   logger,
	}
}

// Chat implements ports.ChatClient.
func (c *Client) Chat(ctx context.Context, messages []domain.ChatMessage, jsonMode bool) (domain.ChatMessage, error) {
	key := ""
	if !jsonMode {
		key = lastUserContent(messages)
		if cached, ok := c.cache.get(key); ok {
			c.logger.Debug("chat cache hit", map[string]interface{}{"key_len": len(key)})
			return domain.NewChatMessage(domain.RoleAssistant, cached), nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		reply, err := c.upstream.Chat(ctx, messages, jsonMode)
		if err == nil {
			if !jsonMode {
				c.cache.put(key, reply.Content)
			}
			return reply, nil
		}
		lastErr = err
		c.logger.Warn("chat attempt failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
		if ctx.Err() != nil {
			break
		}
		if attempt < c.retries {
			select {
			case <-time.After(c.delay):
			case <-ctx.Done():
				attempt = c.retries
			}
		}
	}

	c.logger.Error("chat failed after retries", lastErr, map[string]interface{}{
		"retries": c.retries,
	})
	return domain.NewChatMessage(domain.RoleAssistant, degradedReply), nil
}

// Len implements ports.CacheInspector.
func (c *Client) Len() int { return c.cache.len() }

// Keys implements ports.CacheInspector.
func (c *Client) Keys() []string { return c.cache.keys() }

// Clear implements ports.CacheInspector.
func (c *Client) Clear() { c.cache.clear() }

func lastUserContent(messages []domain.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

var _ ports.ChatClient = (*Client)(nil)
var _ ports.CacheInspector = (*Client)(nil)
