// Package ai provides the chat client for the local LLM backend plus the
// retry and response-cache wrapper the orchestrator talks to.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/ports"
)

// OllamaClient speaks the Ollama /api/chat contract.
type OllamaClient struct {
	endpoint   string
	modelID    string
	maxTokens  int
	httpClient *http.Client
}

// NewOllamaClient builds a raw chat client from model settings.
func NewOllamaClient(settings domain.ModelSettings) *OllamaClient {
	endpoint := settings.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:11434/api/chat"
	}
	modelID := settings.ModelID
	if modelID == "" {
		modelID = "llama3.1:8b"
	}
	return &OllamaClient{
		endpoint:  endpoint,
		modelID:   modelID,
		maxTokens: settings.MaxTokens,
		httpClient: &http.Client{
			Timeout: settings.ModelTimeout(),
		},
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []wireMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message wireMessage `json:"message"`
}

// Chat implements ports.ChatClient.
func (c *OllamaClient) Chat(ctx context.Context, messages []domain.ChatMessage, jsonMode bool) (domain.ChatMessage, error) {
	payload := chatRequest{
		Model:    c.modelID,
		Messages: toWire(messages),
		Stream:   false,
	}
	if jsonMode {
		payload.Format = "json"
	}
	if c.maxTokens > 0 {
		payload.Options = map[string]any{"num_predict": c.maxTokens}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.ChatMessage{}, err
	}
	httpReq.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return domain.ChatMessage{}, fmt.Errorf("chat backend: %s", resp.Status)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.ChatMessage{}, err
	}

	role := domain.Role(decoded.Message.Role)
	if role == "" {
		role = domain.RoleAssistant
	}
	return domain.NewChatMessage(role, decoded.Message.Content), nil
}

func toWire(messages []domain.ChatMessage) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

var _ ports.ChatClient = (*OllamaClient)(nil)
