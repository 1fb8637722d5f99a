// Package protocol interprets assistant messages as structured tool calls.
//
// The model is asked to respond with a JSON object such as
//
//	{"tool": "shell", "command": "pacman -S htop", "explanation": "..."}
//	{"tool": "search", "query": "arch linux news"}
//
// Anything that does not decode into one of those shapes is treated as a
// plain conversational reply. Parsing failure degrades safely to text and
// never escalates into an action.
package protocol

import (
	"encoding/json"
	"strings"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/ports"
)

// Parser implements the ToolCallParser port.
type Parser struct{}

// NewParser builds a parser.
func NewParser() *Parser {
	return &Parser{}
}

type wireCall struct {
	Tool        string `json:"tool"`
	Command     string `json:"command"`
	Explanation string `json:"explanation"`
	Query       string `json:"query"`
}

// Parse implements ports.ToolCallParser.
func (p *Parser) Parse(assistantText string) domain.ParsedReply {
	fallback := domain.ParsedReply{RawText: assistantText}

	trimmed := strings.TrimSpace(assistantText)
	if !strings.HasPrefix(trimmed, "{") {
		return fallback
	}

	var wire wireCall
	if err := json.Unmarshal([]byte(trimmed), &wire); err != nil {
		return fallback
	}

	switch domain.ToolName(strings.ToLower(strings.TrimSpace(wire.Tool))) {
	case domain.ToolShell:
		command := strings.TrimSpace(wire.Command)
		if command == "" {
			return fallback
		}
		return domain.ParsedReply{
			IsToolCall: true,
			RawText:    assistantText,
			Call: &domain.ToolCall{
				Tool: domain.ToolShell,
				Shell: &domain.ShellCall{
					Command:     command,
					Explanation: strings.TrimSpace(wire.Explanation),
				},
			},
		}
	case domain.ToolSearch:
		query := strings.TrimSpace(wire.Query)
		if query == "" {
			return fallback
		}
		return domain.ParsedReply{
			IsToolCall: true,
			RawText:    assistantText,
			Call: &domain.ToolCall{
				Tool:   domain.ToolSearch,
				Search: &domain.SearchCall{Query: query},
			},
		}
	default:
		// Unknown tool identifiers fall back to text.
		return fallback
	}
}

var _ ports.ToolCallParser = (*Parser)(nil)
