// Package search invokes the external web-search subprocess and decodes its
// JSON result list.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	osexec "os/exec"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/infrastructure/executor"
	"github.com/dvaldes/tars-go/internal/ports"
)

// Tool runs a search command (ddgr by default) that prints a JSON array of
// {title, abstract, url} objects on stdout.
type Tool struct {
	settings domain.SearchSettings
}

// NewTool builds the search adapter.
func NewTool(settings domain.SearchSettings) *Tool {
	return &Tool{settings: settings}
}

// Search implements ports.SearchTool.
func (t *Tool) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	argv := t.settings.Command
	if len(argv) == 0 {
		argv = []string{"ddgr", "--json", "--noprompt"}
	}

	ctx, cancel := context.WithTimeout(ctx, t.settings.SearchTimeout())
	defer cancel()

	cmd := osexec.CommandContext(ctx, argv[0], append(argv[1:], query)...)
	executor.SetProcessGroup(cmd)
	cmd.Cancel = func() error {
		executor.KillTree(cmd)
		return nil
	}

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("search tool: %w", err)
	}
	return decodeResults(out, t.maxResults())
}

func (t *Tool) maxResults() int {
	if t.settings.MaxResults <= 0 {
		return 5
	}
	return t.settings.MaxResults
}

type wireResult struct {
	Title       string `json:"title"`
	Abstract    string `json:"abstract"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// decodeResults parses the tool output, tolerating either "abstract" or
// "description" for the snippet field, and truncates to max entries.
func decodeResults(data []byte, max int) ([]domain.SearchResult, error) {
	var wire []wireResult
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode search output: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(wire))
	for _, w := range wire {
		abstract := w.Abstract
		if abstract == "" {
			abstract = w.Description
		}
		results = append(results, domain.SearchResult{
			Title:    w.Title,
			Abstract: abstract,
			URL:      w.URL,
		})
		if len(results) == max {
			break
		}
	}
	return results, nil
}

var _ ports.SearchTool = (*Tool)(nil)
