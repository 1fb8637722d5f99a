// Package intent implements the keyword based pre-classifier that routes
// user input before any model call. Evaluation order is fixed: danger first,
// then shell verbs, then search vocabulary, else conversation. This is an
// advisory short-circuit, not the security boundary; tool calls produced by
// the model are still validated downstream.
package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/infrastructure/rules"
	"github.com/dvaldes/tars-go/internal/ports"
)

// Classifier implements the IntentService port.
type Classifier struct {
	danger []*regexp.Regexp
	shell  []string
	search []string
}

// NewClassifier compiles the intent vocabularies.
func NewClassifier(r rules.IntentRules) (*Classifier, error) {
	c := &Classifier{}
	for _, pattern := range r.DangerKeywords {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile danger keyword %q: %w", pattern, err)
		}
		c.danger = append(c.danger, re)
	}
	for _, kw := range r.ShellKeywords {
		c.shell = append(c.shell, strings.ToLower(kw))
	}
	for _, kw := range r.SearchKeywords {
		c.search = append(c.search, strings.ToLower(kw))
	}
	return c, nil
}

// Classify implements ports.IntentService.
func (c *Classifier) Classify(text string) domain.Intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return domain.IntentConversation
	}

	for _, re := range c.danger {
		if re.MatchString(lower) {
			return domain.IntentDanger
		}
	}
	for _, kw := range c.shell {
		if containsWord(lower, kw) {
			return domain.IntentShell
		}
	}
	for _, kw := range c.search {
		if containsWord(lower, kw) {
			return domain.IntentSearch
		}
	}
	return domain.IntentConversation
}

// containsWord reports whether kw occurs in text on word boundaries, so that
// "open" does not fire on "reopened".
func containsWord(text, kw string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}

var _ ports.IntentService = (*Classifier)(nil)
