// Package security implements the command validator: a denylist of known
// destructive operations matched with case-insensitive regexes over the whole
// command line. It deliberately does no shell parsing, so it mitigates known
// dangerous patterns rather than sandboxing arbitrary input.
package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/infrastructure/rules"
	"github.com/dvaldes/tars-go/internal/ports"
)

// Validator implements the SecurityService port.
type Validator struct {
	patterns      []compiledPattern
	sensitiveDirs []string
	criticalFiles []string
	sudoBlocklist []string
}

type compiledPattern struct {
	re     *regexp.Regexp
	reason string
}

// redirectTarget captures the path a redirection or tee pipe writes to.
var redirectTarget = regexp.MustCompile(`(?:>>?|\|\s*(?:sudo\s+)?tee\s+(?:-a\s+)?)\s*(/[^\s;|&]+)`)

// elevationMarker matches any privilege-escalation front-end, so the
// account/policy blocklist holds for commands already rewritten to pkexec,
// doas or su as well as for plain sudo.
var elevationMarker = regexp.MustCompile(`(?i)\b(sudo|pkexec|doas|su)\b`)

// NewValidator compiles the given security rules.
func NewValidator(r rules.SecurityRules) (*Validator, error) {
	v := &Validator{
		sensitiveDirs: r.SensitivePaths,
		criticalFiles: r.CriticalFiles,
		sudoBlocklist: r.SudoBlocklist,
	}
	for _, rule := range r.DangerPatterns {
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile security rule %q: %w", rule.Pattern, err)
		}
		v.patterns = append(v.patterns, compiledPattern{re: re, reason: rule.Reason})
	}
	return v, nil
}

// Validate implements ports.SecurityService. The first violated rule wins,
// so results are deterministic for a given rule order.
func (v *Validator) Validate(command string) domain.SecurityVerdict {
	command = strings.TrimSpace(command)
	if command == "" {
		return domain.Deny("empty command")
	}

	for _, p := range v.patterns {
		if p.re.MatchString(command) {
			return domain.Deny(p.reason)
		}
	}

	if reason := v.checkRedirects(command); reason != "" {
		return domain.Deny(reason)
	}

	if reason := v.checkSudo(command); reason != "" {
		return domain.Deny(reason)
	}

	return domain.Allow()
}

// checkRedirects rejects redirection (or tee pipes) targeting a sensitive
// system directory or a critical file.
func (v *Validator) checkRedirects(command string) string {
	for _, m := range redirectTarget.FindAllStringSubmatch(command, -1) {
		target := m[1]
		lower := strings.ToLower(target)
		for _, file := range v.criticalFiles {
			if strings.HasPrefix(lower, strings.ToLower(file)) {
				return fmt.Sprintf("write to critical file %s", file)
			}
		}
		for _, dir := range v.sensitiveDirs {
			prefix := strings.ToLower(strings.TrimSuffix(dir, "/"))
			if lower == prefix || strings.HasPrefix(lower, prefix+"/") {
				return fmt.Sprintf("write into sensitive directory %s", dir)
			}
		}
	}
	return ""
}

// checkSudo rejects elevation combined with account or policy modifying
// subcommands.
func (v *Validator) checkSudo(command string) string {
	if !elevationMarker.MatchString(command) {
		return ""
	}
	lower := strings.ToLower(command)
	for _, blocked := range v.sudoBlocklist {
		if strings.Contains(lower, strings.ToLower(blocked)) {
			return fmt.Sprintf("privileged %s is not allowed", strings.Fields(blocked)[0])
		}
	}
	return ""
}

var _ ports.SecurityService = (*Validator)(nil)
