// Package rules loads the YAML rule file shared by the security validator
// and the intent classifier, falling back to the embedded defaults when the
// file is missing or incomplete.
package rules

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dvaldes/tars-go/assets"
)

// PatternRule is one regex rule with its user-facing reason.
type PatternRule struct {
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason"`
}

// SecurityRules configure the command validator.
type SecurityRules struct {
	DangerPatterns []PatternRule `yaml:"danger_patterns"`
	SensitivePaths []string      `yaml:"sensitive_paths"`
	CriticalFiles  []string      `yaml:"critical_files"`
	SudoBlocklist  []string      `yaml:"sudo_blocklist"`
}

// IntentRules configure the pre-classifier vocabularies. Danger keywords are
// regexes; shell and search keywords are case-insensitive substrings.
type IntentRules struct {
	DangerKeywords []string `yaml:"danger_keywords"`
	ShellKeywords  []string `yaml:"shell_keywords"`
	SearchKeywords []string `yaml:"search_keywords"`
}

// File is the YAML schema root.
type File struct {
	Security SecurityRules `yaml:"security"`
	Intent   IntentRules   `yaml:"intent"`
}

// Load reads the rule file at path (default ~/.tars/rules.yaml). A missing
// file yields the embedded defaults; empty sections are filled from them too.
func Load(path string) (File, error) {
	defaults, err := parseDefaults()
	if err != nil {
		return File{}, err
	}

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return defaults, nil
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, err
	}
	fillDefaults(&f, defaults)
	return f, nil
}

func parseDefaults() (File, error) {
	var f File
	if err := yaml.Unmarshal(assets.DefaultRulesYAML, &f); err != nil {
		return File{}, err
	}
	return f, nil
}

func fillDefaults(f *File, defaults File) {
	if len(f.Security.DangerPatterns) == 0 {
		f.Security.DangerPatterns = defaults.Security.DangerPatterns
	}
	if len(f.Security.SensitivePaths) == 0 {
		f.Security.SensitivePaths = defaults.Security.SensitivePaths
	}
	if len(f.Security.CriticalFiles) == 0 {
		f.Security.CriticalFiles = defaults.Security.CriticalFiles
	}
	if len(f.Security.SudoBlocklist) == 0 {
		f.Security.SudoBlocklist = defaults.Security.SudoBlocklist
	}
	if len(f.Intent.DangerKeywords) == 0 {
		f.Intent.DangerKeywords = defaults.Intent.DangerKeywords
	}
	if len(f.Intent.ShellKeywords) == 0 {
		f.Intent.ShellKeywords = defaults.Intent.ShellKeywords
	}
	if len(f.Intent.SearchKeywords) == 0 {
		f.Intent.SearchKeywords = defaults.Intent.SearchKeywords
	}
}

// ExpandPath resolves ~ and relative paths against the user home directory.
func ExpandPath(path string) string {
	if path == "" {
		return filepath.Join(userHomeDir(), ".tars", "rules.yaml")
	}
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(userHomeDir(), path[2:])
	}
	return filepath.Join(userHomeDir(), path)
}

func userHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
