package domain

import "time"

// Config mirrors ~/.tars/config.yaml. A loaded Config is treated as an
// immutable snapshot: the orchestrator receives it at construction and never
// reads ambient global state.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	Model               ModelSettings     `yaml:"model"`
	Security            SecuritySettings  `yaml:"security"`
	Execution           ExecutionSettings `yaml:"execution"`
	Audio               AudioSettings     `yaml:"audio"`
	Search              SearchSettings    `yaml:"search"`
	History             HistorySettings   `yaml:"history"`
}

// ModelSettings configures the LLM chat backend and the retry/cache wrapper
// around it.
type ModelSettings struct {
	Endpoint       string `yaml:"endpoint"`
	ModelID        string `yaml:"model_id"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout"`
	Retries        int    `yaml:"retries"`
	RetryDelayMS   int    `yaml:"retry_delay_ms"`
	CacheEntries   int    `yaml:"cache_entries"`
}

// SecuritySettings defines command validation behavior.
type SecuritySettings struct {
	RulesFile   string `yaml:"rules_file"`
	ConfirmSudo bool   `yaml:"confirm_sudo"`
}

// ExecutionSettings controls how shell commands run.
type ExecutionSettings struct {
	Shell          string `yaml:"shell"`
	TimeoutSeconds int    `yaml:"timeout"`
	// ElevationTool is the privilege-escalation front-end substituted for a
	// plain sudo once the user approves: "pkexec", "sudo" or "doas".
	ElevationTool string `yaml:"elevation_tool"`
}

// AudioSettings describes the two-process speech pipeline.
type AudioSettings struct {
	Enabled       bool     `yaml:"enabled"`
	SynthCommand  []string `yaml:"synth_command"`
	PlayerCommand []string `yaml:"player_command"`
	SampleRate    int      `yaml:"sample_rate"`
	ChunkBytes    int      `yaml:"chunk_bytes"`
	GraceSeconds  int      `yaml:"grace_seconds"`
}

// SearchSettings configures the external search subprocess.
type SearchSettings struct {
	Command        []string `yaml:"command"`
	MaxResults     int      `yaml:"max_results"`
	TimeoutSeconds int      `yaml:"timeout"`
}

// HistorySettings bounds the in-memory session and locates the turn log.
type HistorySettings struct {
	MaxMessages int    `yaml:"max_messages"`
	DBPath      string `yaml:"db_path"`
}

// ModelTimeout returns the per-request timeout with its default.
func (m ModelSettings) ModelTimeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// RetryDelay returns the fixed delay between chat retries.
func (m ModelSettings) RetryDelay() time.Duration {
	if m.RetryDelayMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(m.RetryDelayMS) * time.Millisecond
}

// CommandTimeout returns the shell execution bound with its default.
func (e ExecutionSettings) CommandTimeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Grace returns the terminate-to-kill grace period for audio processes.
func (a AudioSettings) Grace() time.Duration {
	if a.GraceSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(a.GraceSeconds) * time.Second
}

// SearchTimeout returns the search subprocess bound with its default.
func (s SearchSettings) SearchTimeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}
