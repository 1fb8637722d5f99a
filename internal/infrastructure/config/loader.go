// Package config loads the YAML configuration from disk, seeding it with
// the embedded defaults on first run.
package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dvaldes/tars-go/assets"
	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/ports"
)

// FileLoader loads ~/.tars/config.yaml (overridable via TARS_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a loader; path overrides the default location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is created from the
// embedded defaults; a present file is unmarshalled and back-filled with
// defaults for any omitted section.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := os.WriteFile(path, assets.DefaultConfigYAML, 0o644); err != nil {
				return domain.Config{}, err
			}
			data = assets.DefaultConfigYAML
		} else {
			return domain.Config{}, err
		}
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}
	return hydrateDefaults(cfg)
}

// Path resolves the effective config file location.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return expandPath(l.overridePath)
	}
	if custom := os.Getenv("TARS_CONFIG"); custom != "" {
		return expandPath(custom)
	}
	return filepath.Join(userHomeDir(), ".tars", "config.yaml")
}

// Defaults returns the embedded default configuration.
func Defaults() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// hydrateDefaults back-fills zero values from the embedded defaults so a
// hand-edited partial file still yields a runnable configuration.
func hydrateDefaults(cfg domain.Config) (domain.Config, error) {
	defaults, err := Defaults()
	if err != nil {
		return domain.Config{}, err
	}

	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = defaults.ConfigFormatVersion
	}
	if cfg.Model.Endpoint == "" {
		cfg.Model.Endpoint = defaults.Model.Endpoint
	}
	if cfg.Model.ModelID == "" {
		cfg.Model.ModelID = defaults.Model.ModelID
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = defaults.Model.MaxTokens
	}
	if cfg.Model.Retries == 0 {
		cfg.Model.Retries = defaults.Model.Retries
	}
	if cfg.Model.CacheEntries == 0 {
		cfg.Model.CacheEntries = defaults.Model.CacheEntries
	}
	if cfg.Security.RulesFile == "" {
		cfg.Security.RulesFile = defaults.Security.RulesFile
	}
	if cfg.Execution.Shell == "" {
		cfg.Execution.Shell = defaults.Execution.Shell
	}
	if cfg.Execution.ElevationTool == "" {
		cfg.Execution.ElevationTool = defaults.Execution.ElevationTool
	}
	if len(cfg.Audio.SynthCommand) == 0 {
		cfg.Audio.SynthCommand = defaults.Audio.SynthCommand
	}
	if len(cfg.Audio.PlayerCommand) == 0 {
		cfg.Audio.PlayerCommand = defaults.Audio.PlayerCommand
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = defaults.Audio.SampleRate
	}
	if cfg.Audio.ChunkBytes == 0 {
		cfg.Audio.ChunkBytes = defaults.Audio.ChunkBytes
	}
	if len(cfg.Search.Command) == 0 {
		cfg.Search.Command = defaults.Search.Command
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = defaults.Search.MaxResults
	}
	if cfg.History.MaxMessages == 0 {
		cfg.History.MaxMessages = defaults.History.MaxMessages
	}
	if cfg.History.DBPath == "" {
		cfg.History.DBPath = defaults.History.DBPath
	}
	return cfg, nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(userHomeDir(), path[2:])
	}
	return path
}

func userHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
