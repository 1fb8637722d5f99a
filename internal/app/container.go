// Package app wires application services with infrastructure adapters.
package app

import (
	"context"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/infrastructure/ai"
	"github.com/dvaldes/tars-go/internal/infrastructure/audio"
	"github.com/dvaldes/tars-go/internal/infrastructure/config"
	"github.com/dvaldes/tars-go/internal/infrastructure/executor"
	"github.com/dvaldes/tars-go/internal/infrastructure/history"
	"github.com/dvaldes/tars-go/internal/infrastructure/intent"
	"github.com/dvaldes/tars-go/internal/infrastructure/protocol"
	"github.com/dvaldes/tars-go/internal/infrastructure/rules"
	"github.com/dvaldes/tars-go/internal/infrastructure/search"
	"github.com/dvaldes/tars-go/internal/infrastructure/security"
	"github.com/dvaldes/tars-go/internal/orchestrator"
	"github.com/dvaldes/tars-go/internal/pkg/logger"
	"github.com/dvaldes/tars-go/internal/ports"
)

// Container holds the assembled dependency graph.
type Container struct {
	Config       domain.Config
	ConfigLoader *config.FileLoader
	Orchestrator *orchestrator.Orchestrator
	Cache        ports.CacheInspector
	History      ports.HistoryRepository
	Speaker      ports.Speaker
	Logger       ports.Logger
}

// Options tune container construction.
type Options struct {
	Verbose   bool
	NoAudio   bool
	Presenter ports.SudoPresenter
}

// Build constructs the dependency graph from the on-disk configuration.
func Build(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if opts.NoAudio {
		cfg.Audio.Enabled = false
	}

	log := logger.New(opts.Verbose)

	ruleFile, err := rules.Load(cfg.Security.RulesFile)
	if err != nil {
		return nil, err
	}
	validator, err := security.NewValidator(ruleFile.Security)
	if err != nil {
		return nil, err
	}
	classifier, err := intent.NewClassifier(ruleFile.Intent)
	if err != nil {
		return nil, err
	}

	chatClient := ai.NewClient(ai.NewOllamaClient(cfg.Model), cfg.Model, log)
	speaker := audio.NewPipeline(cfg.Audio, log)

	historyStore, err := history.NewSQLiteStore(cfg.History.DBPath)
	if err != nil {
		// The assistant still works without a turn log.
		log.Warn("history store unavailable", map[string]interface{}{"error": err.Error()})
		historyStore = nil
	}

	orch, err := orchestrator.New(cfg, orchestrator.Deps{
		Chat:      chatClient,
		Security:  validator,
		Intent:    classifier,
		Parser:    protocol.NewParser(),
		Executor:  executor.NewLocal(cfg.Execution.Shell),
		Search:    search.NewTool(cfg.Search),
		Speaker:   speaker,
		Presenter: opts.Presenter,
		History:   historyOrNil(historyStore),
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		ConfigLoader: cfgLoader,
		Orchestrator: orch,
		Cache:        chatClient,
		History:      historyOrNil(historyStore),
		Speaker:      speaker,
		Logger:       log,
	}, nil
}

// Close releases held resources.
func (c *Container) Close() {
	c.Orchestrator.Stop()
	if c.History != nil {
		_ = c.History.Close()
	}
}

// historyOrNil avoids storing a typed nil in the interface.
func historyOrNil(s *history.SQLiteStore) ports.HistoryRepository {
	if s == nil {
		return nil
	}
	return s
}
