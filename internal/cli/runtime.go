package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harun/vtool/internal/config"
	"github.com/harun/vtool/internal/logger"
	"github.com/harun/vtool/internal/observability"
	"github.com/harun/vtool/internal/tracing"
	"github.com/harun/vtool/pkg/agent"
	"github.com/harun/vtool/pkg/catalog"
	"github.com/harun/vtool/pkg/commandqueue"
	"github.com/harun/vtool/pkg/conversation"
	"github.com/harun/vtool/pkg/orchestrator"
	"github.com/harun/vtool/pkg/toolexecutor"
	"github.com/harun/vtool/pkg/virtualtool"
	"github.com/rs/zerolog"
)

// newCollaborator builds the collaborator from config; tests replace it.
var newCollaborator = func(cfg *config.Config, log zerolog.Logger) (agent.Collaborator, error) {
	if err := cfg.RequireCollaborator(); err != nil {
		return nil, err
	}

	profiles := make([]agent.AuthProfile, 0, len(cfg.AI.Profiles))
	for _, p := range cfg.AI.Profiles {
		profiles = append(profiles, agent.AuthProfile{
			ID:       p.ID,
			Provider: p.Provider,
			APIKey:   p.APIKey,
			Model:    p.ModelOrDefault(),
			Priority: p.Priority,
		})
	}

	return agent.NewLLMCollaborator(agent.Config{
		Profiles:        profiles,
		ProviderFactory: &agent.ProviderFactory{},
		Temperature:     cfg.AI.Temperature,
		MaxTokens:       cfg.AI.MaxTokens,
		MaxRetries:      cfg.AI.MaxRetries,
		Logger:          log,
	})
}

// runtime holds the wired components for one command invocation
type runtime struct {
	cfg          *config.Config
	log          *logger.Logger
	catalog      *catalog.Catalog
	executor     *toolexecutor.Executor
	store        *virtualtool.Store
	queue        *commandqueue.CommandQueue
	orchestrator *orchestrator.Orchestrator
}

// loadConfig loads and validates the configuration named by --config
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if errs := config.NewValidator().ValidateConfig(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errs[0])
	}
	return cfg, nil
}

// newLogger builds the logger; console output goes to stderr so command
// output on stdout stays parseable.
func newLogger(cfg *config.Config, console io.Writer) (*logger.Logger, error) {
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		Console:    console != nil,
		Pretty:     true,
		Redaction:  cfg.Logging.Redaction,
		MaxSize:    cfg.Logging.MaxSize,
		MaxAge:     cfg.Logging.MaxAge,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
		Out:        console,
	})
}

// buildRuntime wires config, logging, executor, collaborator, conversation
// driver, virtual tool store and orchestrator. withCollaborator is false for
// commands that only inspect the catalog.
func buildRuntime(console io.Writer, withCollaborator bool) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg, console)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	zl := log.GetZerolog()
	rt := &runtime{cfg: cfg, log: log}

	if cfg.Logging.AuditFile != "" {
		if err := observability.InitAuditLogger(cfg.Logging.AuditFile); err != nil {
			log.Close()
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}
	if err := tracing.InitOpenTelemetry("vtool"); err != nil {
		zl.Warn().Err(err).Msg("OpenTelemetry disabled")
	}

	cat := catalog.Default()
	var faults toolexecutor.FaultModel = toolexecutor.NoFaults{}
	if cfg.Executor.FaultRate > 0 {
		faults = toolexecutor.NewRandomFaults(cfg.Executor.FaultRate, cfg.Executor.Seed)
	}
	exec := toolexecutor.New(toolexecutor.Config{
		Catalog:       cat,
		AttemptBudget: cfg.Executor.AttemptBudget,
		Faults:        faults,
		Logger:        &zl,
	})

	store, err := virtualtool.NewStore(virtualtool.Config{
		PromotionThreshold: cfg.VirtualTools.PromotionThreshold,
		Invoker:            exec,
		Logger:             zl,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.catalog, rt.executor, rt.store = cat, exec, store
	if !withCollaborator {
		return rt, nil
	}

	collab, err := newCollaborator(cfg, zl)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create collaborator: %w", err)
	}

	driver, err := conversation.New(conversation.Config{
		Catalog:         cat,
		Executor:        exec,
		Collaborator:    collab,
		TurnBudget:      cfg.Conversation.TurnBudget,
		MaxToolFailures: cfg.Conversation.MaxToolFailures,
		Logger:          zl,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.queue = commandqueue.New()
	rt.orchestrator, err = orchestrator.New(orchestrator.Config{
		Driver: driver,
		Store:  store,
		Queue:  rt.queue,
		Logger: zl,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	return rt, nil
}

// Close releases the queue, tracer provider, audit log and log files
func (rt *runtime) Close() error {
	if rt.queue != nil {
		rt.queue.Close()
	}
	_ = tracing.ShutdownOpenTelemetry(context.Background())
	if rt.cfg.Logging.AuditFile != "" {
		_ = observability.GetAuditLogger().Close()
		observability.SetAuditLogger(observability.NewAuditLogger(io.Discard))
	}
	return rt.log.Close()
}
