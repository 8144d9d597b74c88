package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/crewdesk/crewdesk/internal/agent"
	"github.com/crewdesk/crewdesk/internal/audit"
	"github.com/crewdesk/crewdesk/internal/config"
	"github.com/crewdesk/crewdesk/internal/docs"
	"github.com/crewdesk/crewdesk/internal/notify"
	"github.com/crewdesk/crewdesk/internal/provider"
	"github.com/crewdesk/crewdesk/internal/store"
	"github.com/crewdesk/crewdesk/internal/thread"
	"github.com/crewdesk/crewdesk/internal/tools"
)

// app is the wired-up application: every long-lived component, built once
// from config and shared by the serve and chat commands.
type app struct {
	cfg     *config.Config
	db      *sql.DB
	emitter *audit.Emitter
	orch    *agent.Orchestrator
	logger  *slog.Logger
}

func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Provider.APIKey == "" {
		path, _ := config.ConfigPath()
		return nil, fmt.Errorf("no API key configured; set CREWDESK_API_KEY or provider.apiKey in %s", path)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	emitter, err := audit.NewEmitter(audit.Options{
		Dir:           cfg.Audit.Dir,
		Env:           cfg.Env,
		StoreFullText: cfg.Audit.StoreFullText,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open audit trail: %w", err)
	}
	if cfg.Audit.KafkaBrokers != "" {
		emitter.AddSink(audit.NewKafkaSink(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic))
	}
	if emitter.StoreFullText() {
		logger.Warn("audit trail stores full query text; do not use this outside debugging", "dir", cfg.Audit.Dir)
	}

	threads, err := thread.NewStore(cfg.Threads.Dir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open thread store: %w", err)
	}

	registry := tools.NewRegistry()
	registry.Register(tools.NewExecuteSQLTool(db))
	registry.Register(tools.NewListTablesTool(db))
	registry.Register(tools.NewDescribeTableTool(db))
	registry.Register(tools.NewListDocumentsTool(db))
	registry.Register(tools.NewGetDocumentTool(db))

	prov := provider.NewOpenAIProvider(cfg.Provider.APIKey, cfg.Provider.APIBase, cfg.Provider.Model)

	opts := agent.Options{
		Provider:      prov,
		Registry:      registry,
		Threads:       threads,
		Resolver:      docs.NewStoreResolver(db),
		Audit:         emitter,
		Model:         cfg.Provider.Model,
		MaxTokens:     cfg.Model.MaxTokens,
		Temperature:   cfg.Model.Temperature,
		MaxIterations: cfg.Model.MaxToolIterations,
		Logger:        logger,
	}
	if n := notify.NewSlackNotifier(cfg.Notify.SlackToken, cfg.Notify.SlackChannel, logger); n != nil {
		opts.Notifier = n
	}

	return &app{
		cfg:     cfg,
		db:      db,
		emitter: emitter,
		orch:    agent.New(opts),
		logger:  logger,
	}, nil
}

func (a *app) Close() {
	if err := a.emitter.Close(); err != nil {
		a.logger.Warn("closing audit emitter", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}
