package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/dlsync/internal/config"
	"github.com/vvka-141/dlsync/internal/db"
	"github.com/vvka-141/dlsync/internal/history"
	"github.com/vvka-141/dlsync/internal/params"
	"github.com/vvka-141/dlsync/internal/repository"
	"github.com/vvka-141/dlsync/internal/services"
	"github.com/vvka-141/dlsync/internal/source"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// workspace holds the collaborators of one command run.
type workspace struct {
	cfg     *dlsync.RunConfig
	logger  dlsync.Logger
	project *config.ProjectConfig
	pool    *pgxpool.Pool
	store   history.Store
	manager *services.ChangeManager
	target  string
}

// openWorkspace loads the project, connects to the target and opens the
// history store. Close must be called on success.
func openWorkspace(ctx context.Context, cfg *dlsync.RunConfig, approver dlsync.Approver, logger dlsync.Logger) (*workspace, error) {
	project, err := config.Load(cfg.ScriptRoot)
	if err != nil {
		return nil, err
	}
	values, err := params.Load(cfg.ScriptRoot, cfg.Profile, cfg.Parameters, nil)
	if err != nil {
		return nil, err
	}
	logger.Verbose("Loaded %d parameters for profile %s", len(values), cfg.Profile)

	connector, err := db.NewConnector(cfg.ConnectionString, logger)
	if err != nil {
		return nil, err
	}
	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	store, historySchema, err := openStore(cfg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}

	repo := repository.New(pool, store, logger, historySchema)
	src := source.New(cfg.ScriptRoot, logger).WithParallelism(cfg.Parallelism)
	target := connector.Config().Database

	return &workspace{
		cfg:     cfg,
		logger:  logger,
		project: project,
		pool:    pool,
		store:   store,
		manager: services.NewChangeManager(project, src, repo, params.NewInjector(values), approver, logger, target),
		target:  target,
	}, nil
}

// openStore picks the history backend. History kept in a local sqlite file
// leaves no schema to hide from reverse engineering.
func openStore(cfg *dlsync.RunConfig, pool *pgxpool.Pool) (history.Store, string, error) {
	if cfg.HistoryInTarget() {
		schema := cfg.HistorySchema
		if schema == "" {
			schema = dlsync.DefaultHistorySchema
		}
		return history.NewPostgres(pool, schema), schema, nil
	}
	store, err := history.OpenSQLite(cfg.History)
	if err != nil {
		return nil, "", err
	}
	return store, "", nil
}

func (w *workspace) Close() {
	if err := w.store.Close(); err != nil {
		w.logger.Error("Failed to close history store: %v", err)
	}
	w.pool.Close()
}
