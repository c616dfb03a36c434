package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/dlsync/internal/history"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// Repository executes scripts against a PostgreSQL target and keeps their
// history in a history.Store.
//
// Thread-Safety: NOT safe for concurrent use. Workflows run scripts one at a time.
type Repository struct {
	pool          *pgxpool.Pool
	store         history.Store
	logger        dlsync.Logger
	historySchema string

	database string
	syncs    map[dlsync.ChangeType]uuid.UUID
}

var _ dlsync.ScriptRepository = (*Repository)(nil)

// New creates a Repository. historySchema is hidden from schema listings; pass
// "" when history is kept outside the target.
// Panics on nil dependencies.
func New(pool *pgxpool.Pool, store history.Store, logger dlsync.Logger, historySchema string) *Repository {
	if pool == nil {
		panic("pool cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Repository{
		pool:          pool,
		store:         store,
		logger:        logger,
		historySchema: historySchema,
		syncs:         make(map[dlsync.ChangeType]uuid.UUID),
	}
}

func (r *Repository) LoadScriptHashes(ctx context.Context) (map[string]string, error) {
	return r.store.Hashes(ctx)
}

func (r *Repository) IsDeployed(ctx context.Context, script *dlsync.Script) (bool, error) {
	return r.store.Exists(ctx, script.ID())
}

func (r *Repository) ApplyScript(ctx context.Context, script *dlsync.Script, hashOnly bool) error {
	if hashOnly {
		r.logger.Verbose("Recording hash of %s without executing", script.ID())
	} else if err := r.execInTx(ctx, script.ID(), script.Content); err != nil {
		return err
	}

	if err := r.store.Save(ctx, history.EntryFor(script)); err != nil {
		return fmt.Errorf("%s was applied but not recorded: %w", script.ID(), err)
	}
	return nil
}

func (r *Repository) ApplyRollback(ctx context.Context, script *dlsync.Script) error {
	if !script.IsMigration() || !script.Migration.HasRollback() {
		return fmt.Errorf("%w: %s declares no ---rollback directive", dlsync.ErrMissingRollback, script.ID())
	}

	if strings.TrimSpace(script.Migration.Rollback) == "" {
		r.logger.Verbose("Rollback of %s is empty; removing history only", script.ID())
	} else if err := r.execInTx(ctx, script.ID(), script.Migration.Rollback); err != nil {
		return err
	}

	return r.store.Delete(ctx, script.ID())
}

// RunVerify runs the verify statement of a migration inside a transaction that is
// always rolled back. A statement error means the check failed. Migrations
// without a verify statement pass. State scripts pass when their ID has a history
// entry; their live definition is not compared with the recorded one.
func (r *Repository) RunVerify(ctx context.Context, script *dlsync.Script) (bool, error) {
	if !script.IsMigration() {
		return r.store.Exists(ctx, script.ID())
	}
	if strings.TrimSpace(script.Migration.Verify) == "" {
		return true, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin verify of %s: %w", script.ID(), err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, script.Migration.Verify); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			r.logger.Verbose("Verify of %s failed: %s", script.ID(), pgErr.Message)
			return false, nil
		}
		return false, fmt.Errorf("failed to verify %s: %w", script.ID(), err)
	}
	return true, nil
}

func (r *Repository) GetMigrationScripts(ctx context.Context, ids []string) ([]*dlsync.Script, error) {
	entries, err := r.store.Entries(ctx, ids)
	if err != nil {
		return nil, err
	}

	var scripts []*dlsync.Script
	for _, e := range entries {
		if e.Version < 0 {
			continue
		}
		scripts = append(scripts, e.Script())
	}
	return scripts, nil
}

func (r *Repository) InsertDependencies(ctx context.Context, deps []dlsync.ScriptDependency) error {
	return r.store.ReplaceLineage(ctx, history.EdgesFor(deps))
}

func (r *Repository) RecordSyncStart(ctx context.Context, changeType dlsync.ChangeType) error {
	id, err := r.store.StartSync(ctx, changeType, fmt.Sprintf("%s started.", changeType))
	if err != nil {
		return err
	}
	r.syncs[changeType] = id
	return nil
}

func (r *Repository) RecordSyncEnd(ctx context.Context, changeType dlsync.ChangeType, status dlsync.Status, message string, changeCount int64) error {
	id, ok := r.syncs[changeType]
	if !ok {
		return fmt.Errorf("%w: no %s sync was started", history.ErrSyncNotOpen, changeType)
	}
	if err := r.store.EndSync(ctx, id, status, message, changeCount); err != nil {
		return err
	}
	delete(r.syncs, changeType)
	return nil
}

// execInTx runs sql as one simple-protocol batch in its own transaction.
func (r *Repository) execInTx(ctx context.Context, id, sql string) error {
	r.logger.Verbose("Executing %s", id)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, sql)
		return err
	})
	if err != nil {
		return executionError(id, sql, err)
	}
	return nil
}

// executionError names the script and points at the failing line when the
// server reports a position.
func executionError(id, sql string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Position > 0 {
		line := lineAt(sql, int(pgErr.Position))
		return fmt.Errorf("%w: %s line %d: %w\n  → %s", dlsync.ErrExecutionFailed, id, line, err, preview(lineText(sql, line)))
	}
	return fmt.Errorf("%w: %s: %w\n  → %s", dlsync.ErrExecutionFailed, id, err, preview(sql))
}

// lineAt converts a 1-based character position into a 1-based line number.
func lineAt(sql string, position int) int {
	runes := []rune(sql)
	if position > len(runes) {
		position = len(runes)
	}
	if position < 1 {
		return 1
	}
	return strings.Count(string(runes[:position-1]), "\n") + 1
}

func lineText(sql string, line int) string {
	lines := strings.Split(sql, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}

// preview shortens sql to one line of at most MaxErrorPreviewLength runes.
func preview(sql string) string {
	flat := strings.Join(strings.Fields(sql), " ")
	runes := []rune(flat)
	if len(runes) <= dlsync.MaxErrorPreviewLength {
		return flat
	}
	return string(runes[:dlsync.MaxErrorPreviewLength]) + "..."
}
