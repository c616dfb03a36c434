package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// Postgres keeps history in a schema of the target database.
type Postgres struct {
	pool   *pgxpool.Pool
	schema string

	scripts string
	syncs   string
	lineage string
}

var _ Store = (*Postgres)(nil)

// NewPostgres creates a store over pool. The pool stays owned by the caller.
// Panics if pool is nil.
func NewPostgres(pool *pgxpool.Pool, schema string) *Postgres {
	if pool == nil {
		panic("pool cannot be nil")
	}
	if schema == "" {
		schema = dlsync.DefaultHistorySchema
	}
	return &Postgres{
		pool:    pool,
		schema:  schema,
		scripts: pgx.Identifier{schema, "script_history"}.Sanitize(),
		syncs:   pgx.Identifier{schema, "change_sync"}.Sanitize(),
		lineage: pgx.Identifier{schema, "dependency_graph"}.Sanitize(),
	}
}

func (p *Postgres) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE SCHEMA IF NOT EXISTS %[1]s;
CREATE TABLE IF NOT EXISTS %[2]s (
    script_id       TEXT PRIMARY KEY,
    object_type     TEXT NOT NULL,
    database_name   TEXT NOT NULL,
    schema_name     TEXT NOT NULL,
    object_name     TEXT NOT NULL,
    version         BIGINT NOT NULL DEFAULT -1,
    author          TEXT NOT NULL DEFAULT '',
    content         TEXT NOT NULL,
    rollback_script TEXT NOT NULL DEFAULT '',
    verify_script   TEXT NOT NULL DEFAULT '',
    script_hash     TEXT NOT NULL,
    deployed_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS %[3]s (
    id           UUID PRIMARY KEY,
    change_type  TEXT NOT NULL,
    status       TEXT NOT NULL,
    message      TEXT NOT NULL DEFAULT '',
    change_count BIGINT NOT NULL DEFAULT 0,
    start_time   TIMESTAMPTZ NOT NULL DEFAULT now(),
    end_time     TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS %[4]s (
    dependent_id    TEXT NOT NULL,
    dependent_type  TEXT NOT NULL,
    depends_on_id   TEXT NOT NULL,
    depends_on_type TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`, pgx.Identifier{p.schema}.Sanitize(), p.scripts, p.syncs, p.lineage)

	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create history tables in schema %s: %w", p.schema, err)
	}
	return nil
}

func (p *Postgres) Hashes(ctx context.Context) (map[string]string, error) {
	rows, err := p.pool.Query(ctx, "SELECT script_id, script_hash FROM "+p.scripts)
	if err != nil {
		return nil, fmt.Errorf("failed to load script hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan script hash: %w", err)
		}
		hashes[id] = hash
	}
	return hashes, rows.Err()
}

func (p *Postgres) Exists(ctx context.Context, scriptID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM "+p.scripts+" WHERE script_id = $1)", scriptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", scriptID, err)
	}
	return exists, nil
}

func (p *Postgres) Entries(ctx context.Context, scriptIDs []string) ([]Entry, error) {
	if len(scriptIDs) == 0 {
		return nil, nil
	}
	rows, err := p.pool.Query(ctx, `
SELECT script_id, object_type, database_name, schema_name, object_name, version, author,
       content, rollback_script, verify_script, script_hash, deployed_at
FROM `+p.scripts+`
WHERE script_id = ANY($1)
ORDER BY script_id`, scriptIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load history entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		var objectType string
		err := row.Scan(&e.ScriptID, &objectType, &e.Database, &e.Schema, &e.ObjectName, &e.Version, &e.Author,
			&e.Content, &e.Rollback, &e.Verify, &e.Hash, &e.DeployedAt)
		e.ObjectType = dlsync.ObjectType(objectType)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan history entries: %w", err)
	}
	return entries, nil
}

func (p *Postgres) Save(ctx context.Context, e Entry) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO `+p.scripts+` (script_id, object_type, database_name, schema_name, object_name, version, author,
                           content, rollback_script, verify_script, script_hash, deployed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
ON CONFLICT (script_id) DO UPDATE SET
    object_type = EXCLUDED.object_type,
    database_name = EXCLUDED.database_name,
    schema_name = EXCLUDED.schema_name,
    object_name = EXCLUDED.object_name,
    version = EXCLUDED.version,
    author = EXCLUDED.author,
    content = EXCLUDED.content,
    rollback_script = EXCLUDED.rollback_script,
    verify_script = EXCLUDED.verify_script,
    script_hash = EXCLUDED.script_hash,
    deployed_at = EXCLUDED.deployed_at`,
		e.ScriptID, string(e.ObjectType), e.Database, e.Schema, e.ObjectName, e.Version, e.Author,
		e.Content, e.Rollback, e.Verify, e.Hash)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", e.ScriptID, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, scriptID string) error {
	if _, err := p.pool.Exec(ctx, "DELETE FROM "+p.scripts+" WHERE script_id = $1", scriptID); err != nil {
		return fmt.Errorf("failed to delete history of %s: %w", scriptID, err)
	}
	return nil
}

func (p *Postgres) StartSync(ctx context.Context, changeType dlsync.ChangeType, message string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := p.pool.Exec(ctx,
		"INSERT INTO "+p.syncs+" (id, change_type, status, message) VALUES ($1, $2, $3, $4)",
		id, string(changeType), string(dlsync.StatusInProgress), message)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to start %s sync: %w", changeType, err)
	}
	return id, nil
}

func (p *Postgres) EndSync(ctx context.Context, id uuid.UUID, status dlsync.Status, message string, changeCount int64) error {
	if !status.IsTerminal() {
		return fmt.Errorf("cannot end sync with status %s", status)
	}
	tag, err := p.pool.Exec(ctx,
		"UPDATE "+p.syncs+" SET status = $2, message = $3, change_count = $4, end_time = now() WHERE id = $1 AND status = $5",
		id, string(status), message, changeCount, string(dlsync.StatusInProgress))
	if err != nil {
		return fmt.Errorf("failed to end sync %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSyncNotOpen, id)
	}
	return nil
}

func (p *Postgres) Syncs(ctx context.Context, limit int) ([]SyncRecord, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, change_type, status, message, change_count, start_time, end_time
FROM `+p.syncs+`
ORDER BY start_time DESC, id
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync records: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SyncRecord, error) {
		var r SyncRecord
		var changeType, status string
		err := row.Scan(&r.ID, &changeType, &status, &r.Message, &r.ChangeCount, &r.StartedAt, &r.EndedAt)
		r.ChangeType, r.Status = dlsync.ChangeType(changeType), dlsync.Status(status)
		return r, err
	})
}

func (p *Postgres) ReplaceLineage(ctx context.Context, edges []LineageEdge) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin lineage update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM "+p.lineage); err != nil {
		return fmt.Errorf("failed to clear lineage: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{p.schema, "dependency_graph"},
		[]string{"dependent_id", "dependent_type", "depends_on_id", "depends_on_type"},
		pgx.CopyFromSlice(len(edges), func(i int) ([]any, error) {
			e := edges[i]
			return []any{e.DependentID, string(e.DependentType), e.DependsOnID, string(e.DependsOnType)}, nil
		}))
	if err != nil {
		return fmt.Errorf("failed to insert lineage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to commit lineage: %w", err)
	}
	return nil
}

func (p *Postgres) Lineage(ctx context.Context) ([]LineageEdge, error) {
	rows, err := p.pool.Query(ctx, `
SELECT dependent_id, dependent_type, depends_on_id, depends_on_type
FROM `+p.lineage+`
ORDER BY dependent_id, depends_on_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load lineage: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LineageEdge, error) {
		var e LineageEdge
		var dependentType, dependsOnType string
		err := row.Scan(&e.DependentID, &dependentType, &e.DependsOnID, &dependsOnType)
		e.DependentType, e.DependsOnType = dlsync.ObjectType(dependentType), dlsync.ObjectType(dependsOnType)
		return e, err
	})
}

// Close is a no-op: the pool belongs to the caller.
func (p *Postgres) Close() error {
	return nil
}
