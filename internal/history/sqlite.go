package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS script_history (
    script_id       TEXT PRIMARY KEY,
    object_type     TEXT NOT NULL,
    database_name   TEXT NOT NULL,
    schema_name     TEXT NOT NULL,
    object_name     TEXT NOT NULL,
    version         INTEGER NOT NULL DEFAULT -1,
    author          TEXT NOT NULL DEFAULT '',
    content         TEXT NOT NULL,
    rollback_script TEXT NOT NULL DEFAULT '',
    verify_script   TEXT NOT NULL DEFAULT '',
    script_hash     TEXT NOT NULL,
    deployed_at     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS change_sync (
    id           TEXT PRIMARY KEY,
    change_type  TEXT NOT NULL,
    status       TEXT NOT NULL,
    message      TEXT NOT NULL DEFAULT '',
    change_count INTEGER NOT NULL DEFAULT 0,
    start_time   TEXT NOT NULL,
    end_time     TEXT
);
CREATE TABLE IF NOT EXISTS dependency_graph (
    dependent_id    TEXT NOT NULL,
    dependent_type  TEXT NOT NULL,
    depends_on_id   TEXT NOT NULL,
    depends_on_type TEXT NOT NULL
);`

// SQLite keeps history in a local database file, away from the target.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the history file at dsn. ":memory:" gives a
// private in-memory store.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// SQLite allows one writer.
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create history tables: %w", err)
	}
	return nil
}

func (s *SQLite) Hashes(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT script_id, script_hash FROM script_history")
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

func (s *SQLite) Exists(ctx context.Context, scriptID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM script_history WHERE script_id = ?", scriptID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", scriptID, err)
	}
	return n > 0, nil
}

func (s *SQLite) Entries(ctx context.Context, scriptIDs []string) ([]Entry, error) {
	if len(scriptIDs) == 0 {
		return nil, nil
	}

	args := make([]any, len(scriptIDs))
	for i, id := range scriptIDs {
		args[i] = id
	}
	query := `
SELECT script_id, object_type, database_name, schema_name, object_name, version, author,
       content, rollback_script, verify_script, script_hash, deployed_at
FROM script_history
WHERE script_id IN (` + placeholders(len(scriptIDs)) + `)
ORDER BY script_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load history entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var objectType, deployedAt string
		if err := rows.Scan(&e.ScriptID, &objectType, &e.Database, &e.Schema, &e.ObjectName, &e.Version, &e.Author,
			&e.Content, &e.Rollback, &e.Verify, &e.Hash, &deployedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.ObjectType = dlsync.ObjectType(objectType)
		if e.DeployedAt, err = time.Parse(timeLayout, deployedAt); err != nil {
			return nil, fmt.Errorf("bad deployed_at for %s: %w", e.ScriptID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLite) Save(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO script_history (script_id, object_type, database_name, schema_name, object_name, version,
                                       author, content, rollback_script, verify_script, script_hash, deployed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ScriptID, string(e.ObjectType), e.Database, e.Schema, e.ObjectName, e.Version,
		e.Author, e.Content, e.Rollback, e.Verify, e.Hash, s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", e.ScriptID, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, scriptID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM script_history WHERE script_id = ?", scriptID); err != nil {
		return fmt.Errorf("failed to delete history of %s: %w", scriptID, err)
	}
	return nil
}

func (s *SQLite) StartSync(ctx context.Context, changeType dlsync.ChangeType, message string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO change_sync (id, change_type, status, message, start_time) VALUES (?, ?, ?, ?, ?)",
		id.String(), string(changeType), string(dlsync.StatusInProgress), message, s.timestamp())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to start %s sync: %w", changeType, err)
	}
	return id, nil
}

func (s *SQLite) EndSync(ctx context.Context, id uuid.UUID, status dlsync.Status, message string, changeCount int64) error {
	if !status.IsTerminal() {
		return fmt.Errorf("cannot end sync with status %s", status)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE change_sync SET status = ?, message = ?, change_count = ?, end_time = ? WHERE id = ? AND status = ?",
		string(status), message, changeCount, s.timestamp(), id.String(), string(dlsync.StatusInProgress))
	if err != nil {
		return fmt.Errorf("failed to end sync %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to end sync %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSyncNotOpen, id)
	}
	return nil
}

func (s *SQLite) Syncs(ctx context.Context, limit int) ([]SyncRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, change_type, status, message, change_count, start_time, end_time
FROM change_sync
ORDER BY start_time DESC, rowid DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync records: %w", err)
	}
	defer rows.Close()

	var records []SyncRecord
	for rows.Next() {
		var r SyncRecord
		var id, changeType, status, started string
		var ended sql.NullString
		if err := rows.Scan(&id, &changeType, &status, &r.Message, &r.ChangeCount, &started, &ended); err != nil {
			return nil, fmt.Errorf("failed to scan sync record: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad sync id %q: %w", id, err)
		}
		r.ChangeType, r.Status = dlsync.ChangeType(changeType), dlsync.Status(status)
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("bad start_time for %s: %w", id, err)
		}
		if ended.Valid {
			t, err := time.Parse(timeLayout, ended.String)
			if err != nil {
				return nil, fmt.Errorf("bad end_time for %s: %w", id, err)
			}
			r.EndedAt = &t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLite) ReplaceLineage(ctx context.Context, edges []LineageEdge) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin lineage update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM dependency_graph"); err != nil {
		return fmt.Errorf("failed to clear lineage: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO dependency_graph (dependent_id, dependent_type, depends_on_id, depends_on_type) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare lineage insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err = stmt.ExecContext(ctx, e.DependentID, string(e.DependentType), e.DependsOnID, string(e.DependsOnType)); err != nil {
			return fmt.Errorf("failed to insert lineage %s -> %s: %w", e.DependentID, e.DependsOnID, err)
		}
	}

	if err = tx.Commit(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to commit lineage: %w", err)
	}
	return nil
}

func (s *SQLite) Lineage(ctx context.Context) ([]LineageEdge, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT dependent_id, dependent_type, depends_on_id, depends_on_type
FROM dependency_graph
ORDER BY dependent_id, depends_on_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load lineage: %w", err)
	}
	defer rows.Close()

	var edges []LineageEdge
	for rows.Next() {
		var e LineageEdge
		var dependentType, dependsOnType string
		if err := rows.Scan(&e.DependentID, &dependentType, &e.DependsOnID, &dependsOnType); err != nil {
			return nil, fmt.Errorf("failed to scan lineage: %w", err)
		}
		e.DependentType, e.DependsOnType = dlsync.ObjectType(dependentType), dlsync.ObjectType(dependsOnType)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
