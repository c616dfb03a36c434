package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// ErrSyncNotOpen is returned when closing a sync record that is missing or
// already terminal.
var ErrSyncNotOpen = errors.New("sync record is not in progress")

// Entry is the recorded state of one deployed script.
type Entry struct {
	ScriptID   string
	ObjectType dlsync.ObjectType
	Database   string
	Schema     string
	ObjectName string
	Version    int64 // -1 for state scripts
	Author     string
	Content    string
	Rollback   string
	Verify     string
	Hash       string
	DeployedAt time.Time
}

// EntryFor captures script as it is being deployed. Hash is the template hash;
// Content is whatever was executed.
func EntryFor(s *dlsync.Script) Entry {
	e := Entry{
		ScriptID:   s.ID(),
		ObjectType: s.ObjectType,
		Database:   s.Database,
		Schema:     s.Schema,
		ObjectName: s.ObjectName,
		Version:    s.Version(),
		Content:    s.Content,
		Hash:       s.Hash(),
	}
	if s.Migration != nil {
		e.Author = s.Migration.Author
		e.Rollback = s.Migration.Rollback
		e.Verify = s.Migration.Verify
	}
	return e
}

// Script rebuilds the script the entry was recorded from.
func (e Entry) Script() *dlsync.Script {
	if e.Version < 0 {
		return dlsync.NewStateScript(e.Database, e.Schema, e.ObjectType, e.ObjectName, e.Content)
	}
	return dlsync.NewMigrationScript(e.Database, e.Schema, e.ObjectType, e.ObjectName, dlsync.Migration{
		Version:  e.Version,
		Author:   e.Author,
		Content:  e.Content,
		Rollback: e.Rollback,
		Verify:   e.Verify,
	})
}

// SyncRecord is one workflow run.
type SyncRecord struct {
	ID          uuid.UUID
	ChangeType  dlsync.ChangeType
	Status      dlsync.Status
	Message     string
	ChangeCount int64
	StartedAt   time.Time
	EndedAt     *time.Time
}

// LineageEdge is a stored object dependency.
type LineageEdge struct {
	DependentID   string
	DependentType dlsync.ObjectType
	DependsOnID   string
	DependsOnType dlsync.ObjectType
}

// EdgesFor converts dependencies to their stored form.
func EdgesFor(deps []dlsync.ScriptDependency) []LineageEdge {
	edges := make([]LineageEdge, 0, len(deps))
	for _, d := range deps {
		edges = append(edges, LineageEdge{
			DependentID:   d.Dependent.FullObjectName(),
			DependentType: d.Dependent.ObjectType,
			DependsOnID:   d.DependsOn.FullObjectName(),
			DependsOnType: d.DependsOn.ObjectType,
		})
	}
	return edges
}

// Store is the persistence contract shared by the Postgres and SQLite backends.
type Store interface {
	// Init creates the history tables if they do not exist.
	Init(ctx context.Context) error

	// Hashes returns the recorded hash per script ID.
	Hashes(ctx context.Context) (map[string]string, error)

	// Exists reports whether scriptID has an entry.
	Exists(ctx context.Context, scriptID string) (bool, error)

	// Entries returns the entries for the given IDs, ordered by ID. Unknown IDs are skipped.
	Entries(ctx context.Context, scriptIDs []string) ([]Entry, error)

	// Save inserts or replaces an entry.
	Save(ctx context.Context, e Entry) error

	// Delete removes an entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, scriptID string) error

	// StartSync opens a sync record in IN_PROGRESS state.
	StartSync(ctx context.Context, changeType dlsync.ChangeType, message string) (uuid.UUID, error)

	// EndSync moves an open sync record to a terminal status.
	// It returns ErrSyncNotOpen if the record is not IN_PROGRESS.
	EndSync(ctx context.Context, id uuid.UUID, status dlsync.Status, message string, changeCount int64) error

	// Syncs returns the most recent sync records, newest first.
	Syncs(ctx context.Context, limit int) ([]SyncRecord, error)

	// ReplaceLineage swaps the stored lineage for edges.
	ReplaceLineage(ctx context.Context, edges []LineageEdge) error

	// Lineage returns the stored lineage ordered by dependent, then dependency.
	Lineage(ctx context.Context) ([]LineageEdge, error)

	// Close releases resources owned by the store.
	Close() error
}
