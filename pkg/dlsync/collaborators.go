package dlsync

import "context"

// ScriptSource reads and writes the script tree.
type ScriptSource interface {
	// ListScripts parses every script file under the root.
	ListScripts(ctx context.Context) ([]*Script, error)

	// WriteScripts writes scripts back as DB/SCHEMA/TYPE/NAME.SQL files.
	// Migration scripts of the same object are rendered into one file.
	WriteScripts(ctx context.Context, scripts []*Script) error

	// ReadManualDependencies returns manually declared lineage between the given scripts.
	ReadManualDependencies(ctx context.Context, scripts []*Script) ([]ScriptDependency, error)
}

// ScriptRepository tracks deployment history and executes scripts against the target.
type ScriptRepository interface {
	// LoadScriptHashes returns the recorded hash per script ID.
	LoadScriptHashes(ctx context.Context) (map[string]string, error)

	// IsDeployed reports whether the script ID has a history entry.
	IsDeployed(ctx context.Context, script *Script) (bool, error)

	// ApplyScript executes the script and records its hash.
	// With hashOnly set the hash is recorded without executing.
	ApplyScript(ctx context.Context, script *Script, hashOnly bool) error

	// ApplyRollback executes the migration's rollback statement and removes its history entry.
	ApplyRollback(ctx context.Context, script *Script) error

	// RunVerify reports whether the script's deployed state checks out. Migrations
	// run their verify statement; state scripts only need to be tracked in history.
	RunVerify(ctx context.Context, script *Script) (bool, error)

	// GetMigrationScripts rebuilds recorded migration scripts for the given IDs.
	// IDs that do not name a recorded migration are ignored.
	GetMigrationScripts(ctx context.Context, ids []string) ([]*Script, error)

	// ListSchemas returns the user schemas of the target database.
	ListSchemas(ctx context.Context) ([]string, error)

	// ListObjectsInSchema reverse engineers the live objects of a schema into scripts.
	ListObjectsInSchema(ctx context.Context, schema string) ([]*Script, error)

	// AddConfig appends the table's rows to its script as INSERT statements.
	AddConfig(ctx context.Context, script *Script) error

	// InsertDependencies replaces the stored lineage with deps.
	InsertDependencies(ctx context.Context, deps []ScriptDependency) error

	// RecordSyncStart opens a sync record in IN_PROGRESS state.
	RecordSyncStart(ctx context.Context, changeType ChangeType) error

	// RecordSyncEnd closes the open sync record with a terminal status.
	RecordSyncEnd(ctx context.Context, changeType ChangeType, status Status, message string, changeCount int64) error
}

// ParameterInjector substitutes profile parameters into scripts and back.
type ParameterInjector interface {
	// Inject replaces placeholders in the script content.
	Inject(script *Script)

	// InjectAll replaces placeholders in content, rollback and verify statements.
	InjectAll(script *Script)

	// InjectNames replaces placeholders in object names.
	InjectNames(names []string) []string

	// Parametrize replaces parameter values with their placeholders in
	// identity fields and content.
	Parametrize(script *Script)

	// ParametrizeName replaces parameter values with placeholders in a dotted object name.
	ParametrizeName(name string) string
}
