package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dlsync/internal/history"
	"github.com/vvka-141/dlsync/internal/logging"
	testhelpers "github.com/vvka-141/dlsync/internal/testing"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

type fixture struct {
	repo  *Repository
	store *history.Postgres
	pool  *testhelpers.PoolWithNoticeCapture
	db    string
}

func setup(t *testing.T) *fixture {
	t.Helper()

	connString := testhelpers.RequireDatabase(t)
	dbName := testhelpers.UniqueDBName("dlsync_repo")
	testhelpers.CreateTestDB(t, connString, dbName)
	pool := testhelpers.GetTestPoolWithNoticeCapture(t, connString, dbName)

	ctx := context.Background()
	_, err := pool.Exec(ctx, "CREATE SCHEMA main")
	require.NoError(t, err)

	store := history.NewPostgres(pool.Pool, "")
	require.NoError(t, store.Init(ctx))

	return &fixture{
		repo:  New(pool.Pool, store, logging.NewNullLogger(), dlsync.DefaultHistorySchema),
		store: store,
		pool:  pool,
		db:    dlsync.NormalizeIdentifier(dbName),
	}
}

func ordersTable(f *fixture) *dlsync.Script {
	return dlsync.NewMigrationScript(f.db, "MAIN", dlsync.ObjectTables, "ORDERS", dlsync.Migration{
		Version:  0,
		Content:  "CREATE TABLE main.orders (id int NOT NULL, note text);\n" + testhelpers.AppliedNotice("ORDERS"),
		Rollback: "DROP TABLE main.orders CASCADE;",
		Verify:   "SELECT note FROM main.orders LIMIT 1;",
	})
}

func TestRepository_ApplyVerifyRollback(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	table := ordersTable(f)
	view := dlsync.NewStateScript(f.db, "MAIN", dlsync.ObjectViews, "ORDERS_V",
		"CREATE OR REPLACE VIEW main.orders_v AS SELECT id FROM main.orders;\n"+testhelpers.AppliedNotice("ORDERS_V"))

	require.NoError(t, f.repo.ApplyScript(ctx, table, false))
	require.NoError(t, f.repo.ApplyScript(ctx, view, false))
	assert.Equal(t, []string{"ORDERS", "ORDERS_V"}, f.pool.Capture.Applied())

	hashes, err := f.repo.LoadScriptHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, table.Hash(), hashes[table.ID()])
	assert.Equal(t, view.Hash(), hashes[view.ID()])

	ok, err := f.repo.RunVerify(ctx, table)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.repo.RunVerify(ctx, view)
	require.NoError(t, err)
	assert.True(t, ok)

	broken := table.Clone()
	broken.Migration.Verify = "SELECT missing_column FROM main.orders;"
	ok, err = f.repo.RunVerify(ctx, broken)
	require.NoError(t, err)
	assert.False(t, ok)

	restored, err := f.repo.GetMigrationScripts(ctx, []string{table.ID(), view.ID()})
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, table.Migration.Rollback, restored[0].Migration.Rollback)

	require.NoError(t, f.repo.ApplyRollback(ctx, restored[0]))
	deployed, err := f.repo.IsDeployed(ctx, table)
	require.NoError(t, err)
	assert.False(t, deployed)

	var exists bool
	require.NoError(t, f.pool.QueryRow(ctx, "SELECT to_regclass('main.orders') IS NOT NULL").Scan(&exists))
	assert.False(t, exists)
}

func TestRepository_HashOnlyDoesNotExecute(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	table := ordersTable(f)
	require.NoError(t, f.repo.ApplyScript(ctx, table, true))

	assert.Empty(t, f.pool.Capture.Applied())
	deployed, err := f.repo.IsDeployed(ctx, table)
	require.NoError(t, err)
	assert.True(t, deployed)
}

func TestRepository_FailedScriptIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	script := dlsync.NewStateScript(f.db, "MAIN", dlsync.ObjectViews, "BROKEN", "SELECT 1;\nSELEC broken;")
	err := f.repo.ApplyScript(ctx, script, false)

	require.Error(t, err)
	assert.True(t, errors.Is(err, dlsync.ErrExecutionFailed))
	assert.Contains(t, err.Error(), "line 2")

	deployed, err := f.repo.IsDeployed(ctx, script)
	require.NoError(t, err)
	assert.False(t, deployed)
}

func TestRepository_RollbackRules(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	missing := dlsync.NewMigrationScript(f.db, "MAIN", dlsync.ObjectTables, "T", dlsync.Migration{Version: 1, Content: "SELECT 1;"})
	err := f.repo.ApplyRollback(ctx, missing)
	assert.True(t, errors.Is(err, dlsync.ErrMissingRollback))

	empty := dlsync.NewMigrationScript(f.db, "MAIN", dlsync.ObjectTables, "T", dlsync.Migration{Version: 2, Content: "SELECT 1;", Rollback: " "})
	require.NoError(t, f.repo.ApplyScript(ctx, empty, true))
	require.NoError(t, f.repo.ApplyRollback(ctx, empty))

	deployed, err := f.repo.IsDeployed(ctx, empty)
	require.NoError(t, err)
	assert.False(t, deployed)
}

func TestRepository_ReverseEngineering(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.pool.Exec(ctx, `
		CREATE TABLE main.settings (key text NOT NULL, value text, enabled boolean DEFAULT true);
		INSERT INTO main.settings VALUES ('region', 'eu''west', false);
		CREATE SEQUENCE main.ticket_seq START WITH 10;
		CREATE VIEW main.enabled_settings AS SELECT key FROM main.settings WHERE enabled;
		CREATE FUNCTION main.setting_count() RETURNS bigint LANGUAGE sql AS $function$ SELECT count(*) FROM main.settings; $function$;`)
	require.NoError(t, err)

	schemas, err := f.repo.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Contains(t, schemas, "main")
	assert.Contains(t, schemas, "public")
	assert.NotContains(t, schemas, dlsync.DefaultHistorySchema)

	scripts, err := f.repo.ListObjectsInSchema(ctx, "MAIN")
	require.NoError(t, err)

	byID := make(map[string]*dlsync.Script)
	for _, s := range scripts {
		byID[s.ID()] = s
	}
	prefix := f.db + ".MAIN."
	require.Contains(t, byID, "TABLES/"+prefix+"SETTINGS:0")
	require.Contains(t, byID, "SEQUENCES/"+prefix+"TICKET_SEQ:0")
	require.Contains(t, byID, "VIEWS/"+prefix+"ENABLED_SETTINGS")
	require.Contains(t, byID, "FUNCTIONS/"+prefix+"SETTING_COUNT")
	assert.Contains(t, byID["TABLES/"+prefix+"SETTINGS:0"].Content, "enabled boolean DEFAULT true")
	assert.Contains(t, byID["FUNCTIONS/"+prefix+"SETTING_COUNT"].Content, "$function$")

	settings := byID["TABLES/"+prefix+"SETTINGS:0"]
	require.NoError(t, f.repo.AddConfig(ctx, settings))
	assert.Contains(t, settings.Content, "INSERT INTO MAIN.SETTINGS (key, value, enabled) VALUES ('region', 'eu''west', FALSE);")
}

func TestRepository_SyncRecords(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	require.NoError(t, f.repo.RecordSyncStart(ctx, dlsync.ChangeDeploy))
	require.NoError(t, f.repo.RecordSyncEnd(ctx, dlsync.ChangeDeploy, dlsync.StatusSuccess, "Successfully completed DEPLOY", 2))

	err := f.repo.RecordSyncEnd(ctx, dlsync.ChangeDeploy, dlsync.StatusError, "again", 0)
	assert.True(t, errors.Is(err, history.ErrSyncNotOpen))

	records, err := f.store.Syncs(ctx, 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Successfully completed DEPLOY", records[0].Message)
	assert.Equal(t, dlsync.StatusSuccess, records[0].Status)
	assert.Equal(t, int64(2), records[0].ChangeCount)
}

func TestRepository_InsertDependencies(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	table := ordersTable(f)
	view := dlsync.NewStateScript(f.db, "MAIN", dlsync.ObjectViews, "ORDERS_V", "")
	require.NoError(t, f.repo.InsertDependencies(ctx, []dlsync.ScriptDependency{{Dependent: view, DependsOn: table}}))

	edges, err := f.store.Lineage(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, view.FullObjectName(), edges[0].DependentID)
	assert.Equal(t, dlsync.ObjectTables, edges[0].DependsOnType)
}
