package history

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

func TestEntryFor_StateScript(t *testing.T) {
	script := dlsync.NewStateScript("${DB}", "main", dlsync.ObjectViews, "v", "create view v as select 1;")

	e := EntryFor(script)

	assert.Equal(t, "VIEWS/${DB}.MAIN.V", e.ScriptID)
	assert.Equal(t, int64(-1), e.Version)
	assert.Empty(t, e.Rollback)
	assert.Equal(t, script.Hash(), e.Hash)
	assert.False(t, e.Script().IsMigration())
}

func TestEntryFor_KeepsTemplateHashAfterInjection(t *testing.T) {
	script := dlsync.NewStateScript("${DB}", "main", dlsync.ObjectViews, "v", "select * from ${DB}.main.t;")
	template := script.Hash()
	script.Content = "select * from ANALYTICS.main.t;"

	e := EntryFor(script)

	assert.Equal(t, template, e.Hash)
	assert.Equal(t, "select * from ANALYTICS.main.t;", e.Content)
}

func TestEntryFor_BlankRollbackSurvives(t *testing.T) {
	script := dlsync.NewMigrationScript("DB", "MAIN", dlsync.ObjectTables, "T", dlsync.Migration{
		Version: 2, Content: "insert into t values (1);", Rollback: " ",
	})

	rebuilt := EntryFor(script).Script()

	assert.True(t, rebuilt.Migration.HasRollback())
	assert.Equal(t, " ", rebuilt.Migration.Rollback)
	assert.Equal(t, script.ID(), rebuilt.ID())
}
