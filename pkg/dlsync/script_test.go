package dlsync_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

func sha(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestNewStateScript_NormalizesIdentity(t *testing.T) {
	s := dlsync.NewStateScript("db1", "Schema1", dlsync.ObjectViews, "view1", "create view db1.schema1.view1 as select 1;")

	assert.Equal(t, "DB1", s.Database)
	assert.Equal(t, "SCHEMA1", s.Schema)
	assert.Equal(t, "VIEW1", s.ObjectName)
	assert.Equal(t, "DB1.SCHEMA1.VIEW1", s.FullObjectName())
	assert.Equal(t, "VIEWS/DB1.SCHEMA1.VIEW1", s.ObjectID())
	assert.Equal(t, s.ObjectID(), s.ID())
	assert.Equal(t, dlsync.KindState, s.Kind())
	assert.Equal(t, int64(-1), s.Version())
}

func TestNewStateScript_KeepsQuotedName(t *testing.T) {
	s := dlsync.NewStateScript("db", "sch", dlsync.ObjectTables, `"table4"`, "")
	assert.Equal(t, `"table4"`, s.ObjectName)
}

func TestMigrationScript_IDIncludesVersion(t *testing.T) {
	s := dlsync.NewMigrationScript("db", "sch", dlsync.ObjectTables, "t", dlsync.Migration{
		Version: 3, Author: "a", Content: "alter table t add c int;", Rollback: "alter table t drop c;",
	})

	require.True(t, s.IsMigration())
	assert.Equal(t, dlsync.KindMigration, s.Kind())
	assert.Equal(t, "TABLES/DB.SCH.T:3", s.ID())
	assert.Equal(t, "TABLES/DB.SCH.T", s.ObjectID())
	assert.Equal(t, int64(3), s.Version())
	assert.True(t, s.Migration.HasRollback())
	assert.False(t, s.Migration.HasVerify())
}

func TestScriptHash_StableAcrossInjection(t *testing.T) {
	s := dlsync.NewStateScript("db", "sch", dlsync.ObjectViews, "v", "select ${x}")
	before := s.Hash()
	assert.Equal(t, sha("select ${x}"), before)

	s.Content = "select 1"
	assert.Equal(t, before, s.Hash(), "hash is pinned to the template content")
}

func TestScriptHash_SameContentSameHash(t *testing.T) {
	a := dlsync.NewStateScript("db", "sch", dlsync.ObjectViews, "v", "select 1")
	b := dlsync.NewStateScript("other", "x", dlsync.ObjectViews, "w", "select 1")
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestScriptClone_Independent(t *testing.T) {
	s := dlsync.NewMigrationScript("db", "sch", dlsync.ObjectTables, "t", dlsync.Migration{Version: 1, Content: "x"})
	c := s.Clone()
	c.Migration.Rollback = "drop"
	c.Database = "OTHER"

	assert.Empty(t, s.Migration.Rollback)
	assert.Equal(t, "DB", s.Database)
}

func TestParseObjectType(t *testing.T) {
	got, err := dlsync.ParseObjectType("file_formats")
	require.NoError(t, err)
	assert.Equal(t, dlsync.ObjectFileFormats, got)

	_, err = dlsync.ParseObjectType("WIDGETS")
	assert.Error(t, err)
}

func TestObjectTypeForKeyword(t *testing.T) {
	got, ok := dlsync.ObjectTypeForKeyword("file   format")
	require.True(t, ok)
	assert.Equal(t, dlsync.ObjectFileFormats, got)

	_, ok = dlsync.ObjectTypeForKeyword("schema")
	assert.False(t, ok)
}

func TestObjectType_IsMigration(t *testing.T) {
	migrations := map[dlsync.ObjectType]bool{
		dlsync.ObjectTables: true, dlsync.ObjectStreams: true, dlsync.ObjectSequences: true,
		dlsync.ObjectStages: true, dlsync.ObjectTasks: true,
	}
	for _, ot := range dlsync.ObjectTypes {
		assert.Equal(t, migrations[ot], ot.IsMigration(), ot)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, dlsync.StatusInProgress.IsTerminal())
	assert.True(t, dlsync.StatusSuccess.IsTerminal())
	assert.True(t, dlsync.StatusError.IsTerminal())
}
