package dlsync

import (
	"fmt"
	"strings"

	"github.com/vvka-141/dlsync/internal/checksum"
)

// ScriptKind discriminates the two script variants.
type ScriptKind int

const (
	// KindState scripts hold the full current definition of an object.
	KindState ScriptKind = iota
	// KindMigration scripts hold one immutable version of an object.
	KindMigration
)

func (k ScriptKind) String() string {
	if k == KindMigration {
		return "migration"
	}
	return "state"
}

// Migration is one versioned block of a migration file as produced by the parser.
// Rollback and Verify are "" when absent and " " when declared without a statement.
type Migration struct {
	Version  int64
	Author   string
	Content  string
	Rollback string
	Verify   string
}

// MigrationInfo is the version payload carried by migration scripts.
type MigrationInfo struct {
	Version  int64
	Author   string
	Rollback string
	Verify   string
}

// HasRollback reports whether a rollback directive was declared.
func (m *MigrationInfo) HasRollback() bool {
	return m.Rollback != ""
}

// HasVerify reports whether a verify directive was declared.
func (m *MigrationInfo) HasVerify() bool {
	return m.Verify != ""
}

// Script is a unit of deployment: one database object, or one version of it.
//
// Identity fields are normalized to upper case on construction. Content may be
// rewritten by parameter injection; Hash is pinned at its first computation so it
// always reflects the template content read from the source tree.
//
// Script is not safe for concurrent mutation.
type Script struct {
	Database   string
	Schema     string
	ObjectName string
	ObjectType ObjectType
	Content    string

	// Migration is non-nil exactly for migration scripts.
	Migration *MigrationInfo

	hash string
}

// NewStateScript creates a script holding the full definition of an object.
func NewStateScript(database, schema string, objectType ObjectType, objectName, content string) *Script {
	return &Script{
		Database:   NormalizeIdentifier(database),
		Schema:     NormalizeIdentifier(schema),
		ObjectName: NormalizeIdentifier(objectName),
		ObjectType: objectType,
		Content:    content,
	}
}

// NewMigrationScript creates a script holding one version of an object.
func NewMigrationScript(database, schema string, objectType ObjectType, objectName string, m Migration) *Script {
	s := NewStateScript(database, schema, objectType, objectName, m.Content)
	s.Migration = &MigrationInfo{
		Version:  m.Version,
		Author:   m.Author,
		Rollback: m.Rollback,
		Verify:   m.Verify,
	}
	return s
}

// NormalizeIdentifier upper-cases an identifier unless it is double-quoted.
func NormalizeIdentifier(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		return name
	}
	return strings.ToUpper(name)
}

// Kind reports which variant the script is.
func (s *Script) Kind() ScriptKind {
	if s.Migration != nil {
		return KindMigration
	}
	return KindState
}

// IsMigration is shorthand for Kind() == KindMigration.
func (s *Script) IsMigration() bool {
	return s.Migration != nil
}

// FullObjectName returns DATABASE.SCHEMA.NAME.
func (s *Script) FullObjectName() string {
	return s.Database + "." + s.Schema + "." + s.ObjectName
}

// ObjectID identifies the object regardless of version.
func (s *Script) ObjectID() string {
	return string(s.ObjectType) + "/" + s.FullObjectName()
}

// ID identifies the script. Each migration version has its own ID.
func (s *Script) ID() string {
	if s.Migration != nil {
		return fmt.Sprintf("%s:%d", s.ObjectID(), s.Migration.Version)
	}
	return s.ObjectID()
}

// Version returns the migration version, or -1 for state scripts.
func (s *Script) Version() int64 {
	if s.Migration == nil {
		return -1
	}
	return s.Migration.Version
}

// Hash returns the hex SHA-256 of the content, computed on first use and cached.
func (s *Script) Hash() string {
	if s.hash == "" {
		s.hash = checksum.New().CalculateRaw([]byte(s.Content))
	}
	return s.hash
}

// Clone returns a copy that shares no mutable state with s.
// The cached hash is carried over.
func (s *Script) Clone() *Script {
	c := *s
	if s.Migration != nil {
		m := *s.Migration
		c.Migration = &m
	}
	return &c
}

func (s *Script) String() string {
	return s.ID()
}
