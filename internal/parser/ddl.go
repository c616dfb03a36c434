package parser

import (
	"regexp"
	"strings"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

var createPattern = regexp.MustCompile(`(?is)^\s*create\s+(?:or\s+replace\s+)?` +
	`(?:(?:secure|temporary|temp|transient|hybrid|dynamic|volatile|local|global|external|materialized|recursive|iceberg|event|unlogged)\s+)*` +
	`(schema|view|table|function|procedure|stream|sequence|stage|task|streamlit|pipe|file\s+format)\s+` +
	`(?:if\s+not\s+exists\s+)?`)

// ParseDDLScripts turns a batch of DDL statements, as read back from a live
// schema, into scripts for database and schema.
//
// Statements are split on semicolons outside literals, comments, quoted
// identifiers and $$ bodies, and keep their terminating semicolon. Each CREATE of
// a supported object type opens a script; tables and other migration types become
// version 0 migrations. CREATE SCHEMA is skipped. Any other statement is appended
// to the object defined before it, and dropped if there is none.
func ParseDDLScripts(text, database, schema string) ([]*dlsync.Script, error) {
	type pending struct {
		objectType dlsync.ObjectType
		name       string
		parts      []string
	}

	var objects []*pending
	for _, stmt := range SplitStatements(text) {
		objectType, name, ok := classifyCreate(stmt)
		switch {
		case ok:
			objects = append(objects, &pending{objectType: objectType, name: name, parts: []string{stmt}})
		case isCreateSchema(stmt):
		case len(objects) > 0:
			last := objects[len(objects)-1]
			last.parts = append(last.parts, stmt)
		}
	}

	scripts := make([]*dlsync.Script, 0, len(objects))
	for _, o := range objects {
		content := strings.Join(o.parts, "\n")
		if o.objectType.IsMigration() {
			scripts = append(scripts, dlsync.NewMigrationScript(database, schema, o.objectType, o.name, dlsync.Migration{
				Version: 0,
				Content: content,
			}))
			continue
		}
		scripts = append(scripts, dlsync.NewStateScript(database, schema, o.objectType, o.name, content))
	}
	return scripts, nil
}

// SplitStatements splits text on semicolons that are plain code. Statements are
// trimmed, keep their semicolon, and blank or comment-only statements are dropped.
func SplitStatements(text string) []string {
	var out []string
	start := 0
	emit := func(end int) {
		stmt := strings.TrimSpace(text[start:end])
		if code := strings.TrimSpace(RemoveSQLComments(stmt)); code != "" && code != ";" {
			out = append(out, stmt)
		}
		start = end
	}

	for _, seg := range lex(text) {
		if seg.kind != segCode {
			continue
		}
		for i := seg.start; i < seg.end; i++ {
			if text[i] == ';' {
				emit(i + 1)
			}
		}
	}
	emit(len(text))
	return out
}

// classifyCreate recognises CREATE statements for supported object types and
// returns the object's simple name as written, quotes included.
func classifyCreate(stmt string) (dlsync.ObjectType, string, bool) {
	code := RemoveSQLComments(stmt)
	match := createPattern.FindStringSubmatchIndex(code)
	if match == nil {
		return "", "", false
	}

	objectType, ok := dlsync.ObjectTypeForKeyword(code[match[2]:match[3]])
	if !ok {
		return "", "", false
	}

	parts, _ := readChain(code, match[1])
	if len(parts) == 0 {
		return "", "", false
	}
	return objectType, parts[len(parts)-1].raw, true
}

func isCreateSchema(stmt string) bool {
	match := createPattern.FindStringSubmatch(RemoveSQLComments(stmt))
	return match != nil && strings.EqualFold(match[1], "schema")
}
