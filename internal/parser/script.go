package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// ParseScript parses one script file.
//
// The object name is the file name up to its first dot, upper-cased, and the
// object type comes from typeDir. The content must reference the object by
// name; database and schema are taken from that reference, falling back to the
// DB/SCHEMA/TYPE/FILE layout of path. State types yield one script, migration
// types one script per version block.
func ParseScript(path, fileName, typeDir, content string) ([]*dlsync.Script, error) {
	objectType, err := dlsync.ParseObjectType(typeDir)
	if err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Hint: "Script files live under <DB>/<SCHEMA>/<TYPE>/, e.g. VIEWS or TABLES."}
	}

	objectName := strings.ToUpper(fileName)
	if dot := strings.IndexByte(objectName, '.'); dot >= 0 {
		objectName = objectName[:dot]
	}

	parts := firstChain(objectName, StripSQL(content))
	if parts == nil {
		return nil, &ParseError{
			Path:    path,
			Message: "object name and file name must match",
			Hint:    fmt.Sprintf("The script should define %s, e.g. CREATE ... <DB>.<SCHEMA>.%s.", objectName, objectName),
		}
	}

	database, schema := pathQualifiers(path)
	switch len(parts) {
	case 3:
		database, schema = parts[0].text, parts[1].text
	case 2:
		schema = parts[0].text
	}
	if database == "" || schema == "" {
		return nil, &ParseError{
			Path:    path,
			Message: fmt.Sprintf("cannot determine database and schema of %s", objectName),
			Hint:    "Qualify the object name as <DB>.<SCHEMA>.<NAME> or keep the file under <DB>/<SCHEMA>/<TYPE>/.",
		}
	}

	if !objectType.IsMigration() {
		return []*dlsync.Script{dlsync.NewStateScript(database, schema, objectType, objectName, content)}, nil
	}

	migrations, err := ParseMigrationScripts(content)
	if err != nil {
		return nil, withPath(err, path)
	}
	if len(migrations) == 0 {
		return nil, &ParseError{
			Path:    path,
			Message: fmt.Sprintf("%s scripts must declare at least one version", strings.ToLower(string(objectType))),
			Hint:    versionDirectiveHint,
		}
	}

	scripts := make([]*dlsync.Script, 0, len(migrations))
	for _, m := range migrations {
		scripts = append(scripts, dlsync.NewMigrationScript(database, schema, objectType, objectName, m))
	}
	return scripts, nil
}

// pathQualifiers reads DB and SCHEMA from a .../DB/SCHEMA/TYPE/FILE path.
func pathQualifiers(path string) (string, string) {
	dirs := strings.Split(filepath.ToSlash(filepath.Dir(path)), "/")
	if len(dirs) < 3 {
		return "", ""
	}
	return dirs[len(dirs)-3], dirs[len(dirs)-2]
}

func withPath(err error, path string) error {
	if pe, ok := err.(*ParseError); ok && pe.Path == "" {
		copied := *pe
		copied.Path = path
		return &copied
	}
	return err
}
