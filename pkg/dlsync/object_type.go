package dlsync

import (
	"fmt"
	"strings"
)

// ObjectType is the kind of database object a script defines.
// Its value doubles as the type directory name in the script tree.
type ObjectType string

const (
	ObjectViews       ObjectType = "VIEWS"
	ObjectFunctions   ObjectType = "FUNCTIONS"
	ObjectProcedures  ObjectType = "PROCEDURES"
	ObjectFileFormats ObjectType = "FILE_FORMATS"
	ObjectStreamlits  ObjectType = "STREAMLITS"
	ObjectPipes       ObjectType = "PIPES"
	ObjectTables      ObjectType = "TABLES"
	ObjectStreams     ObjectType = "STREAMS"
	ObjectSequences   ObjectType = "SEQUENCES"
	ObjectStages      ObjectType = "STAGES"
	ObjectTasks       ObjectType = "TASKS"
)

// ObjectTypes lists every supported type in directory order.
var ObjectTypes = []ObjectType{
	ObjectViews, ObjectFunctions, ObjectProcedures, ObjectFileFormats, ObjectStreamlits, ObjectPipes,
	ObjectTables, ObjectStreams, ObjectSequences, ObjectStages, ObjectTasks,
}

var objectKeywords = map[ObjectType]string{
	ObjectViews:       "VIEW",
	ObjectFunctions:   "FUNCTION",
	ObjectProcedures:  "PROCEDURE",
	ObjectFileFormats: "FILE FORMAT",
	ObjectStreamlits:  "STREAMLIT",
	ObjectPipes:       "PIPE",
	ObjectTables:      "TABLE",
	ObjectStreams:     "STREAM",
	ObjectSequences:   "SEQUENCE",
	ObjectStages:      "STAGE",
	ObjectTasks:       "TASK",
}

// ParseObjectType resolves a type directory name, ignoring case.
func ParseObjectType(name string) (ObjectType, error) {
	candidate := ObjectType(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := objectKeywords[candidate]; ok {
		return candidate, nil
	}
	return "", fmt.Errorf("unknown object type %q", name)
}

// ObjectTypeForKeyword resolves the DDL keyword of a CREATE statement, such as
// "VIEW" or "FILE FORMAT". Internal whitespace is collapsed before matching.
func ObjectTypeForKeyword(keyword string) (ObjectType, bool) {
	normalized := strings.ToUpper(strings.Join(strings.Fields(keyword), " "))
	for t, kw := range objectKeywords {
		if kw == normalized {
			return t, true
		}
	}
	return "", false
}

// Keyword returns the DDL keyword used in CREATE statements for this type.
func (t ObjectType) Keyword() string {
	return objectKeywords[t]
}

// IsMigration reports whether objects of this type are managed as versioned migrations.
// Objects holding data or run state cannot be recreated from a full definition.
func (t ObjectType) IsMigration() bool {
	switch t {
	case ObjectTables, ObjectStreams, ObjectSequences, ObjectStages, ObjectTasks:
		return true
	default:
		return false
	}
}
