package fixtures

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"testing/fstest"
)

// TreeBuilder provides a fluent API for building in-memory script trees laid
// out as DB/SCHEMA/TYPE/NAME.SQL.
//
// Example usage:
//
//	tree := NewTreeBuilder().
//	    Schema("${DB}", "MAIN", func(s *SchemaBuilder) {
//	        s.Migration("TABLES", "ORDERS", "---version:0\nCREATE TABLE ${DB}.MAIN.ORDERS (id int);")
//	        s.State("VIEWS", "ORDERS_V", "CREATE VIEW ${DB}.MAIN.ORDERS_V AS SELECT * FROM ORDERS;")
//	    }).
//	    Params("dev", "DB=ANALYTICS_DEV").
//	    Build()
type TreeBuilder struct {
	files map[string]string
}

func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{files: make(map[string]string)}
}

// File adds an arbitrary file at the slash-separated path.
func (b *TreeBuilder) File(name, content string) *TreeBuilder {
	b.files[name] = content
	return b
}

// Schema adds scripts under database/schema.
func (b *TreeBuilder) Schema(database, schema string, build func(*SchemaBuilder)) *TreeBuilder {
	build(&SchemaBuilder{dir: path.Join(database, schema), files: b.files})
	return b
}

// Config adds config.yaml.
func (b *TreeBuilder) Config(yaml string) *TreeBuilder {
	return b.File("config.yaml", yaml)
}

// Params adds parameter-<profile>.properties with one KEY=VALUE per line.
func (b *TreeBuilder) Params(profile string, lines ...string) *TreeBuilder {
	return b.File(fmt.Sprintf("parameter-%s.properties", profile), strings.Join(lines, "\n")+"\n")
}

// Lineage adds lineage_config.txt with one "A -> B" edge per line.
func (b *TreeBuilder) Lineage(lines ...string) *TreeBuilder {
	return b.File("lineage_config.txt", strings.Join(lines, "\n")+"\n")
}

// Build returns the accumulated tree.
func (b *TreeBuilder) Build() fstest.MapFS {
	fsys := make(fstest.MapFS, len(b.files))
	for name, content := range b.files {
		fsys[name] = &fstest.MapFile{Data: []byte(content), Mode: 0o644}
	}
	return fsys
}

// SchemaBuilder adds scripts to one schema directory.
type SchemaBuilder struct {
	dir   string
	files map[string]string
}

// State adds a state script file; typeDir is e.g. VIEWS or FUNCTIONS.
func (s *SchemaBuilder) State(typeDir, name, content string) *SchemaBuilder {
	s.files[path.Join(s.dir, typeDir, name+".SQL")] = content
	return s
}

// Migration adds a migration script file; content carries its ---version directives.
func (s *SchemaBuilder) Migration(typeDir, name, content string) *SchemaBuilder {
	return s.State(typeDir, name, content)
}

// ============================================================================
// Pre-built Fixtures
// ============================================================================

// OrdersProject is a small tree with a two-version table, a view reading it and a
// function reading the view, all addressed through the ${DB} parameter.
func OrdersProject() fstest.MapFS {
	return NewTreeBuilder().
		Schema("${DB}", "MAIN", func(s *SchemaBuilder) {
			s.Migration("TABLES", "ORDERS",
				"---version:0, author:ana\n"+
					"CREATE TABLE ${DB}.MAIN.ORDERS (id int, amount numeric);\n"+
					"---rollback: DROP TABLE ${DB}.MAIN.ORDERS;\n"+
					"---version:1, author:ana\n"+
					"ALTER TABLE ${DB}.MAIN.ORDERS ADD COLUMN note text;\n"+
					"---rollback: ALTER TABLE ${DB}.MAIN.ORDERS DROP COLUMN note;\n"+
					"---verify: SELECT note FROM ${DB}.MAIN.ORDERS LIMIT 1;\n")
			s.State("VIEWS", "ORDERS_V",
				"CREATE OR REPLACE VIEW ${DB}.MAIN.ORDERS_V AS SELECT id, amount FROM MAIN.ORDERS;")
			s.State("FUNCTIONS", "ORDER_TOTAL",
				"CREATE OR REPLACE FUNCTION ${DB}.MAIN.ORDER_TOTAL() RETURNS numeric\n"+
					"LANGUAGE sql AS 'SELECT sum(amount) FROM ORDERS_V';")
		}).
		Params("dev", "DB=ANALYTICS_DEV").
		Build()
}

// EmptyProject has no scripts.
func EmptyProject() fstest.MapFS {
	return NewTreeBuilder().Build()
}

// Paths lists the files of fsys in lexical order.
func Paths(fsys fs.FS) ([]string, error) {
	var out []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			out = append(out, p)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}
