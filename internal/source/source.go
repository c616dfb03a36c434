package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vvka-141/dlsync/internal/checksum"
	"github.com/vvka-141/dlsync/internal/parser"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// Source is a script tree backed by a file system.
// Source is safe for concurrent use as long as the file system is.
type Source struct {
	fsys        fs.FS
	root        string
	logger      dlsync.Logger
	calculator  checksum.Calculator
	parallelism int
}

var _ dlsync.ScriptSource = (*Source)(nil)

// New creates a source rooted at a directory on disk.
// Panics if logger is nil.
func New(root string, logger dlsync.Logger) *Source {
	s := NewFS(os.DirFS(root), logger)
	s.root = root
	return s
}

// NewFS creates a read-only source over fsys. WriteScripts fails on it.
// Panics if logger is nil.
func NewFS(fsys fs.FS, logger dlsync.Logger) *Source {
	if fsys == nil {
		panic("fsys cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Source{
		fsys:        fsys,
		logger:      logger,
		calculator:  checksum.New(),
		parallelism: runtime.GOMAXPROCS(0),
	}
}

// WithParallelism bounds the number of files parsed at once. n < 1 is ignored.
func (s *Source) WithParallelism(n int) *Source {
	if n >= 1 {
		s.parallelism = n
	}
	return s
}

type scriptFile struct {
	path    string
	typeDir string
}

// ListScripts parses every script file in the tree.
func (s *Source) ListScripts(ctx context.Context) ([]*dlsync.Script, error) {
	files, err := s.scriptFiles()
	if err != nil {
		return nil, err
	}

	results := make([][]*dlsync.Script, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := fs.ReadFile(s.fsys, f.path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", f.path, err)
			}
			scripts, err := parser.ParseScript(f.path, path.Base(f.path), f.typeDir, string(content))
			if err != nil {
				return err
			}
			results[i] = scripts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*dlsync.Script
	seen := make(map[string]string)
	for i, scripts := range results {
		for _, script := range scripts {
			if other, dup := seen[script.ID()]; dup {
				return nil, &parser.ParseError{
					Path:    files[i].path,
					Message: fmt.Sprintf("duplicate script %s, also defined in %s", script.ID(), other),
				}
			}
			seen[script.ID()] = files[i].path
			all = append(all, script)
		}
	}
	s.logger.Verbose("Read %d scripts from %d files", len(all), len(files))
	return all, nil
}

// scriptFiles lists DB/SCHEMA/TYPE/FILE paths in lexical order.
func (s *Source) scriptFiles() ([]scriptFile, error) {
	var files []scriptFile
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		depth := strings.Count(p, "/") + 1
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || depth > 3 {
				return fs.SkipDir
			}
			return nil
		}
		switch {
		case depth == 1:
			return nil
		case depth < 4:
			s.logger.Info("Skipping %s: script files belong in <DB>/<SCHEMA>/<TYPE>/", p)
			return nil
		case !strings.EqualFold(path.Ext(p), dlsync.ScriptExtension):
			s.logger.Info("Skipping %s: not a %s file", p, dlsync.ScriptExtension)
			return nil
		}
		files = append(files, scriptFile{path: p, typeDir: path.Base(path.Dir(p))})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk script tree: %w", err)
	}
	return files, nil
}

// WriteScripts writes scripts to <root>/<DB>/<SCHEMA>/<TYPE>/<NAME>.SQL.
// Versions of one migration object are rendered into one file in version
// order. A file whose normalized content already matches is left untouched.
func (s *Source) WriteScripts(ctx context.Context, scripts []*dlsync.Script) error {
	if s.root == "" {
		return errors.New("script source is read-only")
	}

	var order []string
	groups := make(map[string][]*dlsync.Script)
	for _, script := range scripts {
		if _, ok := groups[script.ObjectID()]; !ok {
			order = append(order, script.ObjectID())
		}
		groups[script.ObjectID()] = append(groups[script.ObjectID()], script)
	}

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		group := groups[id]
		if err := s.writeFile(ScriptPath(group[0]), Render(group)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) writeFile(rel, content string) error {
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	existing, err := os.ReadFile(full)
	if err == nil && s.layoutHash(string(existing)) == s.layoutHash(content) {
		s.logger.Verbose("Unchanged %s", rel)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	s.logger.Verbose("Wrote %s", rel)
	return nil
}

// layoutHash identifies content up to whitespace layout in plain code.
func (s *Source) layoutHash(content string) string {
	return s.calculator.CalculateRaw([]byte(parser.CanonicalLayout(content)))
}

// ScriptPath returns the slash-separated path of a script relative to the root.
func ScriptPath(script *dlsync.Script) string {
	return path.Join(script.Database, script.Schema, string(script.ObjectType), script.ObjectName+".SQL")
}

// Render produces file content for the scripts of one object. State objects
// render their content as is; migrations render each version with its
// directives, in version order.
func Render(group []*dlsync.Script) string {
	if len(group) == 1 && !group[0].IsMigration() {
		return group[0].Content
	}

	sorted := append([]*dlsync.Script(nil), group...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Version() < sorted[j].Version() })

	blocks := make([]string, 0, len(sorted))
	for _, script := range sorted {
		blocks = append(blocks, renderMigration(script))
	}
	return strings.Join(blocks, "\n")
}

// renderMigration returns the block for one version. Content parsed from a
// script file already carries its directives and is kept verbatim.
func renderMigration(script *dlsync.Script) string {
	m := script.Migration
	if m == nil {
		m = &dlsync.MigrationInfo{}
	}
	content := strings.Trim(script.Content, "\r\n")
	if parsed, err := parser.ParseMigrationScripts(content); err == nil && len(parsed) == 1 && parsed[0].Version == m.Version {
		return content
	}

	var b strings.Builder
	fmt.Fprintf(&b, "---version: %d", m.Version)
	if m.Author != "" {
		fmt.Fprintf(&b, ", author: %s", m.Author)
	}
	b.WriteString("\n")
	b.WriteString(content)
	if m.HasRollback() {
		b.WriteString("\n---rollback:" + directiveText(m.Rollback))
	}
	if m.HasVerify() {
		b.WriteString("\n---verify:" + directiveText(m.Verify))
	}
	return b.String()
}

// directiveText flattens a statement onto the directive line.
func directiveText(stmt string) string {
	stmt = strings.Join(strings.Fields(stmt), " ")
	if stmt == "" {
		return ""
	}
	return " " + stmt
}
