package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/vvka-141/dlsync/internal/parser"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// ReadManualDependencies reads lineage_config.txt from the root. Each line is
// "<DEPENDENT> -> <DEPENDS_ON>" with full object names; blank lines and lines
// starting with # are ignored. A missing file yields no dependencies.
func (s *Source) ReadManualDependencies(ctx context.Context, scripts []*dlsync.Script) ([]dlsync.ScriptDependency, error) {
	f, err := s.fsys.Open(dlsync.LineageFileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", dlsync.LineageFileName, err)
	}
	defer f.Close()

	byName := make(map[string]*dlsync.Script, len(scripts))
	for _, script := range scripts {
		name := strings.ToUpper(script.FullObjectName())
		if _, ok := byName[name]; !ok {
			byName[name] = script
		}
	}

	var deps []dlsync.ScriptDependency
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		left, right, ok := strings.Cut(line, "->")
		if !ok {
			return nil, &parser.ParseError{
				Path:    dlsync.LineageFileName,
				Line:    lineNum,
				Message: fmt.Sprintf("invalid lineage entry %q", line),
				Hint:    "Use <DB>.<SCHEMA>.<DEPENDENT> -> <DB>.<SCHEMA>.<DEPENDS_ON>",
			}
		}

		dependent, dependsOn := byName[normalizeName(left)], byName[normalizeName(right)]
		if dependent == nil || dependsOn == nil {
			missing := strings.TrimSpace(left)
			if dependent != nil {
				missing = strings.TrimSpace(right)
			}
			return nil, &parser.ParseError{
				Path:    dlsync.LineageFileName,
				Line:    lineNum,
				Message: fmt.Sprintf("unknown object %s", missing),
			}
		}
		deps = append(deps, dlsync.ScriptDependency{Dependent: dependent, DependsOn: dependsOn})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dlsync.LineageFileName, err)
	}
	return deps, nil
}

func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
