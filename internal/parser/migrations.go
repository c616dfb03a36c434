package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

type directiveKind int

const (
	directiveVersion directiveKind = iota
	directiveRollback
	directiveVerify
)

var directiveNames = map[string]directiveKind{
	"version":  directiveVersion,
	"rollback": directiveRollback,
	"verify":   directiveVerify,
}

// directive is a ---keyword: line found outside literals and block comments.
type directive struct {
	kind      directiveKind
	value     string
	lineStart int
	line      int
}

const versionDirectiveHint = "Use ---version:<number>[, author:<name>] on its own line."

// ParseMigrationScripts splits migration file text into versioned blocks.
//
// A block starts at each ---version directive and runs to the next one. The
// line terminator before a directive belongs to the following block, text before
// the first directive belongs to the first block, and the last block loses its
// trailing line terminators. ---rollback and ---verify attach to the enclosing
// block. Blocks are returned in file order.
func ParseMigrationScripts(text string) ([]dlsync.Migration, error) {
	directives, err := findDirectives(text)
	if err != nil {
		return nil, err
	}

	var migrations []dlsync.Migration
	var starts []int
	seen := make(map[int64]int)
	for _, d := range directives {
		switch d.kind {
		case directiveVersion:
			m, err := parseVersionValue(d)
			if err != nil {
				return nil, err
			}
			if prev, dup := seen[m.Version]; dup {
				return nil, &ParseError{
					Line:    d.line,
					Message: fmt.Sprintf("duplicate migration version %d (first declared on line %d)", m.Version, prev),
					Hint:    "Deployed versions are immutable; add a new version instead of repeating one.",
				}
			}
			seen[m.Version] = d.line
			migrations = append(migrations, m)
			starts = append(starts, blockBoundary(text, d.lineStart))

		case directiveRollback, directiveVerify:
			if len(migrations) == 0 {
				return nil, &ParseError{
					Line:    d.line,
					Message: "rollback or verify directive before the first version",
					Hint:    versionDirectiveHint,
				}
			}
			current := &migrations[len(migrations)-1]
			target, name := &current.Rollback, "rollback"
			if d.kind == directiveVerify {
				target, name = &current.Verify, "verify"
			}
			if *target != "" {
				return nil, &ParseError{
					Line:    d.line,
					Message: fmt.Sprintf("version %d declares more than one %s directive", current.Version, name),
				}
			}
			*target = directiveStatement(d.value)
		}
	}

	if len(migrations) > 0 {
		starts[0] = 0
	}
	for i := range migrations {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		content := text[starts[i]:end]
		if i == len(migrations)-1 {
			content = strings.TrimRight(content, "\r\n")
		}
		migrations[i].Content = content
	}
	return migrations, nil
}

// findDirectives returns the directive lines of text in order. A directive is a
// line whose first non-blank characters open a line comment starting with ---.
func findDirectives(text string) ([]directive, error) {
	var out []directive
	line := 1
	for _, seg := range lex(text) {
		if seg.kind != segLineComment {
			line += countNewlines(text[seg.start:seg.end])
			continue
		}

		comment := text[seg.start:seg.end]
		lineStart := lineStartOf(text, seg.start)
		if !strings.HasPrefix(comment, "---") || strings.TrimSpace(text[lineStart:seg.start]) != "" {
			continue
		}

		body := strings.TrimLeft(comment[3:], " \t")
		keyword, rest, hasColon := strings.Cut(body, ":")
		kind, known := directiveNames[strings.ToLower(strings.TrimSpace(keyword))]
		if !hasColon {
			if _, bare := directiveNames[strings.ToLower(strings.TrimSpace(body))]; bare {
				return nil, &ParseError{Line: line, Message: fmt.Sprintf("malformed directive %q", comment), Hint: versionDirectiveHint}
			}
			continue
		}
		if !known {
			continue
		}
		out = append(out, directive{kind: kind, value: rest, lineStart: lineStart, line: line})
	}
	return out, nil
}

func parseVersionValue(d directive) (dlsync.Migration, error) {
	fields := strings.Split(d.value, ",")
	version, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil || version < 0 {
		return dlsync.Migration{}, &ParseError{
			Line:    d.line,
			Message: fmt.Sprintf("invalid version %q", strings.TrimSpace(fields[0])),
			Hint:    versionDirectiveHint,
		}
	}

	m := dlsync.Migration{Version: version}
	for _, field := range fields[1:] {
		if strings.TrimSpace(field) == "" {
			continue
		}
		key, value, ok := strings.Cut(field, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "author") {
			return dlsync.Migration{}, &ParseError{
				Line:    d.line,
				Message: fmt.Sprintf("unknown version attribute %q", strings.TrimSpace(field)),
				Hint:    versionDirectiveHint,
			}
		}
		m.Author = strings.TrimSpace(value)
	}
	return m, nil
}

// directiveStatement trims a rollback or verify value. A declared but blank
// statement is kept as a single space so it stays distinguishable from absence.
func directiveStatement(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return " "
	}
	return trimmed
}

// blockBoundary returns the offset where the block of a directive at lineStart
// begins: the line terminator before it, if any.
func blockBoundary(text string, lineStart int) int {
	b := lineStart
	if b > 0 && text[b-1] == '\n' {
		b--
	}
	if b > 0 && text[b-1] == '\r' {
		b--
	}
	return b
}

func lineStartOf(text string, pos int) int {
	return strings.LastIndexAny(text[:pos], "\r\n") + 1
}

func countNewlines(s string) int {
	return strings.Count(s, "\n")
}
