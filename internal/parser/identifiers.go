package parser

import (
	"sort"
	"strings"
)

// identPart is one segment of a dotted identifier chain.
// raw is the source text; text has the double quotes removed and "" unescaped.
type identPart struct {
	raw  string
	text string
}

// StripSQL removes comments and empties string literals, leaving the text that
// dependency detection scans.
func StripSQL(sql string) string {
	return RemoveSQLStringLiterals(RemoveSQLComments(sql))
}

// GetFullIdentifiers returns every distinct qualified form (name, schema.name or
// db.schema.name) under which simpleName is referenced in text, ignoring case.
// Comments and literals are stripped first. Quoted segments are returned without
// their quotes. The result is sorted.
func GetFullIdentifiers(simpleName, text string) []string {
	return FindFullIdentifiers(simpleName, StripSQL(text))
}

// FindFullIdentifiers is GetFullIdentifiers for text that was already passed
// through StripSQL.
func FindFullIdentifiers(simpleName, stripped string) []string {
	seen := make(map[string]struct{})
	var out []string
	forEachChain(stripped, func(parts []identPart) bool {
		if !matchesName(parts, simpleName) {
			return true
		}
		full := joinParts(parts)
		if _, ok := seen[full]; !ok {
			seen[full] = struct{}{}
			out = append(out, full)
		}
		return true
	})
	sort.Strings(out)
	return out
}

// GetFirstFullIdentifier returns the first qualified reference to simpleName in
// source order, or "" when there is none.
func GetFirstFullIdentifier(simpleName, text string) string {
	parts := firstChain(simpleName, StripSQL(text))
	if parts == nil {
		return ""
	}
	return joinParts(parts)
}

// SplitIdentifier splits a dotted identifier produced by GetFullIdentifiers.
func SplitIdentifier(identifier string) []string {
	return strings.Split(identifier, ".")
}

func firstChain(simpleName, stripped string) []identPart {
	var found []identPart
	forEachChain(stripped, func(parts []identPart) bool {
		if matchesName(parts, simpleName) {
			found = parts
			return false
		}
		return true
	})
	return found
}

func matchesName(parts []identPart, simpleName string) bool {
	name := strings.Trim(simpleName, `"`)
	return strings.EqualFold(parts[len(parts)-1].text, name)
}

func joinParts(parts []identPart) string {
	texts := make([]string, len(parts))
	for i, p := range parts {
		texts[i] = p.text
	}
	return strings.Join(texts, ".")
}

// forEachChain calls fn for every identifier chain in text, keeping at most the
// last three segments of longer chains. fn returns false to stop.
func forEachChain(text string, fn func([]identPart) bool) {
	i := 0
	for i < len(text) {
		ch := text[i]
		switch {
		case isDigit(ch):
			for i < len(text) && isIdentPart(text[i]) {
				i++
			}
		case isSegmentStart(text, i):
			parts, end := readChain(text, i)
			if end == i {
				i++
				continue
			}
			i = end
			if len(parts) > 3 {
				parts = parts[len(parts)-3:]
			}
			if len(parts) > 0 && !fn(parts) {
				return
			}
		default:
			i++
		}
	}
}

// readChain reads segment ('.' segment)* starting at i.
func readChain(text string, i int) ([]identPart, int) {
	var parts []identPart
	for {
		part, end, ok := readSegment(text, i)
		if !ok {
			return parts, i
		}
		parts = append(parts, part)
		i = end
		if i+1 < len(text) && text[i] == '.' && isSegmentStart(text, i+1) {
			i++
			continue
		}
		return parts, i
	}
}

// readSegment reads a bare identifier, a double-quoted identifier or a run of
// identifier characters mixed with ${NAME} placeholders.
func readSegment(text string, i int) (identPart, int, bool) {
	if i >= len(text) {
		return identPart{}, i, false
	}

	if text[i] == '"' {
		end := scanQuotedIdent(text, i)
		raw := text[i:end]
		inner := strings.TrimPrefix(raw, `"`)
		inner = strings.TrimSuffix(inner, `"`)
		return identPart{raw: raw, text: strings.ReplaceAll(inner, `""`, `"`)}, end, true
	}

	j := i
	for j < len(text) {
		switch {
		case isPlaceholderStart(text, j):
			closing := strings.IndexByte(text[j:], '}')
			if closing < 0 {
				return segmentResult(text, i, j)
			}
			j += closing + 1
		case isIdentPart(text[j]):
			j++
		default:
			return segmentResult(text, i, j)
		}
	}
	return segmentResult(text, i, j)
}

func segmentResult(text string, start, end int) (identPart, int, bool) {
	if end == start {
		return identPart{}, start, false
	}
	raw := text[start:end]
	return identPart{raw: raw, text: raw}, end, true
}

func isSegmentStart(text string, i int) bool {
	ch := text[i]
	return isIdentStart(ch) || ch == '"' || isPlaceholderStart(text, i)
}

func isPlaceholderStart(text string, i int) bool {
	return text[i] == '$' && i+1 < len(text) && text[i+1] == '{'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '$'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// ExtractIdentifiers returns every distinct identifier chain in text that was
// already passed through StripSQL, in first-seen order. Quoted segments are
// returned without their quotes.
func ExtractIdentifiers(stripped string) []string {
	seen := make(map[string]struct{})
	var out []string
	forEachChain(stripped, func(parts []identPart) bool {
		full := joinParts(parts)
		if _, ok := seen[full]; !ok {
			seen[full] = struct{}{}
			out = append(out, full)
		}
		return true
	})
	return out
}
