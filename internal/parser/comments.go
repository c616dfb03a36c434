package parser

import "strings"

// RemoveSQLComments removes --, // and /* */ comments. Line terminators after a
// line comment are kept. Comment markers inside literals, quoted identifiers and
// $$ bodies are not comments.
func RemoveSQLComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	for _, seg := range lex(sql) {
		if seg.isComment() {
			continue
		}
		b.WriteString(sql[seg.start:seg.end])
	}
	return b.String()
}

// CanonicalLayout folds whitespace in plain code: a run holding a line break
// becomes one "\n", any other run one space. Comments, directives, literals,
// quoted identifiers and $$ bodies are kept byte for byte, so two texts with
// the same canonical layout differ only in formatting.
func CanonicalLayout(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	for _, seg := range lex(sql) {
		text := sql[seg.start:seg.end]
		if seg.kind != segCode {
			b.WriteString(text)
			continue
		}
		for i := 0; i < len(text); {
			if !isLayoutSpace(text[i]) {
				b.WriteByte(text[i])
				i++
				continue
			}
			sep := byte(' ')
			for ; i < len(text) && isLayoutSpace(text[i]); i++ {
				if text[i] == '\n' || text[i] == '\r' {
					sep = '\n'
				}
			}
			b.WriteByte(sep)
		}
	}
	return strings.TrimSpace(b.String())
}

func isLayoutSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
