package parser

import "strings"

// RemoveSQLStringLiterals empties every single-quoted literal, so 'abc' becomes ''.
//
// A literal that directly follows AS in a statement that declared LANGUAGE is a
// routine body and is kept verbatim, as are $$ bodies. Comments are copied
// through unchanged.
func RemoveSQLStringLiterals(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	var ctx statementContext
	for _, seg := range lex(sql) {
		text := sql[seg.start:seg.end]
		switch seg.kind {
		case segCode:
			ctx.observe(text)
			b.WriteString(text)
		case segLiteral:
			if ctx.expectsBody() {
				b.WriteString(text)
			} else {
				b.WriteString("''")
			}
			ctx.lastWord = ""
		case segQuotedIdent, segDollarBody:
			ctx.lastWord = ""
			b.WriteString(text)
		default:
			b.WriteString(text)
		}
	}
	return b.String()
}

// statementContext tracks just enough of the current statement to recognise
// routine bodies: whether LANGUAGE was seen and which word came last.
type statementContext struct {
	sawLanguage bool
	lastWord    string
}

func (c *statementContext) expectsBody() bool {
	return c.sawLanguage && c.lastWord == "AS"
}

func (c *statementContext) observe(code string) {
	i := 0
	for i < len(code) {
		ch := code[i]
		switch {
		case isIdentStart(ch):
			j := i + 1
			for j < len(code) && isIdentPart(code[j]) {
				j++
			}
			word := strings.ToUpper(code[i:j])
			if word == "LANGUAGE" {
				c.sawLanguage = true
			}
			c.lastWord = word
			i = j
		case ch == ';':
			*c = statementContext{}
			i++
		case isSpace(ch):
			i++
		default:
			c.lastWord = ""
			i++
		}
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}
