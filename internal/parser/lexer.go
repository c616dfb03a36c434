package parser

import "strings"

type segmentKind int

const (
	segCode segmentKind = iota
	segLineComment
	segBlockComment
	segLiteral
	segQuotedIdent
	segDollarBody
)

// segment is a half-open byte range [start, end) of one lexical kind.
// Delimiters belong to the segment they open or close. A line comment stops
// before its line terminator. Unterminated segments run to the end of input.
type segment struct {
	kind  segmentKind
	start int
	end   int
}

func (s segment) isComment() bool {
	return s.kind == segLineComment || s.kind == segBlockComment
}

// lex splits src into consecutive segments covering the whole input.
func lex(src string) []segment {
	var segs []segment
	codeStart := 0
	flush := func(end int) {
		if end > codeStart {
			segs = append(segs, segment{kind: segCode, start: codeStart, end: end})
		}
	}

	i := 0
	for i < len(src) {
		ch := src[i]
		var next byte
		if i+1 < len(src) {
			next = src[i+1]
		}

		var kind segmentKind
		var end int
		switch {
		case (ch == '-' && next == '-') || (ch == '/' && next == '/'):
			kind, end = segLineComment, scanLineComment(src, i)
		case ch == '/' && next == '*':
			kind, end = segBlockComment, scanBlockComment(src, i)
		case ch == '\'':
			kind, end = segLiteral, scanLiteral(src, i)
		case ch == '"':
			kind, end = segQuotedIdent, scanQuotedIdent(src, i)
		case ch == '$' && dollarTagLen(src, i) > 0:
			kind, end = segDollarBody, scanDollarBody(src, i)
		default:
			i++
			continue
		}

		flush(i)
		segs = append(segs, segment{kind: kind, start: i, end: end})
		i = end
		codeStart = end
	}
	flush(len(src))
	return segs
}

func scanLineComment(src string, i int) int {
	for i < len(src) && src[i] != '\n' && src[i] != '\r' {
		i++
	}
	return i
}

func scanBlockComment(src string, i int) int {
	for j := i + 2; j+1 < len(src); j++ {
		if src[j] == '*' && src[j+1] == '/' {
			return j + 2
		}
	}
	return len(src)
}

// scanLiteral honours both backslash escapes and doubled quotes.
func scanLiteral(src string, i int) int {
	j := i + 1
	for j < len(src) {
		switch {
		case src[j] == '\\':
			j += 2
		case src[j] == '\'' && j+1 < len(src) && src[j+1] == '\'':
			j += 2
		case src[j] == '\'':
			return j + 1
		default:
			j++
		}
	}
	return len(src)
}

func scanQuotedIdent(src string, i int) int {
	j := i + 1
	for j < len(src) {
		if src[j] == '"' {
			if j+1 < len(src) && src[j+1] == '"' {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return len(src)
}

// dollarTagLen returns the length of the $$ or $tag$ opener at i, or 0.
// A $ that continues an identifier, a ${NAME} placeholder and a $1 parameter
// open nothing.
func dollarTagLen(src string, i int) int {
	if i > 0 && isIdentPart(src[i-1]) {
		return 0
	}
	j := i + 1
	if j < len(src) && isIdentStart(src[j]) {
		for j < len(src) && isIdentPart(src[j]) && src[j] != '$' {
			j++
		}
	}
	if j < len(src) && src[j] == '$' {
		return j + 1 - i
	}
	return 0
}

// scanDollarBody runs to the closing tag matching the opener at i.
func scanDollarBody(src string, i int) int {
	n := dollarTagLen(src, i)
	tag := src[i : i+n]
	if k := strings.Index(src[i+n:], tag); k >= 0 {
		return i + n + k + n
	}
	return len(src)
}
