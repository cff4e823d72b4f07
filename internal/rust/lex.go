package rust

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokLifetime
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	// byte offsets into the source, end exclusive
	off, end int
	// 1-indexed line, 0-indexed column of the first byte
	line, col int
	// position just past the last byte
	endLine, endCol int
}

func (t token) span() Span {
	return Span{StartLine: t.line, StartCol: t.col, EndLine: t.endLine, EndCol: t.endCol}
}

func (t token) is(text string) bool { return t.kind == tokPunct && t.text == text }

func (t token) isIdent(text string) bool { return t.kind == tokIdent && t.text == text }

// lexer tokenizes Rust source, skipping comments and whitespace while
// tracking line/column positions for spans.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer { return &lexer{src: src, line: 1} }

// twoBytePuncts are the multi-byte operators the parser cares about. Longer
// sequences (::<, ..=) degrade to these plus a following token, which is fine
// for the syntax subset we model.
var twoBytePuncts = []string{
	"::", "->", "=>", "==", "!=", "<=", ">=", "&&", "||", "..",
	"+=", "-=", "*=", "/=", "%=",
}

func (l *lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if l.src[l.pos+i] == '\n' {
			l.line++
			l.col = 0
		} else {
			l.col++
		}
	}
	l.pos += n
}

func (l *lexer) skipTrivia() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance(1)
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance(1)
			}
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*':
			depth := 0
			for l.pos < len(l.src) {
				if strings.HasPrefix(l.src[l.pos:], "/*") {
					depth++
					l.advance(2)
				} else if strings.HasPrefix(l.src[l.pos:], "*/") {
					depth--
					l.advance(2)
					if depth == 0 {
						break
					}
				} else {
					l.advance(1)
				}
			}
		default:
			return
		}
	}
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentCont(r rune) bool  { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

func (l *lexer) next() token {
	l.skipTrivia()
	start := token{off: l.pos, line: l.line, col: l.col}
	if l.pos >= len(l.src) {
		start.kind = tokEOF
		start.end = l.pos
		start.endLine, start.endCol = l.line, l.col
		return start
	}
	c, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	switch {
	case isIdentStart(c):
		for l.pos < len(l.src) {
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if !isIdentCont(r) {
				break
			}
			l.advance(size)
		}
		start.kind = tokIdent
	case unicode.IsDigit(c):
		kind := tokInt
		for l.pos < len(l.src) {
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if r == '.' && l.pos+size < len(l.src) && unicode.IsDigit(rune(l.src[l.pos+size])) && kind == tokInt {
				kind = tokFloat
				l.advance(size)
				continue
			}
			if !isIdentCont(r) && r != '_' {
				break
			}
			l.advance(size)
		}
		start.kind = kind
	case c == '"':
		l.advance(1)
		for l.pos < len(l.src) {
			if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
				l.advance(2)
				continue
			}
			if l.src[l.pos] == '"' {
				l.advance(1)
				break
			}
			l.advance(1)
		}
		start.kind = tokString
	case c == '\'':
		// lifetime ('info) or char literal ('a', '\n')
		l.advance(1)
		j := l.pos
		for j < len(l.src) {
			r, size := utf8.DecodeRuneInString(l.src[j:])
			if !isIdentCont(r) {
				break
			}
			j += size
		}
		if j < len(l.src) && l.src[j] == '\'' && j > l.pos {
			// char literal like 'a'
			l.advance(j - l.pos + 1)
			start.kind = tokString
		} else if l.pos < len(l.src) && l.src[l.pos] == '\\' {
			// escaped char literal
			l.advance(2)
			if l.pos < len(l.src) && l.src[l.pos] == '\'' {
				l.advance(1)
			}
			start.kind = tokString
		} else {
			l.advance(j - l.pos)
			start.kind = tokLifetime
		}
	default:
		matched := false
		for _, p := range twoBytePuncts {
			if strings.HasPrefix(l.src[l.pos:], p) {
				l.advance(len(p))
				matched = true
				break
			}
		}
		if !matched {
			l.advance(utf8.RuneLen(c))
		}
		start.kind = tokPunct
	}
	start.end = l.pos
	start.endLine, start.endCol = l.line, l.col
	start.text = l.src[start.off:start.end]
	return start
}

// lexAll tokenizes the whole source up front; the parser indexes into the
// resulting slice so it can backtrack cheaply.
func lexAll(src string) []token {
	lx := newLexer(src)
	var out []token
	for {
		t := lx.next()
		out = append(out, t)
		if t.kind == tokEOF {
			return out
		}
	}
}
