package rust

import (
	"fmt"
	"strings"
)

// Parse parses a string of Rust source and returns the AST. The parser is
// tolerant: constructs outside the modeled subset are skipped, but structural
// breakage (unbalanced delimiters, truncated items) is reported as an error.
func Parse(src string) (*File, error) {
	p := &parser{src: src, toks: lexAll(src)}
	f := p.parseFile()
	if p.err != nil {
		return nil, p.err
	}
	return f, nil
}

type parser struct {
	src  string
	toks []token
	i    int
	err  error
}

func (p *parser) cur() token  { return p.toks[p.i] }
func (p *parser) peek() token { return p.toks[min(p.i+1, len(p.toks)-1)] }

func (p *parser) bump() token {
	t := p.toks[p.i]
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

func (p *parser) atEOF() bool { return p.cur().kind == tokEOF }

func (p *parser) fail(format string, args ...any) {
	if p.err == nil {
		t := p.cur()
		p.err = fmt.Errorf("parse error at %d:%d: %s", t.line, t.col+1, fmt.Sprintf(format, args...))
	}
}

// raw returns the source text between two byte offsets, trimmed.
func (p *parser) raw(from, to int) string {
	if from < 0 || to > len(p.src) || from > to {
		return ""
	}
	return strings.TrimSpace(p.src[from:to])
}

func spanBetween(a, b Span) Span {
	return Span{StartLine: a.StartLine, StartCol: a.StartCol, EndLine: b.EndLine, EndCol: b.EndCol}
}

func closerFor(open string) string {
	switch open {
	case "(":
		return ")"
	case "[":
		return "]"
	case "{":
		return "}"
	}
	return ""
}

// skipBalanced consumes the delimiter the parser is positioned on through its
// matching closer and returns the closing token.
func (p *parser) skipBalanced() token {
	open := p.cur().text
	close := closerFor(open)
	depth := 0
	for !p.atEOF() {
		t := p.bump()
		if t.is(open) {
			depth++
		} else if t.is(close) {
			depth--
			if depth == 0 {
				return t
			}
		}
	}
	p.fail("unexpected end of file, expected %q", close)
	return p.cur()
}

// skipAngles consumes a generic argument list starting at '<'.
func (p *parser) skipAngles() {
	depth := 0
	for !p.atEOF() {
		t := p.bump()
		switch t.text {
		case "<":
			depth++
		case ">":
			depth--
			if depth == 0 {
				return
			}
		case "(", "[", "{":
			p.i--
			p.skipBalanced()
		}
	}
	p.fail("unexpected end of file in generic arguments")
}

// collectText consumes tokens until one of the stop puncts appears at depth
// zero, returning the raw covered source text and its span. Angle brackets
// nest, so this is only safe in type position.
func (p *parser) collectText(stops ...string) (string, Span) {
	start := p.cur()
	last := start
	depth := 0
	for !p.atEOF() {
		t := p.cur()
		if depth == 0 {
			for _, s := range stops {
				if t.is(s) {
					return p.raw(start.off, last.end), spanBetween(start.span(), last.span())
				}
			}
		}
		switch t.text {
		case "(", "[", "{", "<":
			depth++
		case ")", "]", "}", ">":
			depth--
		}
		last = p.bump()
	}
	return p.raw(start.off, last.end), spanBetween(start.span(), last.span())
}

func (p *parser) parseFile() *File {
	f := &File{}
	first := p.cur()
	var last token
	for !p.atEOF() && p.err == nil {
		before := p.i
		if it := p.parseItem(); it != nil {
			f.Items = append(f.Items, it)
		}
		if p.i == before {
			// always make progress
			p.bump()
		}
		last = p.toks[max(p.i-1, 0)]
	}
	if len(f.Items) > 0 {
		f.Span = spanBetween(first.span(), last.span())
	}
	return f
}

func (p *parser) parseItem() Item {
	attrs := p.parseAttrs()
	start := p.cur()
	public := false
	if p.cur().isIdent("pub") {
		p.bump()
		if p.cur().is("(") {
			p.skipBalanced() // pub(crate), pub(super)
		}
		public = true
	}
	unsafeKw := false
	if p.cur().isIdent("unsafe") && p.peek().isIdent("fn") {
		p.bump()
		unsafeKw = true
	}
	t := p.cur()
	switch {
	case t.isIdent("fn"):
		return p.parseFn(attrs, public, unsafeKw, start)
	case t.isIdent("struct"):
		return p.parseStruct(attrs, public, start)
	case t.isIdent("enum"):
		return p.parseEnum(attrs, public, start)
	case t.isIdent("mod"):
		return p.parseMod(start)
	case t.isIdent("impl"):
		return p.parseImpl(start)
	case t.isIdent("use") || t.isIdent("const") || t.isIdent("static") || t.isIdent("type") || t.isIdent("extern"):
		p.skipToSemiOrBlock()
		return nil
	case t.isIdent("trait"):
		p.skipToBlockEnd()
		return nil
	case t.isIdent("macro_rules"):
		p.bump()
		if p.cur().is("!") {
			p.bump()
		}
		if p.cur().kind == tokIdent {
			p.bump()
		}
		if closerFor(p.cur().text) != "" {
			p.skipBalanced()
		}
		return nil
	}
	return nil
}

// skipToSemiOrBlock consumes through the terminating semicolon of a simple
// item, or through a trailing block (extern blocks, const fns we ignore).
func (p *parser) skipToSemiOrBlock() {
	for !p.atEOF() {
		t := p.cur()
		if t.is(";") {
			p.bump()
			return
		}
		if t.is("{") {
			p.skipBalanced()
			return
		}
		if closerFor(t.text) != "" {
			p.skipBalanced()
			continue
		}
		p.bump()
	}
}

// skipToBlockEnd consumes through the item's brace-delimited body.
func (p *parser) skipToBlockEnd() {
	for !p.atEOF() {
		if p.cur().is("{") {
			p.skipBalanced()
			return
		}
		if p.cur().is(";") {
			p.bump()
			return
		}
		p.bump()
	}
}

func (p *parser) parseAttrs() []Attr {
	var attrs []Attr
	for p.cur().is("#") {
		hash := p.bump()
		if p.cur().is("!") {
			// inner attribute: skip
			p.bump()
			if p.cur().is("[") {
				p.skipBalanced()
			}
			continue
		}
		if !p.cur().is("[") {
			break
		}
		p.bump()
		a := Attr{}
		if p.cur().kind == tokIdent {
			a.Path = p.bump().text
			for p.cur().is("::") && p.peek().kind == tokIdent {
				p.bump()
				a.Path = p.bump().text // keep the last path segment
			}
		}
		if p.cur().is("(") {
			open := p.cur()
			closeTok := p.skipBalanced()
			a.Tokens = p.raw(open.off+1, closeTok.off)
		} else if p.cur().is("=") {
			p.bump()
			p.collectText("]")
		}
		var closing token
		if p.cur().is("]") {
			closing = p.bump()
		} else {
			// malformed attribute: resynchronize
			_, _ = p.collectText("]")
			closing = p.bump()
		}
		a.Span = spanBetween(hash.span(), closing.span())
		attrs = append(attrs, a)
	}
	return attrs
}

func (p *parser) parseFn(attrs []Attr, public, unsafeKw bool, start token) *Function {
	p.bump() // fn
	fn := &Function{Public: public, Unsafe: unsafeKw, Attrs: attrs}
	if p.cur().kind == tokIdent {
		fn.Name = p.bump().text
	}
	if p.cur().is("<") {
		p.skipAngles()
	}
	if p.cur().is("(") {
		p.bump()
		fn.Params = p.parseParams()
	}
	if p.cur().is("->") {
		p.bump()
		fn.ReturnType, _ = p.collectText("{", ";")
		if i := strings.Index(fn.ReturnType, "where"); i >= 0 {
			fn.ReturnType = strings.TrimSpace(fn.ReturnType[:i])
		}
	} else if p.cur().isIdent("where") {
		p.collectText("{", ";")
	}
	var last token
	if p.cur().is("{") {
		fn.Body = p.parseBlock()
		last = p.toks[max(p.i-1, 0)]
	} else if p.cur().is(";") {
		last = p.bump()
	} else {
		last = p.toks[max(p.i-1, 0)]
	}
	fn.Span = spanBetween(start.span(), last.span())
	return fn
}

func (p *parser) parseParams() []Param {
	var params []Param
	for !p.atEOF() && !p.cur().is(")") {
		start := p.cur()
		// receiver forms: self, &self, &mut self, &'info self, mut self
		save := p.i
		for p.cur().is("&") || p.cur().kind == tokLifetime || p.cur().isIdent("mut") {
			p.bump()
		}
		if p.cur().isIdent("self") {
			p.bump()
			if p.cur().is(",") {
				p.bump()
			}
			continue
		}
		p.i = save
		prm := Param{}
		if p.cur().isIdent("mut") {
			p.bump()
		}
		if p.cur().kind == tokIdent {
			prm.Name = p.bump().text
		}
		if p.cur().is(":") {
			p.bump()
			var sp Span
			prm.Type, sp = p.collectText(",", ")")
			prm.Span = spanBetween(start.span(), sp)
		} else {
			// pattern parameter we do not model
			p.collectText(",", ")")
			prm.Span = start.span()
		}
		params = append(params, prm)
		if p.cur().is(",") {
			p.bump()
		}
	}
	if p.cur().is(")") {
		p.bump()
	} else {
		p.fail("unexpected end of file in parameter list")
	}
	return params
}

func (p *parser) parseStruct(attrs []Attr, public bool, start token) *Struct {
	p.bump() // struct
	st := &Struct{Public: public, Attrs: attrs}
	if p.cur().kind == tokIdent {
		st.Name = p.bump().text
	}
	if p.cur().is("<") {
		p.skipAngles()
	}
	var last token
	switch {
	case p.cur().is("{"):
		p.bump()
		for !p.atEOF() && !p.cur().is("}") {
			st.Fields = append(st.Fields, p.parseField())
			if p.cur().is(",") {
				p.bump()
			}
		}
		if p.cur().is("}") {
			last = p.bump()
		} else {
			p.fail("unexpected end of file in struct body")
			last = p.cur()
		}
	case p.cur().is("("):
		p.skipBalanced()
		if p.cur().is(";") {
			last = p.bump()
		}
	case p.cur().is(";"):
		last = p.bump()
	default:
		last = p.cur()
	}
	st.Span = spanBetween(start.span(), last.span())
	return st
}

func (p *parser) parseField() Field {
	attrs := p.parseAttrs()
	start := p.cur()
	f := Field{Attrs: attrs}
	if p.cur().isIdent("pub") {
		p.bump()
		if p.cur().is("(") {
			p.skipBalanced()
		}
		f.Public = true
	}
	if p.cur().kind == tokIdent {
		f.Name = p.bump().text
	}
	var sp Span
	if p.cur().is(":") {
		p.bump()
		f.Type, sp = p.collectText(",", "}")
	} else {
		_, sp = p.collectText(",", "}")
	}
	if len(attrs) > 0 {
		f.Span = spanBetween(attrs[0].Span, sp)
	} else {
		f.Span = spanBetween(start.span(), sp)
	}
	return f
}

func (p *parser) parseEnum(attrs []Attr, public bool, start token) *Enum {
	p.bump() // enum
	en := &Enum{Public: public, Attrs: attrs}
	if p.cur().kind == tokIdent {
		en.Name = p.bump().text
	}
	if p.cur().is("<") {
		p.skipAngles()
	}
	var last token
	if p.cur().is("{") {
		p.bump()
		for !p.atEOF() && !p.cur().is("}") {
			p.parseAttrs()
			if p.cur().kind == tokIdent {
				en.Variants = append(en.Variants, p.bump().text)
			}
			// variant payloads and discriminants
			for !p.atEOF() && !p.cur().is(",") && !p.cur().is("}") {
				if closerFor(p.cur().text) != "" {
					p.skipBalanced()
				} else {
					p.bump()
				}
			}
			if p.cur().is(",") {
				p.bump()
			}
		}
		if p.cur().is("}") {
			last = p.bump()
		} else {
			p.fail("unexpected end of file in enum body")
			last = p.cur()
		}
	} else if p.cur().is(";") {
		last = p.bump()
	}
	en.Span = spanBetween(start.span(), last.span())
	return en
}

func (p *parser) parseMod(start token) Item {
	p.bump() // mod
	m := &Mod{}
	if p.cur().kind == tokIdent {
		m.Name = p.bump().text
	}
	var last token
	if p.cur().is("{") {
		m.Inline = true
		p.bump()
		for !p.atEOF() && !p.cur().is("}") && p.err == nil {
			before := p.i
			if it := p.parseItem(); it != nil {
				m.Items = append(m.Items, it)
			}
			if p.i == before {
				p.bump()
			}
		}
		if p.cur().is("}") {
			last = p.bump()
		} else {
			p.fail("unexpected end of file in module body")
			last = p.cur()
		}
	} else if p.cur().is(";") {
		last = p.bump()
	}
	m.Span = spanBetween(start.span(), last.span())
	return m
}

func (p *parser) parseImpl(start token) Item {
	p.bump() // impl
	if p.cur().is("<") {
		p.skipAngles()
	}
	im := &Impl{}
	selfType, _ := p.collectText("{")
	if i := strings.Index(selfType, " for "); i >= 0 {
		selfType = strings.TrimSpace(selfType[i+len(" for "):])
	}
	im.SelfType = selfType
	var last token
	if p.cur().is("{") {
		p.bump()
		for !p.atEOF() && !p.cur().is("}") && p.err == nil {
			attrs := p.parseAttrs()
			fnStart := p.cur()
			public := false
			if p.cur().isIdent("pub") {
				p.bump()
				if p.cur().is("(") {
					p.skipBalanced()
				}
				public = true
			}
			unsafeKw := false
			if p.cur().isIdent("unsafe") && p.peek().isIdent("fn") {
				p.bump()
				unsafeKw = true
			}
			if p.cur().isIdent("fn") {
				im.Functions = append(im.Functions, p.parseFn(attrs, public, unsafeKw, fnStart))
				continue
			}
			// associated consts/types and anything else
			p.skipToSemiOrBlock()
		}
		if p.cur().is("}") {
			last = p.bump()
		} else {
			p.fail("unexpected end of file in impl body")
			last = p.cur()
		}
	}
	im.Span = spanBetween(start.span(), last.span())
	return im
}

func (p *parser) parseBlock() *Block {
	open := p.bump() // {
	b := &Block{}
	for !p.atEOF() && !p.cur().is("}") && p.err == nil {
		before := p.i
		b.Stmts = append(b.Stmts, p.parseStmts()...)
		if p.i == before {
			p.bump()
		}
	}
	if !p.cur().is("}") {
		p.fail("unexpected end of file, expected %q", "}")
		b.Span = spanBetween(open.span(), p.cur().span())
		return b
	}
	close := p.bump()
	b.Span = spanBetween(open.span(), close.span())
	return b
}

// parseStmts parses one syntactic statement, which may expand to several
// Stmt values (conditions and branch bodies are flattened in source order).
func (p *parser) parseStmts() []Stmt {
	t := p.cur()
	switch {
	case t.is(";"):
		p.bump()
		return nil
	case t.isIdent("let"):
		return []Stmt{p.parseLet()}
	case t.isIdent("unsafe") && p.peek().is("{"):
		start := p.bump()
		body := p.parseBlock()
		sp := spanBetween(start.span(), body.Span)
		return []Stmt{&ExprStmt{X: &UnsafeExpr{Body: body, Span: sp}, Span: sp}}
	case t.isIdent("if"):
		return p.parseIf()
	case t.isIdent("while"):
		start := p.bump()
		var out []Stmt
		cond := p.parseExprOpt(false)
		if cond != nil {
			out = append(out, &ExprStmt{X: cond, Span: cond.ExprSpan()})
		}
		if p.cur().is("{") {
			body := p.parseBlock()
			out = append(out, &ExprStmt{X: &BlockExpr{Body: body, Span: body.Span}, Span: spanBetween(start.span(), body.Span)})
		}
		return out
	case t.isIdent("for"):
		start := p.bump()
		for !p.atEOF() && !p.cur().isIdent("in") && !p.cur().is("{") {
			p.bump()
		}
		var out []Stmt
		if p.cur().isIdent("in") {
			p.bump()
			if iter := p.parseExprOpt(false); iter != nil {
				out = append(out, &ExprStmt{X: iter, Span: iter.ExprSpan()})
			}
		}
		if p.cur().is("{") {
			body := p.parseBlock()
			out = append(out, &ExprStmt{X: &BlockExpr{Body: body, Span: body.Span}, Span: spanBetween(start.span(), body.Span)})
		}
		return out
	case t.isIdent("loop"):
		start := p.bump()
		if p.cur().is("{") {
			body := p.parseBlock()
			sp := spanBetween(start.span(), body.Span)
			return []Stmt{&ExprStmt{X: &BlockExpr{Body: body, Span: sp}, Span: sp}}
		}
		return nil
	case t.isIdent("match"):
		return p.parseMatch()
	case t.isIdent("return"):
		p.bump()
		if !p.cur().is(";") && !p.cur().is("}") {
			if x := p.parseExprOpt(true); x != nil {
				if p.cur().is(";") {
					p.bump()
				}
				return []Stmt{&ExprStmt{X: x, Span: x.ExprSpan()}}
			}
		}
		if p.cur().is(";") {
			p.bump()
		}
		return nil
	case t.isIdent("break") || t.isIdent("continue"):
		for !p.atEOF() && !p.cur().is(";") && !p.cur().is("}") {
			p.bump()
		}
		if p.cur().is(";") {
			p.bump()
		}
		return nil
	case t.is("{"):
		body := p.parseBlock()
		return []Stmt{&ExprStmt{X: &BlockExpr{Body: body, Span: body.Span}, Span: body.Span}}
	}
	x := p.parseExprOpt(true)
	if x == nil {
		return nil
	}
	if p.cur().is(";") {
		p.bump()
	}
	return []Stmt{&ExprStmt{X: x, Span: x.ExprSpan()}}
}

func (p *parser) parseLet() Stmt {
	start := p.bump() // let
	st := &LetStmt{}
	if p.cur().isIdent("mut") {
		p.bump()
	}
	if p.cur().kind == tokIdent {
		st.Name = p.bump().text
		if st.Name == "_" {
			st.Name = ""
		}
	} else {
		// destructuring pattern: not modeled
		p.collectText("=", ";")
	}
	if p.cur().is(":") {
		p.bump()
		p.collectText("=", ";")
	}
	if p.cur().is("=") {
		p.bump()
		st.Init = p.parseExprOpt(true)
	}
	// let-else
	if p.cur().isIdent("else") {
		p.bump()
		if p.cur().is("{") {
			p.parseBlock()
		}
	}
	var last token
	if p.cur().is(";") {
		last = p.bump()
	} else {
		last = p.toks[max(p.i-1, 0)]
	}
	st.Span = spanBetween(start.span(), last.span())
	return st
}

func (p *parser) parseIf() []Stmt {
	start := p.bump() // if
	var out []Stmt
	if p.cur().isIdent("let") {
		// if-let: skip the pattern, keep the scrutinee
		p.collectText("=")
		if p.cur().is("=") {
			p.bump()
		}
	}
	if cond := p.parseExprOpt(false); cond != nil {
		out = append(out, &ExprStmt{X: cond, Span: cond.ExprSpan()})
	}
	if p.cur().is("{") {
		body := p.parseBlock()
		out = append(out, &ExprStmt{X: &BlockExpr{Body: body, Span: body.Span}, Span: spanBetween(start.span(), body.Span)})
	}
	if p.cur().isIdent("else") {
		p.bump()
		if p.cur().isIdent("if") {
			out = append(out, p.parseIf()...)
		} else if p.cur().is("{") {
			body := p.parseBlock()
			out = append(out, &ExprStmt{X: &BlockExpr{Body: body, Span: body.Span}, Span: body.Span})
		}
	}
	return out
}

func (p *parser) parseMatch() []Stmt {
	p.bump() // match
	var out []Stmt
	if scrut := p.parseExprOpt(false); scrut != nil {
		out = append(out, &ExprStmt{X: scrut, Span: scrut.ExprSpan()})
	}
	if !p.cur().is("{") {
		return out
	}
	p.bump()
	for !p.atEOF() && !p.cur().is("}") && p.err == nil {
		// skip the arm pattern (and guard) through =>
		depth := 0
		for !p.atEOF() {
			t := p.cur()
			if depth == 0 && t.is("=>") {
				p.bump()
				break
			}
			if depth == 0 && t.is("}") {
				break
			}
			switch t.text {
			case "(", "[", "{":
				depth++
			case ")", "]":
				depth--
			case "}":
				depth--
			}
			p.bump()
		}
		if p.cur().is("}") {
			break
		}
		if p.cur().is("{") {
			body := p.parseBlock()
			out = append(out, &ExprStmt{X: &BlockExpr{Body: body, Span: body.Span}, Span: body.Span})
		} else if x := p.parseExprOpt(true); x != nil {
			out = append(out, &ExprStmt{X: x, Span: x.ExprSpan()})
		}
		if p.cur().is(",") {
			p.bump()
		}
	}
	if p.cur().is("}") {
		p.bump()
	} else {
		p.fail("unexpected end of file in match body")
	}
	return out
}

// parseExprOpt parses an expression, returning nil when no expression starts
// at the current token. allowStruct gates `Path { .. }` struct literals so
// that if/while/match headers stop at the body brace.
func (p *parser) parseExprOpt(allowStruct bool) Expr {
	before := p.i
	x := p.parseAssign(allowStruct)
	if x == nil {
		p.i = before
	}
	return x
}

func (p *parser) parseAssign(allowStruct bool) Expr {
	left := p.parseBinary(0, allowStruct)
	if left == nil {
		return nil
	}
	t := p.cur()
	if t.is("=") || t.is("+=") || t.is("-=") || t.is("*=") || t.is("/=") || t.is("%=") {
		op := p.bump().text
		right := p.parseAssign(allowStruct)
		if right == nil {
			return left
		}
		return &BinaryExpr{Op: op, Left: left, Right: right, Span: spanBetween(left.ExprSpan(), right.ExprSpan())}
	}
	return left
}

// binary operator precedence levels, loosest first
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"==", "!=", "<", ">", "<=", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) parseBinary(level int, allowStruct bool) Expr {
	if level >= len(binaryLevels) {
		return p.parseUnary(allowStruct)
	}
	left := p.parseBinary(level+1, allowStruct)
	if left == nil {
		return nil
	}
	for {
		t := p.cur()
		matched := ""
		for _, op := range binaryLevels[level] {
			if t.is(op) {
				matched = op
				break
			}
		}
		if matched == "" {
			return left
		}
		p.bump()
		right := p.parseBinary(level+1, allowStruct)
		if right == nil {
			return left
		}
		left = &BinaryExpr{Op: matched, Left: left, Right: right, Span: spanBetween(left.ExprSpan(), right.ExprSpan())}
	}
}

func (p *parser) parseUnary(allowStruct bool) Expr {
	t := p.cur()
	if t.is("-") || t.is("!") || t.is("*") || t.is("&") {
		op := p.bump()
		if p.cur().isIdent("mut") {
			p.bump()
		}
		x := p.parseUnary(allowStruct)
		if x == nil {
			return nil
		}
		if op.is("&") {
			// references are transparent to the analyses
			return x
		}
		return &UnaryExpr{Op: op.text, X: x, Span: spanBetween(op.span(), x.ExprSpan())}
	}
	return p.parsePostfix(allowStruct)
}

func (p *parser) parsePostfix(allowStruct bool) Expr {
	x := p.parsePrimary(allowStruct)
	if x == nil {
		return nil
	}
	for {
		t := p.cur()
		switch {
		case t.is("("):
			open := p.cur()
			args := p.parseCallArgs()
			sp := spanBetween(x.ExprSpan(), p.toks[max(p.i-1, 0)].span())
			callee := ""
			if path, ok := x.(*PathExpr); ok {
				callee = path.Name
			} else {
				callee = p.raw(open.off, open.off) // non-path callee: unnamed
			}
			x = &CallExpr{Callee: callee, Args: args, Span: sp}
		case t.is("."):
			p.bump()
			if p.cur().isIdent("await") {
				nt := p.bump()
				x = &FieldExpr{X: x, Name: "await", Span: spanBetween(x.ExprSpan(), nt.span())}
				continue
			}
			if p.cur().kind == tokInt {
				nt := p.bump()
				x = &FieldExpr{X: x, Name: nt.text, Span: spanBetween(x.ExprSpan(), nt.span())}
				continue
			}
			if p.cur().kind != tokIdent {
				return x
			}
			name := p.bump()
			if p.cur().is("::") && p.peek().is("<") {
				p.bump()
				p.skipAngles()
			}
			if p.cur().is("(") {
				args := p.parseCallArgs()
				sp := spanBetween(x.ExprSpan(), p.toks[max(p.i-1, 0)].span())
				x = &MethodCallExpr{Recv: x, Method: name.text, Args: args, Span: sp}
			} else {
				x = &FieldExpr{X: x, Name: name.text, Span: spanBetween(x.ExprSpan(), name.span())}
			}
		case t.is("?"):
			p.bump()
		default:
			return x
		}
	}
}

func (p *parser) parseCallArgs() []Expr {
	p.bump() // (
	var args []Expr
	for !p.atEOF() && !p.cur().is(")") {
		x := p.parseExprOpt(true)
		if x == nil {
			// unmodeled argument syntax: skip to the next comma
			depth := 0
			for !p.atEOF() {
				t := p.cur()
				if depth == 0 && (t.is(",") || t.is(")")) {
					break
				}
				switch t.text {
				case "(", "[", "{":
					depth++
				case ")", "]", "}":
					depth--
				}
				p.bump()
			}
		} else {
			args = append(args, x)
		}
		if p.cur().is(",") {
			p.bump()
		}
	}
	if p.cur().is(")") {
		p.bump()
	} else {
		p.fail("unexpected end of file in call arguments")
	}
	return args
}

func (p *parser) parsePrimary(allowStruct bool) Expr {
	t := p.cur()
	switch {
	case t.kind == tokInt || t.kind == tokFloat:
		p.bump()
		return &LitExpr{
			Value:   strings.ReplaceAll(trimNumSuffix(t.text), "_", ""),
			IsFloat: t.kind == tokFloat,
			Span:    t.span(),
		}
	case t.kind == tokString:
		p.bump()
		return &UnknownExpr{Text: t.text, Span: t.span()}
	case t.isIdent("true") || t.isIdent("false"):
		p.bump()
		return &PathExpr{Name: t.text, Span: t.span()}
	case t.isIdent("unsafe") && p.peek().is("{"):
		start := p.bump()
		body := p.parseBlock()
		return &UnsafeExpr{Body: body, Span: spanBetween(start.span(), body.Span)}
	case t.isIdent("if"):
		stmts := p.parseIf()
		return wrapStmts(stmts, t.span())
	case t.isIdent("match"):
		stmts := p.parseMatch()
		return wrapStmts(stmts, t.span())
	case t.isIdent("loop") || t.isIdent("while") || t.isIdent("for"):
		stmts := p.parseStmts()
		return wrapStmts(stmts, t.span())
	case t.isIdent("move") || t.is("|") || t.is("||"):
		// closure: skip the parameter list, parse the body transparently
		if p.cur().isIdent("move") {
			p.bump()
		}
		if p.cur().is("||") {
			p.bump()
		} else if p.cur().is("|") {
			p.bump()
			for !p.atEOF() && !p.cur().is("|") {
				if closerFor(p.cur().text) != "" {
					p.skipBalanced()
				} else {
					p.bump()
				}
			}
			if p.cur().is("|") {
				p.bump()
			}
		}
		if p.cur().is("->") {
			p.bump()
			p.collectText("{")
		}
		if body := p.parseExprOpt(allowStruct); body != nil {
			return body
		}
		return &UnknownExpr{Text: "closure", Span: t.span()}
	case t.kind == tokIdent:
		return p.parsePathExpr(allowStruct)
	case t.is("("):
		open := p.bump()
		x := p.parseExprOpt(true)
		if p.cur().is(",") {
			// tuple: not modeled beyond the first element
			for !p.atEOF() && !p.cur().is(")") {
				if closerFor(p.cur().text) != "" {
					p.skipBalanced()
				} else {
					p.bump()
				}
			}
		}
		var close token
		if p.cur().is(")") {
			close = p.bump()
		} else {
			p.fail("unexpected end of file, expected %q", ")")
			close = p.cur()
		}
		if x == nil {
			return &UnknownExpr{Text: "()", Span: spanBetween(open.span(), close.span())}
		}
		return x
	case t.is("["):
		close := p.skipBalanced()
		return &UnknownExpr{Text: "array", Span: spanBetween(t.span(), close.span())}
	case t.is("{"):
		body := p.parseBlock()
		return &BlockExpr{Body: body, Span: body.Span}
	}
	return nil
}

func (p *parser) parsePathExpr(allowStruct bool) Expr {
	start := p.cur()
	name := p.bump().text
	last := start
	for p.cur().is("::") {
		if p.peek().is("<") {
			p.bump()
			p.skipAngles()
			continue
		}
		if p.peek().kind != tokIdent {
			break
		}
		p.bump()
		seg := p.bump()
		name += "::" + seg.text
		last = seg
	}
	if p.cur().is("!") {
		// macro invocation
		p.bump()
		if closerFor(p.cur().text) != "" {
			open := p.cur()
			closeTok := p.skipBalanced()
			return &MacroExpr{
				Name:   name,
				Tokens: p.raw(open.off+1, closeTok.off),
				Span:   spanBetween(start.span(), closeTok.span()),
			}
		}
		return &MacroExpr{Name: name, Span: spanBetween(start.span(), last.span())}
	}
	if allowStruct && p.cur().is("{") && isTypeName(name) {
		close := p.skipBalanced()
		return &UnknownExpr{Text: name + " { .. }", Span: spanBetween(start.span(), close.span())}
	}
	return &PathExpr{Name: name, Span: spanBetween(start.span(), last.span())}
}

// isTypeName reports whether a path plausibly names a type, the only case
// where `name { .. }` is treated as a struct literal.
func isTypeName(path string) bool {
	seg := path
	if i := strings.LastIndex(path, "::"); i >= 0 {
		seg = path[i+2:]
	}
	return seg != "" && seg[0] >= 'A' && seg[0] <= 'Z'
}

func trimNumSuffix(s string) string {
	for _, suf := range []string{"u8", "u16", "u32", "u64", "u128", "usize", "i8", "i16", "i32", "i64", "i128", "isize", "f32", "f64"} {
		if strings.HasSuffix(s, suf) && len(s) > len(suf) {
			return s[:len(s)-len(suf)]
		}
	}
	return s
}

func wrapStmts(stmts []Stmt, start Span) Expr {
	b := &Block{Stmts: stmts, Span: start}
	if len(stmts) > 0 {
		if es, ok := stmts[len(stmts)-1].(*ExprStmt); ok {
			b.Span = spanBetween(start, es.Span)
		}
	}
	return &BlockExpr{Body: b, Span: b.Span}
}
