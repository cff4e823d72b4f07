// Package rust is the language frontend: a lightweight parser for the subset
// of Rust syntax that Anchor programs exercise. It produces a typed AST with
// source spans; attribute and type token text is preserved verbatim so the
// analysis layer can apply its textual heuristics without a symbol table.
package rust

// Span is a source region. Lines are 1-indexed; columns are 0-indexed byte
// offsets into the line, with EndCol exclusive. The zero Span means the node
// carried no position data.
type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Valid reports whether the span carries position data.
func (s Span) Valid() bool { return s.StartLine > 0 }

// File is the root of one parsed source file.
type File struct {
	Items []Item
	Span  Span
}

// Item is a top-level (or module-level) declaration.
type Item interface{ itemNode() }

// Attr is one outer attribute, e.g. #[account(mut, constraint = ...)].
// Path is the attribute name ("derive", "account"); Tokens is the raw source
// text between the attribute's parentheses, empty for path-only attributes.
type Attr struct {
	Path   string
	Tokens string
	Span   Span
}

// Param is one function parameter. Type is the raw type token text.
type Param struct {
	Name string
	Type string
	Span Span
}

// Function is a free function or an impl-block function.
type Function struct {
	Name       string
	Public     bool
	Unsafe     bool
	Attrs      []Attr
	Params     []Param
	ReturnType string // raw token text, "" when the function returns unit
	Body       *Block // nil for bodyless declarations
	Span       Span
}

// Field is one named struct field. Type is the raw type token text.
type Field struct {
	Name   string
	Public bool
	Type   string
	Attrs  []Attr
	Span   Span
}

// Struct is a struct item. Only named fields are retained; tuple and unit
// structs have no Fields.
type Struct struct {
	Name   string
	Public bool
	Attrs  []Attr
	Fields []Field
	Span   Span
}

// Enum is an enum item. Variant bodies are not modeled.
type Enum struct {
	Name     string
	Public   bool
	Attrs    []Attr
	Variants []string
	Span     Span
}

// Mod is a module item. Items is nil for non-inline (external file) modules.
type Mod struct {
	Name   string
	Inline bool
	Items  []Item
	Span   Span
}

// Impl is an implementation block. Only its functions are modeled.
type Impl struct {
	SelfType  string
	Functions []*Function
	Span      Span
}

func (*Function) itemNode() {}
func (*Struct) itemNode()   {}
func (*Enum) itemNode()     {}
func (*Mod) itemNode()      {}
func (*Impl) itemNode()     {}

// Block is a brace-delimited sequence of statements.
type Block struct {
	Stmts []Stmt
	Span  Span
}

// Stmt is one statement inside a block.
type Stmt interface{ stmtNode() }

// LetStmt is a local binding. Name is "" for patterns the parser does not
// model; Init is nil when the binding has no initializer.
type LetStmt struct {
	Name string
	Init Expr
	Span Span
}

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	X    Expr
	Span Span
}

func (*LetStmt) stmtNode()  {}
func (*ExprStmt) stmtNode() {}

// Expr is an expression node.
type Expr interface {
	exprNode()
	ExprSpan() Span
}

// LitExpr is an integer or float literal. Value is the literal text with any
// underscores removed.
type LitExpr struct {
	Value   string
	IsFloat bool
	Span    Span
}

// PathExpr is an identifier or a :: path, stored as written.
type PathExpr struct {
	Name string
	Span Span
}

// BinaryExpr is a binary operation; Op is the operator token text.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
	Span  Span
}

// UnaryExpr is a prefix operation (-, !, *, &).
type UnaryExpr struct {
	Op   string
	X    Expr
	Span Span
}

// CallExpr is a call whose callee is a path, e.g. transfer(a, b).
type CallExpr struct {
	Callee string
	Args   []Expr
	Span   Span
}

// MethodCallExpr is a method call, e.g. x.key().
type MethodCallExpr struct {
	Recv   Expr
	Method string
	Args   []Expr
	Span   Span
}

// FieldExpr is a field access, e.g. ctx.accounts.
type FieldExpr struct {
	X    Expr
	Name string
	Span Span
}

// MacroExpr is a macro invocation; Tokens is the raw source text between the
// macro's delimiters.
type MacroExpr struct {
	Name   string
	Tokens string
	Span   Span
}

// UnsafeExpr is an unsafe block.
type UnsafeExpr struct {
	Body *Block
	Span Span
}

// BlockExpr wraps a nested block used in expression position (if/loop/match
// bodies are attached here).
type BlockExpr struct {
	Body *Block
	Span Span
}

// UnknownExpr covers syntax the parser recognizes but does not model.
type UnknownExpr struct {
	Text string
	Span Span
}

func (*LitExpr) exprNode()        {}
func (*PathExpr) exprNode()       {}
func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*CallExpr) exprNode()       {}
func (*MethodCallExpr) exprNode() {}
func (*FieldExpr) exprNode()      {}
func (*MacroExpr) exprNode()      {}
func (*UnsafeExpr) exprNode()     {}
func (*BlockExpr) exprNode()      {}
func (*UnknownExpr) exprNode()    {}

func (e *LitExpr) ExprSpan() Span        { return e.Span }
func (e *PathExpr) ExprSpan() Span       { return e.Span }
func (e *BinaryExpr) ExprSpan() Span     { return e.Span }
func (e *UnaryExpr) ExprSpan() Span      { return e.Span }
func (e *CallExpr) ExprSpan() Span       { return e.Span }
func (e *MethodCallExpr) ExprSpan() Span { return e.Span }
func (e *FieldExpr) ExprSpan() Span      { return e.Span }
func (e *MacroExpr) ExprSpan() Span      { return e.Span }
func (e *UnsafeExpr) ExprSpan() Span     { return e.Span }
func (e *BlockExpr) ExprSpan() Span      { return e.Span }
func (e *UnknownExpr) ExprSpan() Span    { return e.Span }

// Inspect walks the subtree rooted at n in source order, calling f for every
// node. If f returns false for a node, its children are skipped. Accepted
// node kinds are the AST types of this package.
func Inspect(n any, f func(any) bool) {
	if n == nil || !f(n) {
		return
	}
	switch v := n.(type) {
	case *File:
		for _, it := range v.Items {
			Inspect(it, f)
		}
	case *Mod:
		for _, it := range v.Items {
			Inspect(it, f)
		}
	case *Impl:
		for _, fn := range v.Functions {
			Inspect(fn, f)
		}
	case *Function:
		if v.Body != nil {
			Inspect(v.Body, f)
		}
	case *Block:
		for _, st := range v.Stmts {
			Inspect(st, f)
		}
	case *LetStmt:
		if v.Init != nil {
			Inspect(v.Init, f)
		}
	case *ExprStmt:
		Inspect(v.X, f)
	case *BinaryExpr:
		Inspect(v.Left, f)
		Inspect(v.Right, f)
	case *UnaryExpr:
		Inspect(v.X, f)
	case *CallExpr:
		for _, a := range v.Args {
			Inspect(a, f)
		}
	case *MethodCallExpr:
		Inspect(v.Recv, f)
		for _, a := range v.Args {
			Inspect(a, f)
		}
	case *FieldExpr:
		Inspect(v.X, f)
	case *UnsafeExpr:
		Inspect(v.Body, f)
	case *BlockExpr:
		Inspect(v.Body, f)
	}
}
