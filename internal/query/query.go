// Package query implements the composable AST query layer the rules are
// written against: a node model over the parsed tree, structural extraction
// and narrowing operators, set combinators, and terminal operators that turn
// result sets into findings.
package query

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/rust"
)

var logger = hclog.NewNullLogger()

// SetLogger routes query-layer debug output to the given logger.
func SetLogger(l hclog.Logger) {
	if l != nil {
		logger = l
	}
}

// NodeKind tags the syntactic category of an AstNode.
type NodeKind string

const (
	KindFile       NodeKind = "file"
	KindFunction   NodeKind = "function"
	KindStruct     NodeKind = "struct"
	KindEnum       NodeKind = "enum"
	KindBlock      NodeKind = "block"
	KindExpression NodeKind = "expression"
	KindOther      NodeKind = "other"
)

// AstNode wraps a reference into the parsed tree with a category tag and an
// optional display name. Nodes borrow the tree; they are valid only while the
// AST they point into is.
type AstNode struct {
	Kind NodeKind
	// Data points at the underlying tree node (*rust.File, *rust.Function,
	// *rust.Struct, *rust.Enum, *rust.Block or rust.Expr). nil for KindOther.
	Data any
	// Assoc marks functions defined inside impl blocks.
	Assoc bool
	Name  string
}

func FromFile(f *rust.File) AstNode {
	return AstNode{Kind: KindFile, Data: f}
}

func FromFunction(fn *rust.Function) AstNode {
	return AstNode{Kind: KindFunction, Data: fn, Name: fn.Name}
}

// FromAssociatedFunction wraps a function defined inside an impl block.
func FromAssociatedFunction(fn *rust.Function) AstNode {
	return AstNode{Kind: KindFunction, Data: fn, Assoc: true, Name: fn.Name}
}

func FromStruct(st *rust.Struct) AstNode {
	return AstNode{Kind: KindStruct, Data: st, Name: st.Name}
}

func FromEnum(en *rust.Enum) AstNode {
	return AstNode{Kind: KindEnum, Data: en, Name: en.Name}
}

func FromBlock(b *rust.Block) AstNode {
	return AstNode{Kind: KindBlock, Data: b}
}

func FromExpr(x rust.Expr) AstNode {
	return AstNode{Kind: KindExpression, Data: x}
}

// DisplayName returns the node's name, or "unnamed" when it has none.
func (n AstNode) DisplayName() string {
	if n.Name == "" {
		return "unnamed"
	}
	return n.Name
}

// Snippet returns a cheap syntactic placeholder, used only when no span data
// is available for the real source text.
func (n AstNode) Snippet() string {
	switch n.Kind {
	case KindFunction:
		return fmt.Sprintf("fn %s(...)", n.Name)
	case KindStruct:
		return fmt.Sprintf("struct %s", n.Name)
	case KindEnum:
		return fmt.Sprintf("enum %s", n.Name)
	case KindBlock:
		return "{ ... }"
	default:
		return "..."
	}
}

// SpanOf resolves the node's source span. ok is false when the node carries
// no position data.
func (n AstNode) SpanOf() (rust.Span, bool) {
	var sp rust.Span
	switch v := n.Data.(type) {
	case *rust.File:
		sp = v.Span
	case *rust.Function:
		sp = v.Span
	case *rust.Struct:
		sp = v.Span
	case *rust.Enum:
		sp = v.Span
	case *rust.Block:
		sp = v.Span
	case rust.Expr:
		sp = v.ExprSpan()
	default:
		return rust.Span{}, false
	}
	return sp, sp.Valid()
}

// equal is the identity used by And: same category, same underlying tree
// node. Data holds pointers into the tree, so interface comparison is
// pointer identity.
func (n AstNode) equal(other AstNode) bool {
	return n.Kind == other.Kind && n.Assoc == other.Assoc && n.Data == other.Data
}

// AstQuery is an ordered result set narrowed by successive operators. Results
// keep discovery order; duplicates introduced by Or are kept.
type AstQuery struct {
	results []AstNode
}

// New starts a query rooted at a parsed file.
func New(ast *rust.File) *AstQuery {
	return &AstQuery{results: []AstNode{FromFile(ast)}}
}

// FromNodes starts a query from an explicit result set.
func FromNodes(nodes []AstNode) *AstQuery {
	return &AstQuery{results: nodes}
}

// Results returns the current result set.
func (q *AstQuery) Results() []AstNode { return q.results }

// Functions narrows file results to every function reachable from them,
// including functions nested in inline modules and inside impl blocks.
// Non-inline modules live in other files and are not followed.
func (q *AstQuery) Functions() *AstQuery {
	logger.Debug("searching for functions recursively in all modules")
	var out []AstNode
	for _, node := range q.results {
		if file, ok := node.Data.(*rust.File); ok {
			collectFunctions(file.Items, &out)
		}
	}
	return &AstQuery{results: out}
}

func collectFunctions(items []rust.Item, out *[]AstNode) {
	for _, item := range items {
		switch v := item.(type) {
		case *rust.Function:
			logger.Trace("found function", "name", v.Name)
			*out = append(*out, FromFunction(v))
		case *rust.Mod:
			if v.Inline {
				logger.Debug("searching in module", "name", v.Name)
				collectFunctions(v.Items, out)
			}
		case *rust.Impl:
			logger.Debug("searching in impl block", "type", v.SelfType)
			for _, fn := range v.Functions {
				logger.Trace("found impl function", "name", fn.Name)
				*out = append(*out, FromAssociatedFunction(fn))
			}
		}
	}
}

// Structs narrows file results to their top-level struct items.
func (q *AstQuery) Structs() *AstQuery {
	logger.Debug("searching for structs")
	var out []AstNode
	for _, node := range q.results {
		file, ok := node.Data.(*rust.File)
		if !ok {
			continue
		}
		for _, item := range file.Items {
			if st, ok := item.(*rust.Struct); ok {
				logger.Trace("found struct", "name", st.Name)
				out = append(out, FromStruct(st))
			}
		}
	}
	return &AstQuery{results: out}
}

// WithName keeps only results whose name matches exactly.
func (q *AstQuery) WithName(name string) *AstQuery {
	logger.Debug("filtering by name", "name", name)
	var out []AstNode
	for _, node := range q.results {
		if node.Name == name {
			out = append(out, node)
		}
	}
	return &AstQuery{results: out}
}

// PublicFunctions keeps function results declared pub.
func (q *AstQuery) PublicFunctions() *AstQuery {
	logger.Debug("filtering for public functions")
	var out []AstNode
	for _, node := range q.results {
		if fn, ok := node.Data.(*rust.Function); ok && fn.Public {
			logger.Trace("found public function", "name", fn.Name)
			out = append(out, node)
		}
	}
	return &AstQuery{results: out}
}

// UsesUnsafe keeps functions whose signature is unsafe or whose body contains
// an unsafe block, and block results containing an unsafe block.
func (q *AstQuery) UsesUnsafe() *AstQuery {
	logger.Debug("searching for unsafe code")
	var out []AstNode
	for _, node := range q.results {
		switch v := node.Data.(type) {
		case *rust.Function:
			if v.Unsafe || blockHasUnsafe(v.Body) {
				logger.Trace("found unsafe function", "name", v.Name)
				out = append(out, node)
			}
		case *rust.Block:
			if blockHasUnsafe(v) {
				logger.Trace("found unsafe block")
				out = append(out, node)
			}
		}
	}
	return &AstQuery{results: out}
}

func blockHasUnsafe(b *rust.Block) bool {
	if b == nil {
		return false
	}
	found := false
	rust.Inspect(b, func(n any) bool {
		if found {
			return false
		}
		if _, ok := n.(*rust.UnsafeExpr); ok {
			found = true
			return false
		}
		return true
	})
	return found
}

// CallsTo keeps functions and blocks whose body contains a call or method
// call whose callee identifier equals name. The full subtree is walked; path
// callees only match when the whole path equals name.
func (q *AstQuery) CallsTo(name string) *AstQuery {
	logger.Debug("searching for calls", "target", name)
	var out []AstNode
	for _, node := range q.results {
		var root any
		switch v := node.Data.(type) {
		case *rust.Function:
			root = v
		case *rust.Block:
			root = v
		default:
			continue
		}
		if hasCallTo(root, name) {
			logger.Trace("found call to target", "target", name, "in", node.DisplayName())
			out = append(out, node)
		}
	}
	return &AstQuery{results: out}
}

func hasCallTo(root any, name string) bool {
	found := false
	rust.Inspect(root, func(n any) bool {
		switch v := n.(type) {
		case *rust.CallExpr:
			if v.Callee == name {
				found = true
			}
		case *rust.MethodCallExpr:
			if v.Method == name {
				found = true
			}
		}
		return true
	})
	return found
}

// Filter applies an arbitrary predicate over the result set.
func (q *AstQuery) Filter(predicate func(AstNode) bool) *AstQuery {
	logger.Debug("applying custom predicate")
	var out []AstNode
	for _, node := range q.results {
		if predicate(node) {
			out = append(out, node)
		}
	}
	return &AstQuery{results: out}
}

// Or concatenates the two result sets. Duplicates are kept. The combined set
// is freshly allocated so neither operand's backing array is written to.
func (q *AstQuery) Or(other *AstQuery) *AstQuery {
	logger.Debug("combining queries with OR")
	out := make([]AstNode, 0, len(q.results)+len(other.results))
	out = append(out, q.results...)
	out = append(out, other.results...)
	return &AstQuery{results: out}
}

// And keeps results that reference the same underlying tree node as some
// result of other.
func (q *AstQuery) And(other *AstQuery) *AstQuery {
	logger.Debug("combining queries with AND")
	var out []AstNode
	for _, node := range q.results {
		for _, o := range other.results {
			if node.equal(o) {
				out = append(out, node)
				break
			}
		}
	}
	return &AstQuery{results: out}
}

// Not is a declared but unimplemented combinator: negating a structural
// filter needs the universe of candidates, which the pipeline does not
// retain. It always yields an empty result.
func (q *AstQuery) Not() *AstQuery {
	logger.Debug("negating query, returning empty result (unimplemented)")
	return &AstQuery{}
}

// Exists reports whether any result remains.
func (q *AstQuery) Exists() bool { return len(q.results) > 0 }

// Count returns the number of results.
func (q *AstQuery) Count() int { return len(q.results) }

// Collect returns the result set, ending the pipeline.
func (q *AstQuery) Collect() []AstNode { return q.results }

// ToFindings converts every result into a finding with a fallback location of
// line 1. Prefer ToFindingsWithSpans when source text is available.
func (q *AstQuery) ToFindings(severity model.Severity, message, filePath string) []model.Finding {
	logger.Debug("converting results to findings", "count", len(q.results))
	findings := make([]model.Finding, 0, len(q.results))
	for _, node := range q.results {
		desc := message
		if node.Name != "" {
			desc = fmt.Sprintf("%s in '%s'", message, node.Name)
		}
		findings = append(findings, model.Finding{
			Description: desc,
			Severity:    severity,
			Location:    model.Location{File: filePath, Line: 1},
			CodeSnippet: node.Snippet(),
		})
	}
	return findings
}

// ToFindingsWithSpans converts every result into a finding with an exact
// location and source snippet resolved through the span extractor. Results
// without span data degrade to line 1 and the placeholder snippet.
func (q *AstQuery) ToFindingsWithSpans(severity model.Severity, title, description, filePath string, ex *SpanExtractor) []model.Finding {
	logger.Debug("converting results to findings with precise locations", "count", len(q.results))
	findings := make([]model.Finding, 0, len(q.results))
	for _, node := range q.results {
		var loc model.Location
		var snippet string
		if sp, ok := node.SpanOf(); ok {
			loc = ex.Location(sp)
			snippet = ex.Snippet(sp)
		} else {
			loc = model.Location{File: filePath, Line: 1}
			snippet = node.Snippet()
		}
		var desc string
		if node.Name != "" {
			desc = fmt.Sprintf("%s in '%s'. %s", title, node.Name, description)
		} else {
			desc = fmt.Sprintf("%s: %s", title, description)
		}
		findings = append(findings, model.Finding{
			Description: desc,
			Severity:    severity,
			Location:    loc,
			CodeSnippet: snippet,
		})
	}
	return findings
}
