package query

import (
	"strings"

	"github.com/xab-mack/anchorscan/internal/rust"
)

// Domain filters for Solana/Anchor programs. Each filter narrows the query to
// the nodes matching one vulnerability heuristic; node categories a filter
// does not apply to are silently dropped. All heuristics work from attribute
// and type token text, there is no symbol table.

// DerivesAccounts keeps structs carrying a derive attribute whose token text
// contains "Accounts".
func (q *AstQuery) DerivesAccounts() *AstQuery {
	logger.Debug("filtering structs that derive Accounts")
	var out []AstNode
	for _, node := range q.results {
		st, ok := node.Data.(*rust.Struct)
		if !ok {
			continue
		}
		for _, attr := range st.Attrs {
			if attr.Path == "derive" && strings.Contains(attr.Tokens, "Accounts") {
				logger.Trace("found struct deriving Accounts", "name", st.Name)
				out = append(out, node)
				break
			}
		}
	}
	return &AstQuery{results: out}
}

// HasDuplicateMutableAccounts keeps structs with two or more mutable account
// fields that no constraint disambiguates. A field counts as constrained when
// its own account attribute carries constraint/seeds/bump, an explicit
// inequality, or a .key() comparison, or when a sibling field's constraint
// references it by name.
func (q *AstQuery) HasDuplicateMutableAccounts() *AstQuery {
	logger.Debug("filtering structs with duplicate mutable accounts")
	var out []AstNode
	for _, node := range q.results {
		st, ok := node.Data.(*rust.Struct)
		if !ok {
			continue
		}
		if countUnconstrainedMutable(st) >= 2 {
			logger.Trace("found struct with unconstrained mutable accounts", "name", st.Name)
			out = append(out, node)
		}
	}
	return &AstQuery{results: out}
}

func accountTokens(f rust.Field) string {
	var tokens []string
	for _, attr := range f.Attrs {
		if attr.Path == "account" {
			tokens = append(tokens, attr.Tokens)
		}
	}
	return strings.Join(tokens, " ")
}

func isConstrainingText(tokens string) bool {
	return strings.Contains(tokens, "constraint") ||
		strings.Contains(tokens, "seeds") ||
		strings.Contains(tokens, "bump") ||
		strings.Contains(tokens, "!=") ||
		strings.Contains(tokens, ".key()")
}

func countUnconstrainedMutable(st *rust.Struct) int {
	// first pass: collect every constraint expression in the struct so that
	// a constraint declared on one field can cover the field it names
	var constraintTexts []string
	for _, f := range st.Fields {
		if tokens := accountTokens(f); strings.Contains(tokens, "constraint") {
			constraintTexts = append(constraintTexts, tokens)
		}
	}

	count := 0
	for _, f := range st.Fields {
		tokens := accountTokens(f)
		if !strings.Contains(tokens, "mut") {
			continue
		}
		if isConstrainingText(tokens) {
			continue
		}
		referenced := false
		for _, text := range constraintTexts {
			if f.Name != "" && strings.Contains(text, f.Name) {
				referenced = true
				break
			}
		}
		if referenced {
			continue
		}
		logger.Trace("found mutable account without constraints", "field", f.Name)
		count++
	}
	return count
}

var uncheckedAccountTypes = []string{"AccountInfo", "UncheckedAccount", "SystemAccount"}

var signerNameKeywords = []string{"authority", "signer", "owner", "admin"}

// HasMissingSignerChecks keeps structs where some field that ought to be a
// signer carries no signer evidence. Fields typed as an unchecked account
// wrapper, or named like an authority, need either a signer-bearing account
// attribute or a Signer type. AccountLoader fields are never flagged.
func (q *AstQuery) HasMissingSignerChecks() *AstQuery {
	logger.Debug("filtering structs with missing signer checks")
	var out []AstNode
	for _, node := range q.results {
		st, ok := node.Data.(*rust.Struct)
		if !ok {
			continue
		}
		for _, f := range st.Fields {
			if fieldMissingSigner(f) {
				logger.Trace("found field that should be a signer", "struct", st.Name, "field", f.Name)
				out = append(out, node)
				break
			}
		}
	}
	return &AstQuery{results: out}
}

func fieldMissingSigner(f rust.Field) bool {
	if strings.Contains(f.Type, "AccountLoader") {
		return false
	}
	needsSigner := false
	for _, t := range uncheckedAccountTypes {
		if strings.Contains(f.Type, t) {
			needsSigner = true
			break
		}
	}
	if !needsSigner {
		name := strings.ToLower(f.Name)
		for _, kw := range signerNameKeywords {
			if strings.Contains(name, kw) {
				needsSigner = true
				break
			}
		}
	}
	if !needsSigner {
		return false
	}
	if strings.Contains(f.Type, "Signer") {
		return false
	}
	return !strings.Contains(accountTokens(f), "signer")
}

// HasOwnerCheck keeps structs where some field's account attribute text
// mentions owner or address validation.
func (q *AstQuery) HasOwnerCheck() *AstQuery {
	logger.Debug("filtering for owner checks")
	var out []AstNode
	for _, node := range q.results {
		st, ok := node.Data.(*rust.Struct)
		if !ok {
			continue
		}
		found := false
		for _, f := range st.Fields {
			tokens := accountTokens(f)
			if strings.Contains(tokens, "owner") || strings.Contains(tokens, "address") ||
				(strings.Contains(tokens, "constraint") && strings.Contains(tokens, "owner")) {
				found = true
				break
			}
		}
		if found {
			logger.Trace("found struct with owner check", "name", st.Name)
			out = append(out, node)
		}
	}
	return &AstQuery{results: out}
}

// AnchorInstructions keeps public functions taking a parameter whose type
// text contains "Context", the shape of an Anchor instruction handler.
func (q *AstQuery) AnchorInstructions() *AstQuery {
	logger.Debug("filtering anchor instruction functions")
	var out []AstNode
	for _, node := range q.results {
		fn, ok := node.Data.(*rust.Function)
		if !ok || !fn.Public {
			continue
		}
		for _, p := range fn.Params {
			if strings.Contains(p.Type, "Context") {
				logger.Trace("found anchor instruction", "name", fn.Name)
				out = append(out, node)
				break
			}
		}
	}
	return &AstQuery{results: out}
}

// HasUnsafeDivisions keeps functions whose body contains a division by a
// divisor not provably non-zero. Locals bound to non-zero literals are
// tracked as safe; calls, field accesses, untracked variables and
// subtractions as divisors are conservatively unsafe.
func (q *AstQuery) HasUnsafeDivisions() *AstQuery {
	logger.Debug("filtering functions with unsafe division operations")
	var out []AstNode
	for _, node := range q.results {
		fn, ok := node.Data.(*rust.Function)
		if !ok || fn.Body == nil {
			continue
		}
		if hasUnsafeDivision(fn.Body) {
			logger.Trace("found function with unsafe divisions", "name", fn.Name)
			out = append(out, node)
		}
	}
	return &AstQuery{results: out}
}

func hasUnsafeDivision(body *rust.Block) bool {
	safe := map[string]bool{}
	found := false
	rust.Inspect(body, func(n any) bool {
		switch v := n.(type) {
		case *rust.LetStmt:
			if v.Name != "" {
				if lit, ok := v.Init.(*rust.LitExpr); ok && !isZeroLiteral(lit) {
					safe[v.Name] = true
				}
			}
		case *rust.BinaryExpr:
			if v.Op == "/" && dangerousDivisor(v.Right, safe) {
				logger.Trace("found unsafe division operation")
				found = true
			}
		}
		return true
	})
	return found
}

func isZeroLiteral(lit *rust.LitExpr) bool {
	return lit.Value == "0" || lit.Value == "0.0"
}

func dangerousDivisor(x rust.Expr, safe map[string]bool) bool {
	switch v := x.(type) {
	case *rust.LitExpr:
		return isZeroLiteral(v)
	case *rust.PathExpr:
		return !safe[v.Name]
	case *rust.CallExpr:
		return true
	case *rust.FieldExpr:
		return true
	case *rust.BinaryExpr:
		return v.Op == "-"
	}
	return false
}

// MissingErrorHandling keeps public functions whose declared return type's
// token text does not contain "Result". A missing return type counts as
// missing error handling. Private helpers are skipped; visibility is part of
// this filter, not a separate pipeline stage.
func (q *AstQuery) MissingErrorHandling() *AstQuery {
	logger.Debug("filtering public functions not returning Result")
	var out []AstNode
	for _, node := range q.results {
		fn, ok := node.Data.(*rust.Function)
		if !ok || !fn.Public {
			continue
		}
		if strings.Contains(fn.ReturnType, "Result") {
			logger.Trace("function returns Result, skipping", "name", fn.Name)
			continue
		}
		logger.Trace("found function without Result return type", "name", fn.Name)
		out = append(out, node)
	}
	return &AstQuery{results: out}
}
