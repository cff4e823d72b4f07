package rules

import (
	"errors"

	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/query"
	"github.com/xab-mack/anchorscan/internal/rust"
)

// Builder accumulates rule metadata and exactly one query implementation,
// then produces an immutable Rule. Missing the query is a programming error
// and fails Build.
type Builder struct {
	id              string
	title           string
	description     string
	severity        model.Severity
	ruleType        model.RuleType
	tags            []string
	references      []string
	recommendations []string
	enabled         bool
	check           CheckFunc
}

// NewBuilder returns a builder with the defaults rules usually want: medium
// severity, solana type, enabled.
func NewBuilder() *Builder {
	return &Builder{
		severity: model.SeverityMedium,
		ruleType: model.RuleTypeSolana,
		enabled:  true,
	}
}

func (b *Builder) ID(id string) *Builder {
	b.id = id
	return b
}

func (b *Builder) Title(title string) *Builder {
	b.title = title
	return b
}

func (b *Builder) Description(description string) *Builder {
	b.description = description
	return b
}

func (b *Builder) Severity(severity model.Severity) *Builder {
	b.severity = severity
	return b
}

func (b *Builder) RuleType(ruleType model.RuleType) *Builder {
	b.ruleType = ruleType
	return b
}

func (b *Builder) Tag(tag string) *Builder {
	b.tags = append(b.tags, tag)
	return b
}

func (b *Builder) Tags(tags ...string) *Builder {
	b.tags = append(b.tags, tags...)
	return b
}

func (b *Builder) Reference(ref string) *Builder {
	b.references = append(b.references, ref)
	return b
}

func (b *Builder) References(refs ...string) *Builder {
	b.references = append(b.references, refs...)
	return b
}

func (b *Builder) Recommendations(recs ...string) *Builder {
	b.recommendations = append(b.recommendations, recs...)
	return b
}

func (b *Builder) Enabled(enabled bool) *Builder {
	b.enabled = enabled
	return b
}

// Query supplies the rule body as a raw check over the AST. The closure owns
// finding construction entirely.
func (b *Builder) Query(fn func(ast *rust.File, filePath string) ([]model.Finding, error)) *Builder {
	b.check = func(ast *rust.File, filePath string, _ *query.SpanExtractor) ([]model.Finding, error) {
		return fn(ast, filePath)
	}
	return b
}

// Visitor supplies the rule body as a node collector; the returned nodes are
// converted to findings with the rule's metadata and precise spans.
func (b *Builder) Visitor(fn func(ast *rust.File) []query.AstNode) *Builder {
	b.check = func(ast *rust.File, filePath string, ex *query.SpanExtractor) ([]model.Finding, error) {
		q := query.FromNodes(fn(ast))
		return b.toFindings(q, filePath, ex), nil
	}
	return b
}

// DSLQuery supplies the rule body as a query pipeline; the pipeline's result
// set is converted to findings with the rule's metadata and precise spans.
// This is the entry point the built-in catalogue uses.
func (b *Builder) DSLQuery(fn func(ast *rust.File) *query.AstQuery) *Builder {
	b.check = func(ast *rust.File, filePath string, ex *query.SpanExtractor) ([]model.Finding, error) {
		return b.toFindings(fn(ast), filePath, ex), nil
	}
	return b
}

func (b *Builder) toFindings(q *query.AstQuery, filePath string, ex *query.SpanExtractor) []model.Finding {
	if ex == nil {
		return q.ToFindings(b.severity, b.title, filePath)
	}
	return q.ToFindingsWithSpans(b.severity, b.title, b.description, filePath, ex)
}

// Build produces the rule. It fails when no query implementation was
// supplied; that is a contract violation at startup, not a runtime error.
func (b *Builder) Build() (*Rule, error) {
	logger.Debug("building rule", "rule", b.id)
	if b.check == nil {
		return nil, errors.New("rule " + b.id + ": query implementation is required")
	}
	if len(b.references) > 0 {
		logger.Debug("rule references", "rule", b.id, "references", b.references)
	}
	if !b.enabled {
		logger.Info("rule is disabled by default", "rule", b.id)
	}
	return &Rule{
		id:              b.id,
		title:           b.title,
		description:     b.description,
		severity:        b.severity,
		ruleType:        b.ruleType,
		tags:            b.tags,
		references:      b.references,
		recommendations: b.recommendations,
		enabled:         b.enabled,
		check:           b.check,
	}, nil
}

// MustBuild is Build for statically declared rules, where a missing query is
// a bug worth crashing on.
func (b *Builder) MustBuild() *Rule {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}
