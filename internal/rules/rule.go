// Package rules defines the rule abstraction, the fluent builder used to
// declare rules, the built-in catalogue, and the YAML template loader.
package rules

import (
	"github.com/hashicorp/go-hclog"

	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/query"
	"github.com/xab-mack/anchorscan/internal/rust"
)

var logger = hclog.NewNullLogger()

// SetLogger routes rule construction and execution logs to the given logger.
func SetLogger(l hclog.Logger) {
	if l != nil {
		logger = l
	}
}

// CheckFunc inspects one parsed file and returns its findings. The span
// extractor is built over the file's source text by the caller.
type CheckFunc func(ast *rust.File, filePath string, ex *query.SpanExtractor) ([]model.Finding, error)

// Rule is an immutable, identity-bearing check over an AST. Rules are built
// once, shared freely, and safe to invoke from multiple goroutines.
type Rule struct {
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

func (r *Rule) ID() string               { return r.id }
func (r *Rule) Title() string            { return r.title }
func (r *Rule) Description() string      { return r.description }
func (r *Rule) Severity() model.Severity { return r.severity }
func (r *Rule) RuleType() model.RuleType { return r.ruleType }
func (r *Rule) Tags() []string           { return r.tags }
func (r *Rule) References() []string     { return r.references }
func (r *Rule) Recommendations() []string {
	return r.recommendations
}
func (r *Rule) Enabled() bool { return r.enabled }

// Check runs the rule against one parsed file. A disabled rule still runs
// its query (the logs are useful for tuning) but reports nothing.
func (r *Rule) Check(ast *rust.File, filePath string, ex *query.SpanExtractor) ([]model.Finding, error) {
	logger.Debug("executing rule", "rule", r.id, "file", filePath)
	findings, err := r.check(ast, filePath, ex)
	if err != nil {
		return nil, err
	}
	if !r.enabled {
		logger.Debug("rule is disabled, no findings returned", "rule", r.id)
		return nil, nil
	}
	return findings, nil
}
