// Package engine owns the registered rule set and drives rule execution
// against parsed files, isolating per-rule failures and aggregating findings
// into an analysis result.
package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/query"
	"github.com/xab-mack/anchorscan/internal/rules"
	"github.com/xab-mack/anchorscan/internal/rust"
	"github.com/xab-mack/anchorscan/internal/util"
)

// Config controls which rules the engine retains at registration time.
type Config struct {
	// IgnoreSeverities drops rules (and, post-hoc, findings) at these levels.
	IgnoreSeverities []model.Severity
	// IgnoreRules drops rules by ID.
	IgnoreRules []string
	// IncludeRuleTypes keeps only rules of these types.
	IncludeRuleTypes []model.RuleType
	// CustomTemplatesPath points at YAML rule templates to load alongside
	// the built-in catalogue.
	CustomTemplatesPath string
}

// DefaultConfig includes every rule type and ignores nothing.
func DefaultConfig() Config {
	return Config{IncludeRuleTypes: model.RuleTypes}
}

func (c Config) ignoresSeverity(s model.Severity) bool {
	for _, ig := range c.IgnoreSeverities {
		if ig == s {
			return true
		}
	}
	return false
}

func (c Config) ignoresRule(id string) bool {
	for _, ig := range c.IgnoreRules {
		if ig == id {
			return true
		}
	}
	return false
}

func (c Config) includesType(t model.RuleType) bool {
	for _, inc := range c.IncludeRuleTypes {
		if inc == t {
			return true
		}
	}
	return false
}

// RuleEngine holds the retained rule set. Registration follows a
// build-then-freeze pattern: AddRule calls must complete before the first
// ExecuteRules; later additions are rejected.
type RuleEngine struct {
	cfg    Config
	rules  []*rules.Rule
	frozen atomic.Bool
	log    hclog.Logger
}

// New creates an engine with the given configuration.
func New(cfg Config, log hclog.Logger) *RuleEngine {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &RuleEngine{cfg: cfg, log: log}
}

// AddRule registers a rule unless the configuration excludes it. Excluded
// rules are dropped silently (debug log only), not stored.
func (e *RuleEngine) AddRule(r *rules.Rule) {
	if e.frozen.Load() {
		e.log.Error("rule registry is frozen, dropping rule", "rule", r.ID())
		return
	}
	if e.cfg.ignoresSeverity(r.Severity()) {
		e.log.Debug("ignoring rule due to severity", "rule", r.ID(), "severity", r.Severity())
		return
	}
	if e.cfg.ignoresRule(r.ID()) {
		e.log.Debug("ignoring rule due to id match", "rule", r.ID())
		return
	}
	if !e.cfg.includesType(r.RuleType()) {
		e.log.Debug("ignoring rule due to rule type", "rule", r.ID(), "type", r.RuleType())
		return
	}
	e.log.Debug("adding rule", "rule", r.ID())
	e.rules = append(e.rules, r)
}

// RuleCount returns the number of retained rules.
func (e *RuleEngine) RuleCount() int { return len(e.rules) }

// Rules returns the retained rules in registration order.
func (e *RuleEngine) Rules() []*rules.Rule { return e.rules }

// LoadBuiltinRules registers the full built-in catalogue.
func (e *RuleEngine) LoadBuiltinRules() {
	e.log.Debug("loading built-in rules")
	for _, r := range rules.Builtin() {
		e.AddRule(r)
	}
	e.log.Info("loaded built-in rules", "count", e.RuleCount())
}

// LoadYAMLRules registers rules from YAML templates at path.
func (e *RuleEngine) LoadYAMLRules(path string) error {
	e.log.Debug("loading yaml rules", "path", path)
	loaded, err := rules.LoadYAML(path)
	if err != nil {
		return fmt.Errorf("load yaml rules: %w", err)
	}
	for _, r := range loaded {
		e.AddRule(r)
	}
	return nil
}

// ExecuteRules runs every retained rule against one parsed file. A rule that
// fails or panics is logged and skipped; the remaining rules still run.
// Findings come back stamped with their rule ID and fingerprint.
func (e *RuleEngine) ExecuteRules(ast *rust.File, filePath, source string) []model.Finding {
	e.frozen.Store(true)
	e.log.Debug("executing rules", "count", len(e.rules), "file", filePath)

	ex := query.NewSpanExtractor(source, filePath)
	var findings []model.Finding
	for _, r := range e.rules {
		ruleFindings, err := e.runRule(r, ast, filePath, ex)
		if err != nil {
			e.log.Warn("error executing rule", "rule", r.ID(), "error", err)
			continue
		}
		e.log.Debug("rule executed", "rule", r.ID(), "findings", len(ruleFindings))
		for i := range ruleFindings {
			f := &ruleFindings[i]
			f.RuleID = r.ID()
			f.Fingerprint = util.Fingerprint(r.ID(), f.Location.File, f.Location.Line, f.Location.EndLine, f.CodeSnippet)
			if e.log.IsTrace() {
				sp := rust.Span{
					StartLine: f.Location.Line, StartCol: max(f.Location.Column-1, 0),
					EndLine: f.Location.EndLine, EndCol: max(f.Location.EndColumn-1, 0),
				}
				if sp.EndLine == 0 {
					sp.EndLine = sp.StartLine
				}
				e.log.Trace("finding context", "rule", r.ID(), "context", "\n"+ex.Context(sp, 2))
			}
		}
		findings = append(findings, ruleFindings...)
	}
	return findings
}

// runRule isolates one rule invocation, converting panics into errors so a
// broken rule cannot abort the batch.
func (e *RuleEngine) runRule(r *rules.Rule, ast *rust.File, filePath string, ex *query.SpanExtractor) (findings []model.Finding, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("rule %s panicked: %v", r.ID(), rec)
		}
	}()
	return r.Check(ast, filePath, ex)
}
