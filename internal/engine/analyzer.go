package engine

import (
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/rust"
)

// Options controls one analysis run on top of the engine configuration.
type Options struct {
	// BaselinePath suppresses findings whose fingerprint appears in a
	// previously written baseline file.
	BaselinePath string
	// WriteBaselinePath writes the run's fingerprints out as a new baseline.
	WriteBaselinePath string
}

// Analyzer runs the rule engine over a batch of parsed files and aggregates
// the result.
type Analyzer struct {
	engine *RuleEngine
	opts   Options
	log    hclog.Logger
}

// NewAnalyzer wraps a populated engine.
func NewAnalyzer(eng *RuleEngine, opts Options, log hclog.Logger) *Analyzer {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Analyzer{engine: eng, opts: opts, log: log}
}

// AnalyzeFile runs all rules against one parsed file and applies inline
// suppressions.
func (a *Analyzer) AnalyzeFile(pf *rust.ParsedFile) []model.Finding {
	findings := a.engine.ExecuteRules(pf.AST, pf.Path, pf.Source)
	return applySuppressions(findings, pf.Source)
}

// AnalyzeFiles runs the batch. One file's findings never depend on another
// file; a file that produced no AST simply contributes nothing.
func (a *Analyzer) AnalyzeFiles(files []*rust.ParsedFile) (*model.AnalysisResult, error) {
	start := time.Now()

	var findings []model.Finding
	for _, pf := range files {
		findings = append(findings, a.AnalyzeFile(pf)...)
	}

	// severity exclusions are re-checked on findings, not only at rule
	// registration: a query may emit at a severity its rule does not declare
	findings = a.retainSeverities(findings)

	if a.opts.BaselinePath != "" {
		b, err := loadBaseline(a.opts.BaselinePath)
		if err != nil {
			a.log.Warn("could not load baseline", "path", a.opts.BaselinePath, "error", err)
		} else {
			before := len(findings)
			findings = filterByBaseline(findings, b)
			a.log.Debug("baseline applied", "suppressed", before-len(findings))
		}
	}
	if a.opts.WriteBaselinePath != "" {
		if err := writeBaseline(a.opts.WriteBaselinePath, findings); err != nil {
			a.log.Warn("could not write baseline", "path", a.opts.WriteBaselinePath, "error", err)
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() < findings[j].Severity.Rank()
	})

	bySeverity := make(map[model.Severity]int)
	for _, f := range findings {
		bySeverity[f.Severity]++
	}

	return &model.AnalysisResult{
		Findings: findings,
		Stats: model.AnalysisStats{
			FilesAnalyzed:      len(files),
			RulesExecuted:      a.engine.RuleCount(),
			TotalTimeMs:        time.Since(start).Milliseconds(),
			FindingsBySeverity: bySeverity,
		},
	}, nil
}

func (a *Analyzer) retainSeverities(findings []model.Finding) []model.Finding {
	if len(a.engine.cfg.IgnoreSeverities) == 0 {
		return findings
	}
	out := findings[:0]
	for _, f := range findings {
		if a.engine.cfg.ignoresSeverity(f.Severity) {
			continue
		}
		out = append(out, f)
	}
	return out
}
