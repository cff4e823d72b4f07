package report

import (
	"fmt"
	"os"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/rules"
)

const toolName = "anchorscan"
const toolURI = "https://github.com/xab-mack/anchorscan"

func sarifLevel(s model.Severity) string {
	switch s {
	case model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// SARIF builds a SARIF 2.1.0 report with one run. Rule metadata comes from
// the built-in catalogue; findings from YAML rules still emit results, just
// without a rule descriptor.
func (g *Generator) SARIF(res *model.AnalysisResult) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("create sarif report: %w", err)
	}
	run := sarif.NewRunWithInformationURI(toolName, toolURI)

	for _, r := range rules.Builtin() {
		run.AddRule(r.ID()).
			WithDescription(r.Description()).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: sarifLevel(r.Severity()),
			})
	}

	for _, f := range res.Findings {
		region := sarif.NewRegion().WithStartLine(f.Location.Line)
		if f.Location.Column > 0 {
			region.WithStartColumn(f.Location.Column)
		}
		if f.Location.EndLine > 0 {
			region.WithEndLine(f.Location.EndLine)
		}
		if f.Location.EndColumn > 0 {
			region.WithEndColumn(f.Location.EndColumn)
		}
		location := sarif.NewLocation().
			WithPhysicalLocation(sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.Location.File)).
				WithRegion(region))
		result := sarif.NewRuleResult(f.RuleID).
			WithMessage(sarif.NewTextMessage(f.Description)).
			WithLevel(sarifLevel(f.Severity)).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}

	report.AddRun(run)
	return report, nil
}

// SaveSARIF writes the SARIF report to path.
func (g *Generator) SaveSARIF(path string, res *model.AnalysisResult) error {
	g.log.Debug("writing sarif report", "path", path)
	report, err := g.SARIF(res)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sarif file %s: %w", path, err)
	}
	defer file.Close()
	return report.PrettyWrite(file)
}
