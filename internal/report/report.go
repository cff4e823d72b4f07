// Package report renders analysis results for humans (console, markdown) and
// machines (SARIF).
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/xab-mack/anchorscan/internal/model"
)

// Generator renders one analysis result. Each generator carries a run ID
// that ties the rendered artifacts of one run together.
type Generator struct {
	runID string
	log   hclog.Logger
}

func NewGenerator(log hclog.Logger) *Generator {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Generator{runID: uuid.NewString(), log: log}
}

// RunID returns the identifier stamped on this generator's artifacts.
func (g *Generator) RunID() string { return g.runID }

func groupBySeverity(findings []model.Finding) map[model.Severity][]model.Finding {
	groups := make(map[model.Severity][]model.Finding)
	for _, f := range findings {
		groups[f.Severity] = append(groups[f.Severity], f)
	}
	return groups
}

// Console writes a severity-grouped plain text report, High first.
func (g *Generator) Console(w io.Writer, res *model.AnalysisResult) {
	stats := res.Stats
	fmt.Fprintf(w, "Analyzed %d file(s) with %d rule(s) in %dms\n\n", stats.FilesAnalyzed, stats.RulesExecuted, stats.TotalTimeMs)

	if len(res.Findings) == 0 {
		fmt.Fprintln(w, "No findings.")
		return
	}

	groups := groupBySeverity(res.Findings)
	for _, sev := range model.Severities {
		group := groups[sev]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%d)\n", strings.ToUpper(string(sev)), len(group))
		for _, f := range group {
			fmt.Fprintf(w, "  [%s] %s\n", f.RuleID, f.Location.Format())
			fmt.Fprintf(w, "      %s\n", f.Description)
			if f.CodeSnippet != "" {
				for _, line := range strings.Split(f.CodeSnippet, "\n") {
					fmt.Fprintf(w, "      | %s\n", line)
				}
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total: %d finding(s)", len(res.Findings))
	var parts []string
	for _, sev := range model.Severities {
		if n := stats.FindingsBySeverity[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintln(w)
}

// Markdown renders the result as a markdown document.
func (g *Generator) Markdown(res *model.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("# Analysis Report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", g.runID)
	fmt.Fprintf(&b, "- Date: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Files analyzed: %d\n", res.Stats.FilesAnalyzed)
	fmt.Fprintf(&b, "- Rules executed: %d\n", res.Stats.RulesExecuted)
	fmt.Fprintf(&b, "- Duration: %dms\n\n", res.Stats.TotalTimeMs)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Severity | Findings |\n|---|---|\n")
	for _, sev := range model.Severities {
		fmt.Fprintf(&b, "| %s | %d |\n", sev, res.Stats.FindingsBySeverity[sev])
	}
	b.WriteString("\n")

	if len(res.Findings) == 0 {
		b.WriteString("No findings.\n")
		return b.String()
	}

	b.WriteString("## Findings\n\n")
	groups := groupBySeverity(res.Findings)
	for _, sev := range model.Severities {
		group := groups[sev]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", strings.ToUpper(string(sev)))
		for _, f := range group {
			fmt.Fprintf(&b, "- **%s** at `%s`\n\n  %s\n", f.RuleID, f.Location.Format(), f.Description)
			if f.CodeSnippet != "" {
				fmt.Fprintf(&b, "\n  ```rust\n")
				for _, line := range strings.Split(f.CodeSnippet, "\n") {
					fmt.Fprintf(&b, "  %s\n", line)
				}
				fmt.Fprintf(&b, "  ```\n")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// SaveMarkdown writes the markdown report to path.
func (g *Generator) SaveMarkdown(path string, res *model.AnalysisResult) error {
	g.log.Debug("writing markdown report", "path", path)
	if err := os.WriteFile(path, []byte(g.Markdown(res)), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
