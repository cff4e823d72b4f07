package engine

import (
	"strings"

	"github.com/xab-mack/anchorscan/internal/model"
)

// suppressionWindow is how many lines above a finding an inline marker may
// sit (attribute stacks push the flagged line down from the comment).
const suppressionWindow = 5

// applySuppressions drops findings with an inline suppression marker near
// their location. Format: // anchorscan:ignore RULE_ID
func applySuppressions(findings []model.Finding, source string) []model.Finding {
	if len(findings) == 0 || !strings.Contains(source, "anchorscan:ignore") {
		return findings
	}
	lines := strings.Split(source, "\n")
	out := findings[:0]
	for _, f := range findings {
		if isSuppressed(lines, f.RuleID, f.Location.Line) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isSuppressed(lines []string, ruleID string, line int) bool {
	if ruleID == "" || line < 1 {
		return false
	}
	from := line - 1 - suppressionWindow
	if from < 0 {
		from = 0
	}
	to := line // one line past the finding, 0-based
	if to >= len(lines) {
		to = len(lines) - 1
	}
	needle := "anchorscan:ignore " + ruleID
	for i := from; i <= to; i++ {
		if strings.Contains(lines[i], needle) {
			return true
		}
	}
	return false
}
