package model

import "fmt"

// Severity level of a finding. Ordered High first for filtering and display.
type Severity string

const (
	SeverityHigh          Severity = "high"
	SeverityMedium        Severity = "medium"
	SeverityLow           Severity = "low"
	SeverityInformational Severity = "informational"
)

// Severities lists all severity levels in display order (High first).
var Severities = []Severity{SeverityHigh, SeverityMedium, SeverityLow, SeverityInformational}

// ParseSeverity maps a user-supplied string to a Severity.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case string(SeverityHigh):
		return SeverityHigh, true
	case string(SeverityMedium):
		return SeverityMedium, true
	case string(SeverityLow):
		return SeverityLow, true
	case string(SeverityInformational):
		return SeverityInformational, true
	}
	return "", false
}

// Rank returns the display rank of a severity: High is 0, Informational is 3.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// GTE reports whether s is at least as severe as other.
func (s Severity) GTE(other Severity) bool { return s.Rank() <= other.Rank() }

// RuleType classifies a rule by the platform it targets.
type RuleType string

const (
	RuleTypeSolana  RuleType = "solana"
	RuleTypeAnchor  RuleType = "anchor"
	RuleTypeGeneral RuleType = "general"
)

// RuleTypes lists every rule type.
var RuleTypes = []RuleType{RuleTypeSolana, RuleTypeAnchor, RuleTypeGeneral}

// ParseRuleType maps a user-supplied string to a RuleType.
func ParseRuleType(s string) (RuleType, bool) {
	switch s {
	case string(RuleTypeSolana):
		return RuleTypeSolana, true
	case string(RuleTypeAnchor):
		return RuleTypeAnchor, true
	case string(RuleTypeGeneral):
		return RuleTypeGeneral, true
	}
	return "", false
}

// Location of a finding in the source code. Line and columns are 1-indexed.
// Column is 0 only when the underlying span carried no position data.
type Location struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column,omitempty"`
	EndLine   int    `json:"endLine,omitempty"`
	EndColumn int    `json:"endColumn,omitempty"`
}

// Format renders the location as file:line:col, extending with the end column
// when it differs and with the end line when the span crosses lines.
func (l Location) Format() string {
	switch {
	case l.Column > 0 && l.EndLine > 0 && l.EndLine != l.Line && l.EndColumn > 0:
		return fmt.Sprintf("%s:%d:%d-%d:%d", l.File, l.Line, l.Column, l.EndLine, l.EndColumn)
	case l.Column > 0 && l.EndColumn > 0 && l.EndColumn != l.Column:
		return fmt.Sprintf("%s:%d:%d-%d", l.File, l.Line, l.Column, l.EndColumn)
	case l.Column > 0:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	default:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
}

// Finding is one reported issue.
type Finding struct {
	RuleID      string   `json:"ruleId"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Location    Location `json:"location"`
	CodeSnippet string   `json:"codeSnippet,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
}

// AnalysisStats summarizes one analysis run.
type AnalysisStats struct {
	FilesAnalyzed      int              `json:"filesAnalyzed"`
	RulesExecuted      int              `json:"rulesExecuted"`
	TotalTimeMs        int64            `json:"totalTimeMs"`
	FindingsBySeverity map[Severity]int `json:"findingsBySeverity"`
}

// AnalysisResult bundles findings with run statistics.
type AnalysisResult struct {
	Findings []Finding     `json:"findings"`
	Stats    AnalysisStats `json:"stats"`
}
