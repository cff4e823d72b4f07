package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xab-mack/anchorscan/internal/model"
)

type modelT struct {
	findings []model.Finding
	cursor   int
	detail   bool
}

func initialModel(findings []model.Finding) modelT { return modelT{findings: findings} }

func (m modelT) Init() tea.Cmd { return nil }

func (m modelT) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.detail {
			m.detail = false
			return m, nil
		}
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.findings)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.findings) > 0 {
			m.detail = !m.detail
		}
	}
	return m, nil
}

func (m modelT) View() string {
	var b strings.Builder
	if m.detail && m.cursor < len(m.findings) {
		f := m.findings[m.cursor]
		fmt.Fprintf(&b, "%s [%s]\n%s\n\n%s\n", f.RuleID, f.Severity, f.Location.Format(), f.Description)
		if f.CodeSnippet != "" {
			fmt.Fprintf(&b, "\n%s\n", f.CodeSnippet)
		}
		b.WriteString("\nesc: back  q: quit\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Findings (%d)\n\n", len(m.findings))
	for i, f := range m.findings {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		fmt.Fprintf(&b, "%s%s [%s] %s %s\n", cursor, f.RuleID, f.Severity, f.Location.Format(), f.Description)
	}
	b.WriteString("\nenter: detail  q: quit\n")
	return b.String()
}

// Run launches an interactive finding browser.
func Run(findings []model.Finding) error {
	p := tea.NewProgram(initialModel(findings))
	_, err := p.Run()
	return err
}
