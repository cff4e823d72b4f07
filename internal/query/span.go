package query

import (
	"fmt"
	"strings"

	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/rust"
)

// SpanExtractor maps tree spans back onto the original source text. It is
// the only layer that converts tree-relative coordinates into text-relative
// ones, and it must never fail: span data comes from the parser and may be
// absent or point past the end of the buffer.
type SpanExtractor struct {
	lines    []string
	filePath string
}

// NewSpanExtractor builds an extractor over one file's source text.
func NewSpanExtractor(source, filePath string) *SpanExtractor {
	return &SpanExtractor{lines: strings.Split(source, "\n"), filePath: filePath}
}

// Location converts a span into a 1-indexed Location. A span without
// position data degrades to line 1 with no column.
func (e *SpanExtractor) Location(sp rust.Span) model.Location {
	if !sp.Valid() {
		return model.Location{File: e.filePath, Line: 1}
	}
	return model.Location{
		File:      e.filePath,
		Line:      sp.StartLine,
		Column:    sp.StartCol + 1,
		EndLine:   sp.EndLine,
		EndColumn: sp.EndCol + 1,
	}
}

// Snippet reconstructs the exact source substring covered by the span.
// Columns are clamped against line lengths and out-of-range lines yield a
// sentinel string rather than an error.
func (e *SpanExtractor) Snippet(sp rust.Span) string {
	if sp.StartLine == 0 || sp.EndLine == 0 {
		return "// Code snippet unavailable"
	}
	if sp.StartLine > len(e.lines) || sp.EndLine > len(e.lines) {
		return "// Code snippet out of bounds"
	}

	startIdx := sp.StartLine - 1
	endIdx := sp.EndLine - 1

	if startIdx == endIdx {
		line := e.lines[startIdx]
		if sp.StartCol < len(line) && sp.EndCol <= len(line) {
			return line[sp.StartCol:min(sp.EndCol, len(line))]
		}
		return line
	}

	var b strings.Builder
	first := e.lines[startIdx]
	if sp.StartCol < len(first) {
		b.WriteString(first[sp.StartCol:])
	} else {
		b.WriteString(first)
	}
	b.WriteByte('\n')
	for i := startIdx + 1; i < endIdx; i++ {
		b.WriteString(e.lines[i])
		b.WriteByte('\n')
	}
	last := e.lines[endIdx]
	if sp.EndCol <= len(last) {
		b.WriteString(last[:sp.EndCol])
	} else {
		b.WriteString(last)
	}
	return b.String()
}

// Context renders the span's lines plus contextLines of surrounding lines,
// with the in-span lines marked. Used for diagnostics, not for findings.
func (e *SpanExtractor) Context(sp rust.Span, contextLines int) string {
	if sp.StartLine == 0 || sp.EndLine == 0 {
		return "// Context unavailable"
	}

	start := sp.StartLine - contextLines - 1
	if start < 0 {
		start = 0
	}
	end := sp.EndLine + contextLines - 1
	if end > len(e.lines) {
		end = len(e.lines)
	}

	var b strings.Builder
	for idx := start; idx < end; idx++ {
		lineNum := idx + 1
		line := ""
		if idx < len(e.lines) {
			line = e.lines[idx]
		}
		if lineNum >= sp.StartLine && lineNum <= sp.EndLine {
			fmt.Fprintf(&b, "→ %3d | %s\n", lineNum, line)
		} else {
			fmt.Fprintf(&b, "  %3d | %s\n", lineNum, line)
		}
	}
	return b.String()
}
