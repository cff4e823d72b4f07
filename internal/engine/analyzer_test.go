package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/rust"
)

func parsedFile(t *testing.T, path, src string) *rust.ParsedFile {
	t.Helper()
	return &rust.ParsedFile{Path: path, AST: mustParse(t, src), Source: src}
}

const vulnerableProgram = `use anchor_lang::prelude::*;

#[derive(Accounts)]
pub struct Ctx<'info> {
    pub authority: AccountInfo<'info>,
}

pub fn handler(ctx: Context<Ctx>) {
    let x = 1;
    let y = 0;
    let _ = x / y;
}
`

func builtinAnalyzer(t *testing.T, opts Options) *Analyzer {
	t.Helper()
	e := New(DefaultConfig(), nil)
	e.LoadBuiltinRules()
	return NewAnalyzer(e, opts, nil)
}

func findingsByRule(findings []model.Finding) map[string][]model.Finding {
	out := make(map[string][]model.Finding)
	for _, f := range findings {
		out[f.RuleID] = append(out[f.RuleID], f)
	}
	return out
}

func TestAnalyzeVulnerableProgram(t *testing.T) {
	a := builtinAnalyzer(t, Options{})
	res, err := a.AnalyzeFiles([]*rust.ParsedFile{parsedFile(t, "lib.rs", vulnerableProgram)})
	require.NoError(t, err)

	byRule := findingsByRule(res.Findings)
	require.NotEmpty(t, byRule["missing-signer-check"], "AccountInfo authority must be flagged")
	assert.Equal(t, model.SeverityHigh, byRule["missing-signer-check"][0].Severity)
	require.Len(t, byRule["solana-division-by-zero"], 1)
	require.Len(t, byRule["anchor-instructions"], 1)
	require.Len(t, byRule["solana-missing-error-handling"], 1)

	assert.Equal(t, 1, res.Stats.FilesAnalyzed)
	assert.Equal(t, 7, res.Stats.RulesExecuted)
	assert.Equal(t, len(res.Findings), func() int {
		var n int
		for _, c := range res.Stats.FindingsBySeverity {
			n += c
		}
		return n
	}())
}

func TestFindingsSortedBySeverity(t *testing.T) {
	a := builtinAnalyzer(t, Options{})
	res, err := a.AnalyzeFiles([]*rust.ParsedFile{parsedFile(t, "lib.rs", vulnerableProgram)})
	require.NoError(t, err)
	require.NotEmpty(t, res.Findings)
	for i := 1; i < len(res.Findings); i++ {
		assert.LessOrEqual(t,
			res.Findings[i-1].Severity.Rank(),
			res.Findings[i].Severity.Rank())
	}
}

func TestSeverityRetainedPostHoc(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IgnoreSeverities = []model.Severity{model.SeverityLow}
	e := New(cfg, nil)
	e.LoadBuiltinRules()
	a := NewAnalyzer(e, Options{}, nil)

	res, err := a.AnalyzeFiles([]*rust.ParsedFile{parsedFile(t, "lib.rs", vulnerableProgram)})
	require.NoError(t, err)
	for _, f := range res.Findings {
		assert.NotEqual(t, model.SeverityLow, f.Severity, f.RuleID)
	}
}

func TestInlineSuppression(t *testing.T) {
	suppressed := `use anchor_lang::prelude::*;

// anchorscan:ignore missing-signer-check
#[derive(Accounts)]
pub struct Ctx<'info> {
    pub authority: AccountInfo<'info>,
}
`
	a := builtinAnalyzer(t, Options{})
	findings := a.AnalyzeFile(parsedFile(t, "lib.rs", suppressed))
	byRule := findingsByRule(findings)
	assert.Empty(t, byRule["missing-signer-check"])
}

func TestInlineSuppressionIsRuleSpecific(t *testing.T) {
	suppressed := `// anchorscan:ignore solana-division-by-zero
pub fn handler(ctx: Context<Ctx>) {
    let x = 1;
    let y = 0;
    let _ = x / y;
}
`
	a := builtinAnalyzer(t, Options{})
	findings := a.AnalyzeFile(parsedFile(t, "lib.rs", suppressed))
	byRule := findingsByRule(findings)
	assert.Empty(t, byRule["solana-division-by-zero"])
	// the marker names one rule; others on the same lines still report
	assert.NotEmpty(t, byRule["solana-missing-error-handling"])
}

func TestBaselineRoundTrip(t *testing.T) {
	dir := t.TempDir()
	baselinePath := filepath.Join(dir, "baseline.json")

	files := []*rust.ParsedFile{parsedFile(t, "lib.rs", vulnerableProgram)}

	first := builtinAnalyzer(t, Options{WriteBaselinePath: baselinePath})
	res1, err := first.AnalyzeFiles(files)
	require.NoError(t, err)
	require.NotEmpty(t, res1.Findings)
	require.FileExists(t, baselinePath)

	second := builtinAnalyzer(t, Options{BaselinePath: baselinePath})
	res2, err := second.AnalyzeFiles(files)
	require.NoError(t, err)
	assert.Empty(t, res2.Findings, "all findings were baselined in the first run")
}

func TestBaselineBareFingerprintArray(t *testing.T) {
	files := []*rust.ParsedFile{parsedFile(t, "lib.rs", vulnerableProgram)}

	plain := builtinAnalyzer(t, Options{})
	res, err := plain.AnalyzeFiles(files)
	require.NoError(t, err)
	fps := Fingerprints(res.Findings)
	require.NotEmpty(t, fps)

	dir := t.TempDir()
	baselinePath := filepath.Join(dir, "legacy.json")
	data := []byte("[")
	for i, fp := range fps {
		if i > 0 {
			data = append(data, ',')
		}
		data = append(data, '"')
		data = append(data, fp...)
		data = append(data, '"')
	}
	data = append(data, ']')
	require.NoError(t, os.WriteFile(baselinePath, data, 0o644))

	baselined := builtinAnalyzer(t, Options{BaselinePath: baselinePath})
	res2, err := baselined.AnalyzeFiles(files)
	require.NoError(t, err)
	assert.Empty(t, res2.Findings)
}

func TestMissingBaselineIsNonFatal(t *testing.T) {
	a := builtinAnalyzer(t, Options{BaselinePath: filepath.Join(t.TempDir(), "nope.json")})
	res, err := a.AnalyzeFiles([]*rust.ParsedFile{parsedFile(t, "lib.rs", vulnerableProgram)})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Findings)
}
