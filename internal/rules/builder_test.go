package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/query"
	"github.com/xab-mack/anchorscan/internal/rust"
)

func mustParse(t *testing.T, src string) *rust.File {
	t.Helper()
	f, err := rust.Parse(src)
	require.NoError(t, err)
	return f
}

func TestBuildRequiresQuery(t *testing.T) {
	_, err := NewBuilder().ID("no-query").Title("No Query").Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-query")
	assert.Contains(t, err.Error(), "query implementation is required")
}

func TestMustBuildPanicsWithoutQuery(t *testing.T) {
	assert.Panics(t, func() {
		NewBuilder().ID("no-query").MustBuild()
	})
}

func TestBuilderDefaults(t *testing.T) {
	r := NewBuilder().
		ID("defaults").
		DSLQuery(func(ast *rust.File) *query.AstQuery {
			return query.New(ast).Functions()
		}).
		MustBuild()
	assert.Equal(t, model.SeverityMedium, r.Severity())
	assert.Equal(t, model.RuleTypeSolana, r.RuleType())
	assert.True(t, r.Enabled())
}

func TestBuilderMetadata(t *testing.T) {
	r := NewBuilder().
		ID("meta").
		Title("Meta Rule").
		Description("checks metadata plumbing").
		Severity(model.SeverityHigh).
		Tag("security").
		Tags("anchor", "solana").
		Reference("https://example.com/one").
		References("https://example.com/two").
		Recommendations("do the thing", "then verify it").
		DSLQuery(func(ast *rust.File) *query.AstQuery {
			return query.New(ast).Functions()
		}).
		MustBuild()

	assert.Equal(t, "meta", r.ID())
	assert.Equal(t, "Meta Rule", r.Title())
	assert.Equal(t, model.SeverityHigh, r.Severity())
	assert.Equal(t, []string{"security", "anchor", "solana"}, r.Tags())
	assert.Equal(t, []string{"https://example.com/one", "https://example.com/two"}, r.References())
	assert.Len(t, r.Recommendations(), 2)
}

func TestDisabledRuleReportsNothing(t *testing.T) {
	r := NewBuilder().
		ID("disabled").
		Enabled(false).
		DSLQuery(func(ast *rust.File) *query.AstQuery {
			return query.New(ast).Functions()
		}).
		MustBuild()

	src := "pub fn anything() {}\n"
	ast := mustParse(t, src)
	findings, err := r.Check(ast, "lib.rs", query.NewSpanExtractor(src, "lib.rs"))
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestDSLQueryProducesFindingsWithSpans(t *testing.T) {
	r := NewBuilder().
		ID("public-fns").
		Title("Public Function").
		Description("found a public function").
		Severity(model.SeverityLow).
		DSLQuery(func(ast *rust.File) *query.AstQuery {
			return query.New(ast).Functions().PublicFunctions()
		}).
		MustBuild()

	src := "pub fn visible() {}\nfn hidden() {}\n"
	ast := mustParse(t, src)
	findings, err := r.Check(ast, "lib.rs", query.NewSpanExtractor(src, "lib.rs"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, "Public Function in 'visible'. found a public function", f.Description)
	assert.Equal(t, model.SeverityLow, f.Severity)
	assert.Equal(t, 1, f.Location.Line)
	assert.Contains(t, f.CodeSnippet, "pub fn visible()")
}

func TestQueryEntryPointOwnsFindings(t *testing.T) {
	r := NewBuilder().
		ID("raw").
		Query(func(ast *rust.File, filePath string) ([]model.Finding, error) {
			return []model.Finding{{
				Description: "hand built",
				Severity:    model.SeverityInformational,
				Location:    model.Location{File: filePath, Line: 7},
			}}, nil
		}).
		MustBuild()

	findings, err := r.Check(mustParse(t, "fn f() {}"), "lib.rs", nil)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "hand built", findings[0].Description)
	assert.Equal(t, 7, findings[0].Location.Line)
}

func TestVisitorEntryPoint(t *testing.T) {
	r := NewBuilder().
		ID("visitor").
		Title("Collected").
		Visitor(func(ast *rust.File) []query.AstNode {
			return query.New(ast).Structs().Collect()
		}).
		MustBuild()

	src := "pub struct Thing { pub v: u64 }\n"
	findings, err := r.Check(mustParse(t, src), "lib.rs", query.NewSpanExtractor(src, "lib.rs"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Description, "Thing")
}

func TestToFindingsWithoutExtractorFallsBack(t *testing.T) {
	r := NewBuilder().
		ID("no-ex").
		Title("Fallback").
		DSLQuery(func(ast *rust.File) *query.AstQuery {
			return query.New(ast).Functions()
		}).
		MustBuild()

	findings, err := r.Check(mustParse(t, "fn f() {}"), "lib.rs", nil)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "Fallback in 'f'", findings[0].Description)
	assert.Equal(t, 1, findings[0].Location.Line)
}
