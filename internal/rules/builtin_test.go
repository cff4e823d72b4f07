package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/query"
)

func TestBuiltinCatalogue(t *testing.T) {
	rules := Builtin()
	require.Len(t, rules, 7)

	want := []struct {
		id       string
		severity model.Severity
	}{
		{"solana-unsafe-code", model.SeverityHigh},
		{"missing-signer-check", model.SeverityHigh},
		{"duplicate-mutable-accounts", model.SeverityMedium},
		{"solana-division-by-zero", model.SeverityMedium},
		{"owner-check", model.SeverityMedium},
		{"solana-missing-error-handling", model.SeverityLow},
		{"anchor-instructions", model.SeverityLow},
	}
	for i, w := range want {
		assert.Equal(t, w.id, rules[i].ID())
		assert.Equal(t, w.severity, rules[i].Severity(), w.id)
		assert.Equal(t, model.RuleTypeSolana, rules[i].RuleType(), w.id)
		assert.True(t, rules[i].Enabled(), w.id)
		assert.NotEmpty(t, rules[i].Title(), w.id)
		assert.NotEmpty(t, rules[i].Description(), w.id)
	}
}

func TestMissingSignerCheckRule(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct Withdraw<'info> {
    pub authority: AccountInfo<'info>,
}
`
	findings, err := MissingSignerCheck().Check(mustParse(t, src), "lib.rs", query.NewSpanExtractor(src, "lib.rs"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
	assert.Contains(t, findings[0].Description, "Withdraw")
}

func TestDivisionByZeroRule(t *testing.T) {
	src := `
pub fn share(total: u64, parts: u64) -> u64 {
    total / parts
}
`
	findings, err := DivisionByZero().Check(mustParse(t, src), "lib.rs", query.NewSpanExtractor(src, "lib.rs"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityMedium, findings[0].Severity)
}

func TestUnsafeCodeRule(t *testing.T) {
	src := `
pub fn read(ptr: *const u64) -> u64 {
    unsafe { *ptr }
}
pub fn safe() {}
`
	findings, err := UnsafeCode().Check(mustParse(t, src), "lib.rs", query.NewSpanExtractor(src, "lib.rs"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Description, "read")
}

func TestMissingErrorHandlingRulePublicOnly(t *testing.T) {
	src := `
fn private_no_result() {}
pub fn public_no_result() {}
pub fn public_result() -> Result<()> { Ok(()) }
`
	findings, err := MissingErrorHandling().Check(mustParse(t, src), "lib.rs", query.NewSpanExtractor(src, "lib.rs"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Description, "public_no_result")
}
