package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func accountsStructs(t *testing.T, src string) *AstQuery {
	t.Helper()
	return New(mustParse(t, src)).Structs().DerivesAccounts()
}

func TestDerivesAccounts(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct WithAccounts<'info> {
    pub vault: Account<'info, Vault>,
}

#[derive(Clone, Debug)]
pub struct WithoutAccounts {
    pub value: u64,
}

pub struct Plain {
    pub value: u64,
}
`
	q := accountsStructs(t, src)
	assert.Equal(t, 1, q.Count())
	assert.Equal(t, "WithAccounts", q.Results()[0].Name)
}

func TestMissingSignerAccountInfo(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct VulnerableStruct<'info> {
    pub authority: AccountInfo<'info>,
}
`
	assert.True(t, accountsStructs(t, src).HasMissingSignerChecks().Exists(),
		"AccountInfo without signer constraint should be flagged")
}

func TestMissingSignerSafeWithAttr(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct SafeStruct<'info> {
    #[account(signer)]
    pub authority: AccountInfo<'info>,
}
`
	assert.False(t, accountsStructs(t, src).HasMissingSignerChecks().Exists(),
		"AccountInfo with signer constraint should not be flagged")
}

func TestMissingSignerUncheckedAccount(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct VulnerableStruct<'info> {
    pub admin: UncheckedAccount<'info>,
}
`
	assert.True(t, accountsStructs(t, src).HasMissingSignerChecks().Exists())
}

func TestMissingSignerSafeSignerType(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct SafeStruct<'info> {
    pub proper_signer: Signer<'info>,
}
`
	assert.False(t, accountsStructs(t, src).HasMissingSignerChecks().Exists())
}

func TestMissingSignerMixedFields(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct MixedStruct<'info> {
    pub proper_signer: Signer<'info>,
    pub vulnerable_account: AccountInfo<'info>,
    #[account(signer)]
    pub safe_account: AccountInfo<'info>,
}
`
	assert.True(t, accountsStructs(t, src).HasMissingSignerChecks().Exists(),
		"one vulnerable field flags the struct even with safe siblings")
}

func TestMissingSignerAccountLoaderNeverFlagged(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct SafeStruct<'info> {
    pub data_loader: AccountLoader<'info, MyData>,
}
`
	assert.False(t, accountsStructs(t, src).HasMissingSignerChecks().Exists())
}

func TestMissingSignerEmptyStruct(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct EmptyStruct<'info> {}
`
	assert.False(t, accountsStructs(t, src).HasMissingSignerChecks().Exists())
}

func TestDuplicateMutableUnconstrained(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct Transfer<'info> {
    #[account(mut)]
    pub from: Account<'info, Token>,
    #[account(mut)]
    pub to: Account<'info, Token>,
}
`
	assert.True(t, accountsStructs(t, src).HasDuplicateMutableAccounts().Exists())
}

func TestDuplicateMutableConstraintClears(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct Transfer<'info> {
    #[account(mut, constraint = from.key() != to.key())]
    pub from: Account<'info, Token>,
    #[account(mut)]
    pub to: Account<'info, Token>,
}
`
	// the constraint on from references to, covering both fields
	assert.False(t, accountsStructs(t, src).HasDuplicateMutableAccounts().Exists())
}

func TestDuplicateMutableSeedsCount(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct Transfer<'info> {
    #[account(mut, seeds = [b"vault"], bump)]
    pub from: Account<'info, Token>,
    #[account(mut)]
    pub to: Account<'info, Token>,
}
`
	// only one unconstrained mutable field remains
	assert.False(t, accountsStructs(t, src).HasDuplicateMutableAccounts().Exists())
}

func TestDuplicateMutableSingleFieldNotFlagged(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct Deposit<'info> {
    #[account(mut)]
    pub vault: Account<'info, Vault>,
    pub reader: Account<'info, Vault>,
}
`
	assert.False(t, accountsStructs(t, src).HasDuplicateMutableAccounts().Exists())
}

func TestMutableTokenMatchIsSubstring(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct Update<'info> {
    #[account(mut)]
    pub pool: Account<'info, Pool>,
    #[account(immutable)]
    pub state: Account<'info, State>,
}
`
	// token matching is plain substring, so "immutable" counts as mutable
	assert.True(t, accountsStructs(t, src).HasDuplicateMutableAccounts().Exists())
}

func TestSignerEvidenceMatchIsSubstring(t *testing.T) {
	src := `
#[derive(Accounts)]
pub struct Claim<'info> {
    #[account(constraint = signer_seeds.len() > 0)]
    pub authority: AccountInfo<'info>,
}
`
	// "signer" inside "signer_seeds" counts as signer evidence
	assert.False(t, accountsStructs(t, src).HasMissingSignerChecks().Exists())
}

func TestOwnerCheck(t *testing.T) {
	with := `
#[derive(Accounts)]
pub struct Checked<'info> {
    #[account(constraint = vault.owner == authority.key())]
    pub vault: Account<'info, Vault>,
}
`
	without := `
#[derive(Accounts)]
pub struct Unchecked<'info> {
    #[account(mut)]
    pub vault: Account<'info, Vault>,
}
`
	assert.True(t, accountsStructs(t, with).HasOwnerCheck().Exists())
	assert.False(t, accountsStructs(t, without).HasOwnerCheck().Exists())
}

func TestAnchorInstructions(t *testing.T) {
	src := `
pub fn handler(ctx: Context<Init>) -> Result<()> { Ok(()) }
pub fn plain(value: u64) {}
fn private_handler(ctx: Context<Init>) {}
`
	q := New(mustParse(t, src)).Functions().AnchorInstructions()
	assert.Equal(t, 1, q.Count())
	assert.Equal(t, "handler", q.Results()[0].Name)
}

func TestUnsafeDivisionTrackedVariableSafe(t *testing.T) {
	src := `
fn calc(x: u64) -> u64 {
    let z = 5;
    x / z
}
`
	assert.False(t, New(mustParse(t, src)).Functions().HasUnsafeDivisions().Exists())
}

func TestUnsafeDivisionUntrackedParamUnsafe(t *testing.T) {
	src := `
fn calc(x: u64, y: u64) -> u64 {
    x / y
}
`
	assert.True(t, New(mustParse(t, src)).Functions().HasUnsafeDivisions().Exists())
}

func TestUnsafeDivisionZeroLiteralUnsafe(t *testing.T) {
	src := `
fn calc(x: u64) -> u64 {
    x / 0
}
`
	assert.True(t, New(mustParse(t, src)).Functions().HasUnsafeDivisions().Exists())
}

func TestUnsafeDivisionNonZeroLiteralSafe(t *testing.T) {
	src := `
fn calc(x: u64) -> u64 {
    x / 4
}
`
	assert.False(t, New(mustParse(t, src)).Functions().HasUnsafeDivisions().Exists())
}

func TestUnsafeDivisionZeroBoundVariableUnsafe(t *testing.T) {
	src := `
fn calc(x: u64) -> u64 {
    let y = 0;
    x / y
}
`
	// y is bound to zero, so it never enters the safe set
	assert.True(t, New(mustParse(t, src)).Functions().HasUnsafeDivisions().Exists())
}

func TestUnsafeDivisionConservativeDivisors(t *testing.T) {
	call := `fn f(x: u64) -> u64 { x / supply() }`
	field := `fn f(x: u64, s: State) -> u64 { x / s.total }`
	sub := `fn f(x: u64, a: u64, b: u64) -> u64 { x / (a - b) }`
	for _, src := range []string{call, field, sub} {
		assert.True(t, New(mustParse(t, src)).Functions().HasUnsafeDivisions().Exists(), src)
	}
}

func TestMissingErrorHandling(t *testing.T) {
	src := `
pub fn no_return(ctx: Context<Init>) {}
pub fn returns_result(ctx: Context<Init>) -> Result<()> { Ok(()) }
pub fn returns_program_result() -> ProgramResult { Ok(()) }
pub fn returns_plain() -> u64 { 1 }
fn private_helper() {}
`
	var names []string
	for _, n := range New(mustParse(t, src)).Functions().MissingErrorHandling().Results() {
		names = append(names, n.Name)
	}
	// private helpers are not flagged even without a Result return type
	assert.Equal(t, []string{"no_return", "returns_plain"}, names)
}
