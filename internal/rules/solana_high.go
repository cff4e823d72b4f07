package rules

import (
	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/query"
	"github.com/xab-mack/anchorscan/internal/rust"
)

// UnsafeCode flags functions that use unsafe code, either in the signature
// or as a block in the body.
func UnsafeCode() *Rule {
	return NewBuilder().
		ID("solana-unsafe-code").
		Title("Unsafe Code Usage").
		Description("Using unsafe code in Solana programs can lead to security vulnerabilities").
		Severity(model.SeverityHigh).
		RuleType(model.RuleTypeSolana).
		Tag("security").
		Tag("unsafe").
		Reference("https://doc.rust-lang.org/book/ch20-01-unsafe-rust.html").
		Recommendations(
			"Avoid using unsafe code in Solana programs unless absolutely necessary",
			"If unsafe is required, thoroughly document why it's needed and ensure all invariants are maintained",
			"Consider using safe alternatives like checked arithmetic operations",
		).
		DSLQuery(func(ast *rust.File) *query.AstQuery {
			return query.New(ast).
				Functions().
				UsesUnsafe()
		}).
		MustBuild()
}

// MissingSignerCheck flags Accounts structs with fields that look like they
// should be signers but carry no signer evidence.
func MissingSignerCheck() *Rule {
	return NewBuilder().
		ID("missing-signer-check").
		Title("Missing Signer Check").
		Description("Detects Anchor account fields that may need signer verification").
		Severity(model.SeverityHigh).
		Tag("security").
		Tag("anchor").
		Recommendations(
			"Use Signer<'info> for accounts whose authority must approve the instruction",
			"Or add #[account(signer)] to require the account to have signed the transaction",
		).
		DSLQuery(func(ast *rust.File) *query.AstQuery {
			return query.New(ast).
				Structs().
				DerivesAccounts().
				HasMissingSignerChecks()
		}).
		MustBuild()
}
