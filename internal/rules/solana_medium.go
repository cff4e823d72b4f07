package rules

import (
	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/query"
	"github.com/xab-mack/anchorscan/internal/rust"
)

// DuplicateMutableAccounts flags Accounts structs where the same account
// could be passed for two mutable fields because nothing constrains them
// apart.
func DuplicateMutableAccounts() *Rule {
	return NewBuilder().
		ID("duplicate-mutable-accounts").
		Title("Duplicate Mutable Accounts").
		Description("Detects account structs with multiple mutable references to the same account type, which can lead to unexpected behavior").
		Severity(model.SeverityMedium).
		Recommendations(
			"Add constraints to ensure accounts are different: #[account(constraint = account1.key() != account2.key())]",
			"Use a single mutable account reference instead of multiple ones when possible",
			"Implement explicit validation in your instruction handler to prevent the same account being passed multiple times",
			"Consider using Anchor's constraint system to enforce account uniqueness at the framework level",
		).
		DSLQuery(func(ast *rust.File) *query.AstQuery {
			return query.New(ast).
				Structs().
				DerivesAccounts().
				HasDuplicateMutableAccounts()
		}).
		MustBuild()
}

// DivisionByZero flags division operations whose divisor is not provably
// non-zero.
func DivisionByZero() *Rule {
	return NewBuilder().
		ID("solana-division-by-zero").
		Title("Division Without Zero Check").
		Description("Detects division operations without zero verification").
		Severity(model.SeverityMedium).
		DSLQuery(func(ast *rust.File) *query.AstQuery {
			return query.New(ast).
				Functions().
				HasUnsafeDivisions()
		}).
		MustBuild()
}

// OwnerCheck reports Accounts structs that implement owner validation, as an
// inventory of where ownership is being checked.
func OwnerCheck() *Rule {
	return NewBuilder().
		ID("owner-check").
		Title("Owner Check Validation").
		Description("Detects structs that properly implement owner checks for account validation").
		Severity(model.SeverityMedium).
		DSLQuery(func(ast *rust.File) *query.AstQuery {
			return query.New(ast).
				Structs().
				DerivesAccounts().
				HasOwnerCheck()
		}).
		MustBuild()
}
