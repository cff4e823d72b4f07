package rules

import (
	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/query"
	"github.com/xab-mack/anchorscan/internal/rust"
)

// MissingErrorHandling flags functions that do not return a Result and may
// fail silently.
func MissingErrorHandling() *Rule {
	return NewBuilder().
		ID("solana-missing-error-handling").
		Title("Missing Error Handling in Public Functions").
		Description("Detects public functions that don't return Result<T> and may fail silently. In Solana contracts, proper error handling is essential for security and debugging.").
		Severity(model.SeverityLow).
		RuleType(model.RuleTypeSolana).
		Tag("error-handling").
		Tag("best-practices").
		Recommendations(
			"Change function return type to Result<T, YourErrorType> to handle potential failures",
			"Use Anchor's Result<()> for instruction handlers to properly propagate errors",
			"Implement custom error types using #[error_code] for better error reporting",
			"Add proper error handling with ? operator or explicit error returns",
			"Consider using anchor_lang::Result for Anchor-specific error handling",
		).
		DSLQuery(func(ast *rust.File) *query.AstQuery {
			return query.New(ast).
				Functions().
				MissingErrorHandling()
		}).
		MustBuild()
}

// AnchorInstructions reports the functions shaped like Anchor instruction
// handlers, as an inventory of the program's entry points.
func AnchorInstructions() *Rule {
	return NewBuilder().
		ID("anchor-instructions").
		Title("Anchor Instructions Detection").
		Description("Detects functions that are Anchor program instructions (public functions with Context parameter)").
		Severity(model.SeverityLow).
		DSLQuery(func(ast *rust.File) *query.AstQuery {
			return query.New(ast).
				Functions().
				AnchorInstructions()
		}).
		MustBuild()
}
