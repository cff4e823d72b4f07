package rules

// Builtin returns the full built-in rule catalogue. The rule IDs are a
// stable external contract (they are what ignore-rules configuration keys
// on) and must not change across releases.
func Builtin() []*Rule {
	return []*Rule{
		// high
		UnsafeCode(),
		MissingSignerCheck(),
		// medium
		DuplicateMutableAccounts(),
		DivisionByZero(),
		OwnerCheck(),
		// low
		MissingErrorHandling(),
		AnchorInstructions(),
	}
}
