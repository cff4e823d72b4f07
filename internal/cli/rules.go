package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xab-mack/anchorscan/internal/rules"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "rules", Short: "Inspect available rules"}
	cmd.AddCommand(newRulesListCmd(), newRulesShowCmd())
	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range rules.Builtin() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", r.ID(), r.Severity(), r.RuleType(), r.Title())
			}
			return nil
		},
	}
}

func newRulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <rule-id>",
		Short: "Show one rule's full metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range rules.Builtin() {
				if r.ID() != args[0] {
					continue
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%s (%s, %s)\n%s\n\n%s\n", r.ID(), r.Severity(), r.RuleType(), r.Title(), r.Description())
				if tags := r.Tags(); len(tags) > 0 {
					fmt.Fprintf(w, "\nTags: %s\n", strings.Join(tags, ", "))
				}
				if recs := r.Recommendations(); len(recs) > 0 {
					fmt.Fprintln(w, "\nRecommendations:")
					for _, rec := range recs {
						fmt.Fprintf(w, "  - %s\n", rec)
					}
				}
				if refs := r.References(); len(refs) > 0 {
					fmt.Fprintln(w, "\nReferences:")
					for _, ref := range refs {
						fmt.Fprintf(w, "  - %s\n", ref)
					}
				}
				return nil
			}
			return fmt.Errorf("unknown rule %q", args[0])
		},
	}
}
