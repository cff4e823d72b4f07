package app

import (
	"github.com/spf13/cobra"

	"github.com/xab-mack/anchorscan/internal/cli"
)

func BuildRoot() *cobra.Command {
	root := &cobra.Command{Use: "anchorscan", Short: "Static analyzer for Solana/Anchor programs"}
	cli.AddCommands(root)
	return root
}
