package cli

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xab-mack/anchorscan/internal/config"
)

func newInitCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an " + config.FileName + " in the target directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			b, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			path := filepath.Join(dir, config.FileName)
			return os.WriteFile(path, append(b, '\n'), 0o644)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the config file to")
	return cmd
}
