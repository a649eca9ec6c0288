package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/litecore/cli/internal/config"
	"github.com/satishbabariya/litecore/cli/internal/ui"
)

// NewInitCommand creates the init command.
func NewInitCommand(s *settings) *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a .litecore.yaml with the current settings",
		Long: `Write the effective configuration, including flags and environment
overrides, to .litecore.yaml so later commands pick it up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(dir, config.FileName+".yaml")
			exists, err := afero.Exists(config.AppFs, path)
			if err != nil {
				return err
			}
			if exists && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
			}

			if _, err := s.cfg.Options(); err != nil {
				return err
			}
			if err := config.Save(s.cfg, path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			ui.PrintSuccess("Created %s", path)
			ui.PrintInfo("database", s.cfg.Database)
			ui.PrintInfo("journal mode", s.cfg.JournalMode)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write the config file to")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")

	return cmd
}
