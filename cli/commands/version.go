package commands

import (
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/litecore/cli/internal/ui"
	"github.com/satishbabariya/litecore/cli/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			libVersion, _, _ := sqlite3.Version()
			info := version.Get(libVersion)
			if short {
				fmt.Fprintln(ui.Out, info.String())
				return
			}
			fmt.Fprintln(ui.Out, info.FullString())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print a single line")

	return cmd
}
