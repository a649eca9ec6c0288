package commands

import (
	"context"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/litecore/cli/internal/ui"
	"github.com/satishbabariya/litecore/cli/internal/version"
	"github.com/satishbabariya/litecore/runtime/client"
)

var doctorPragmas = []string{
	"journal_mode",
	"synchronous",
	"foreign_keys",
	"busy_timeout",
	"page_size",
	"cache_size",
	"locking_mode",
	"auto_vacuum",
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the SQLite library and the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			libVersion, _, sourceID := sqlite3.Version()
			ui.PrintHeader("litecore doctor", "SQLite "+libVersion)
			ui.PrintInfo("source id", sourceID)

			support, err := version.CheckFeatures(libVersion)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(support))
			for _, sup := range support {
				status := ui.SuccessStyle.Render("yes")
				if !sup.Supported {
					status = ui.WarningStyle.Render("no")
				}
				rows = append(rows, []string{sup.Name, sup.Minimum, status})
			}
			if err := ui.PrintTable([]string{"Feature", "Requires", "Available"}, rows); err != nil {
				return err
			}

			conn, err := s.connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			values, err := readPragmas(ctx, conn, doctorPragmas)
			if err != nil {
				return err
			}
			table := make([][]string, 0, len(values))
			for _, name := range doctorPragmas {
				table = append(table, []string{name, values[name]})
			}
			if err := ui.PrintTable([]string{"Pragma", "Value"}, table); err != nil {
				return err
			}

			if err := quickCheck(ctx, conn); err != nil {
				ui.PrintError("%v", err)
				return err
			}
			ui.PrintSuccess("Database %s passed quick_check", s.cfg.Database)
			return nil
		},
	}
}

// readPragmas reads the current value of each named pragma.
func readPragmas(ctx context.Context, ex client.Executor, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		rows, err := client.FetchAllSQL(ctx, ex, "PRAGMA "+name)
		if err != nil {
			return nil, fmt.Errorf("pragma %s: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}
		v, err := rows[0].Value(0)
		if err != nil {
			return nil, err
		}
		out[name] = ui.FormatValue(v)
	}
	return out, nil
}

func quickCheck(ctx context.Context, ex client.Executor) error {
	rows, err := client.FetchAllSQL(ctx, ex, "PRAGMA quick_check")
	if err != nil {
		return err
	}
	var problems []string
	for _, r := range rows {
		v, err := r.Value(0)
		if err != nil {
			return err
		}
		if v.Text() != "ok" {
			problems = append(problems, v.Text())
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("quick_check found %d problems, first: %s", len(problems), problems[0])
	}
	return nil
}
