package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/litecore/cli/internal/ui"
	"github.com/satishbabariya/litecore/cli/internal/watch"
	"github.com/satishbabariya/litecore/runtime/client"
	"github.com/satishbabariya/litecore/runtime/types"
)

// NewExecCommand creates the exec command.
func NewExecCommand(s *settings) *cobra.Command {
	var (
		statement string
		watchFile bool
	)

	cmd := &cobra.Command{
		Use:   "exec [file.sql]",
		Short: "Run SQL against the database",
		Long: `Run a single statement given with -e, or a script file.

A statement that returns rows is printed as a table. A script runs
every statement in order. With --watch the script runs again each
time the file is saved.`,
		Example: `  litecore exec -e "SELECT * FROM users LIMIT 10"
  litecore exec schema.sql
  litecore exec --watch seed.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (statement == "") == (len(args) == 0) {
				return fmt.Errorf("give either -e or a script file")
			}
			if watchFile && len(args) == 0 {
				return fmt.Errorf("--watch needs a script file")
			}

			ctx := cmd.Context()
			conn, err := s.connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if statement != "" {
				return runStatement(ctx, conn, statement)
			}

			file := args[0]
			run := func() error {
				script, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if err := runScript(ctx, conn, string(script)); err != nil {
					ui.PrintError("%s: %v", file, err)
					return nil
				}
				ui.PrintSuccess("Ran %s", file)
				return nil
			}
			if !watchFile {
				return run()
			}

			w, err := watch.NewWatcher(file, watch.DefaultDebounce, run)
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			ui.PrintInfo("watching", file)
			sig, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()
			<-sig.Done()
			return nil
		},
	}

	cmd.Flags().StringVarP(&statement, "execute", "e", "", "statement to run")
	cmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "re-run the script when it changes")

	return cmd
}

// runStatement runs one statement, printing its rows when it returns any.
func runStatement(ctx context.Context, conn *client.Conn, sql string) error {
	stmt, err := conn.Prepare(ctx, sql)
	if err != nil {
		return err
	}
	if len(stmt.Columns()) == 0 {
		res, err := stmt.Execute(ctx)
		if err != nil {
			return err
		}
		ui.PrintSuccess("%d rows affected", res.RowsAffected)
		return nil
	}

	rows, err := stmt.FetchAll(ctx)
	if err != nil {
		return err
	}
	return ui.PrintRows(stmt.Columns(), rows)
}

// runScript runs every statement of script in order. A script manages its
// own transactions.
func runScript(ctx context.Context, conn *client.Conn, script string) error {
	if strings.TrimSpace(script) == "" {
		return nil
	}
	return conn.ExecScript(ctx, script)
}

// fetchTable returns the column names and rows of a query.
func fetchTable(ctx context.Context, ex client.Executor, sql string, args ...any) ([]string, []*types.Row, error) {
	rows, err := client.FetchAllSQL(ctx, ex, sql, args...)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rows[0].Columns(), rows, nil
}
