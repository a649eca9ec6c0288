package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/litecore/cli/internal/ui"
	"github.com/satishbabariya/litecore/runtime/client"
)

const shellHelp = `.tables          list tables
.schema [TABLE]  show CREATE statements
.depth           show the transaction depth
.help            show this help
.quit            exit the shell

Statements end with a semicolon and may span several lines.`

// NewShellCommand creates the interactive shell command.
func NewShellCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive SQL shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, err := s.connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			sh := &shell{conn: conn}
			ui.PrintInfo("database", s.cfg.Database)
			fmt.Fprintln(ui.Out, "Enter .help for usage hints.")

			for {
				var line string
				prompt := ui.Prompt(s.cfg.Database)
				if sh.pending() {
					prompt = "   ...>"
				}
				err := survey.AskOne(&survey.Input{Message: prompt}, &line)
				if errors.Is(err, terminal.InterruptErr) {
					return nil
				}
				if err != nil {
					return err
				}

				quit, err := sh.handle(ctx, line)
				if err != nil {
					ui.PrintError("%v", err)
				}
				if quit {
					return nil
				}
			}
		},
	}
}

// shell holds the state of an interactive session.
type shell struct {
	conn *client.Conn
	buf  strings.Builder
}

func (sh *shell) pending() bool { return sh.buf.Len() > 0 }

// handle processes one input line. It reports whether the session should
// end.
func (sh *shell) handle(ctx context.Context, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	if !sh.pending() && strings.HasPrefix(trimmed, ".") {
		return sh.meta(ctx, strings.Fields(trimmed))
	}
	if trimmed == "" {
		return false, nil
	}

	if sh.pending() {
		sh.buf.WriteByte('\n')
	}
	sh.buf.WriteString(line)
	if !strings.HasSuffix(trimmed, ";") {
		return false, nil
	}

	sql := sh.buf.String()
	sh.buf.Reset()
	return false, runStatement(ctx, sh.conn, sql)
}

func (sh *shell) meta(ctx context.Context, args []string) (bool, error) {
	switch args[0] {
	case ".quit", ".exit":
		return true, nil
	case ".help":
		fmt.Fprintln(ui.Out, shellHelp)
	case ".depth":
		ui.PrintInfo("depth", sh.conn.Depth())
	case ".tables":
		cols, rows, err := fetchTable(ctx, sh.conn,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
		if err != nil {
			return false, err
		}
		return false, ui.PrintRows(cols, rows)
	case ".schema":
		sql := "SELECT sql FROM sqlite_master WHERE sql IS NOT NULL"
		var params []any
		if len(args) > 1 {
			sql += " AND tbl_name = ?"
			params = append(params, args[1])
		}
		_, rows, err := fetchTable(ctx, sh.conn, sql+" ORDER BY name", params...)
		if err != nil {
			return false, err
		}
		for _, r := range rows {
			v, err := r.Value(0)
			if err != nil {
				return false, err
			}
			fmt.Fprintln(ui.Out, v.Text()+";")
		}
	default:
		return false, fmt.Errorf("unknown command %s, enter .help for usage hints", args[0])
	}
	return false, nil
}
