// Package ui renders CLI output.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/satishbabariya/litecore/runtime/types"
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// Out is where ui writes regular output.
var Out io.Writer = os.Stdout

// PrintHeader prints a boxed title
func PrintHeader(title string, subtitle string) {
	header := lipgloss.NewStyle().
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 2).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Center,
				TitleStyle.Render(title),
				SecondaryStyle.Render(subtitle),
			),
		)

	fmt.Fprintln(Out, header)
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...any) {
	fmt.Fprintln(Out, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// PrintError prints an error message
func PrintError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...any) {
	fmt.Fprintln(Out, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// PrintInfo prints an info line with a dimmed key.
func PrintInfo(key string, value any) {
	fmt.Fprintf(Out, "%s %v\n", SecondaryStyle.Render(key+":"), value)
}

// PrintTable prints a table using pterm
func PrintTable(headers []string, rows [][]string) error {
	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)
	return pterm.DefaultTable.WithHasHeader().WithWriter(Out).WithData(tableData).Render()
}

// PrintRows prints fetched rows as a table, or the affected row count
// when the statement returned no columns.
func PrintRows(columns []string, rows []*types.Row) error {
	if len(columns) == 0 {
		return nil
	}
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := make([]string, r.Len())
		for i, v := range r.Values() {
			cells[i] = FormatValue(v)
		}
		data = append(data, cells)
	}
	if err := PrintTable(columns, data); err != nil {
		return err
	}
	fmt.Fprintln(Out, SecondaryStyle.Render(fmt.Sprintf("(%d rows)", len(rows))))
	return nil
}

// FormatValue renders a value for a table cell.
func FormatValue(v types.Value) string {
	switch v.Kind() {
	case types.KindNull:
		return color.New(color.Faint).Sprint("NULL")
	case types.KindText:
		return v.Text()
	default:
		return v.String()
	}
}

// PrintMarkdown renders markdown content
func PrintMarkdown(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}

	out, err := r.Render(content)
	if err != nil {
		return err
	}

	fmt.Fprint(Out, out)
	return nil
}

// NewProgressBar starts a progress bar over total steps.
func NewProgressBar(title string, total int) (*pterm.ProgressbarPrinter, error) {
	return pterm.DefaultProgressbar.
		WithTitle(title).
		WithTotal(total).
		WithWriter(Out).
		Start()
}

// Prompt returns the colored shell prompt.
func Prompt(database string) string {
	return color.New(color.FgCyan, color.Bold).Sprint(database) + " sql>"
}
