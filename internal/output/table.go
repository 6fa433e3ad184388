package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

const maxCellWidth = 48

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

// FormatScreen renders one row per field.
func (f *TableFormatter) FormatScreen(result *ScreenResult) (string, error) {
	if result == nil {
		return "", nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Field", "Value", "Result"})
	for _, row := range result.Rows {
		t.AppendRow(table.Row{row.Field, truncate(row.Value, maxCellWidth), signalsLabel(row.Signals)})
	}

	verdict := "clean"
	if !result.Clean {
		verdict = "flagged"
	}
	t.AppendFooter(table.Row{"", "", verdict})
	return t.Render(), nil
}

// FormatLedgers renders one row per stored ledger.
func (f *TableFormatter) FormatLedgers(rows []LedgerRow) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"Key", "Recent", "Total", "Last Submission", "Updated"})
	for _, row := range rows {
		t.AppendRow(table.Row{row.Key, row.Recent, row.Total, formatTime(row.Last), formatTime(row.UpdatedAt)})
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d ledger(s)", len(rows))})
	return t.Render(), nil
}

// FormatOutcome renders the submit banner.
func (f *TableFormatter) FormatOutcome(result *OutcomeResult) (string, error) {
	if result == nil {
		return "", nil
	}

	t := newTable()
	t.AppendRow(table.Row{"Status", result.Status})
	t.AppendRow(table.Row{"Message", result.Message})
	if result.Stage != "" {
		t.AppendRow(table.Row{"Stage", result.Stage})
	}
	return t.Render(), nil
}
