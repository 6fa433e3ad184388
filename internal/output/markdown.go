package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatScreen(result *ScreenResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Screening result\n\n")
	sb.WriteString("| Field | Value | Result |\n")
	sb.WriteString("|-------|-------|--------|\n")
	for _, row := range result.Rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			escapeMarkdownCell(row.Field),
			escapeMarkdownCell(truncate(row.Value, maxCellWidth)),
			escapeMarkdownCell(signalsLabel(row.Signals)),
		))
	}

	if result.Clean {
		sb.WriteString("\n**Verdict**: clean\n")
	} else {
		sb.WriteString("\n**Verdict**: flagged\n")
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatLedgers(rows []LedgerRow) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Submission ledgers\n\n")
	sb.WriteString("| Key | Recent | Total | Last Submission |\n")
	sb.WriteString("|-----|--------|-------|-----------------|\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n",
			escapeMarkdownCell(row.Key), row.Recent, row.Total, formatTime(row.Last)))
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatOutcome(result *OutcomeResult) (string, error) {
	if result == nil {
		return "", nil
	}
	line := fmt.Sprintf("**%s**: %s\n", escapeMarkdownCell(result.Status), escapeMarkdownCell(result.Message))
	if result.Stage != "" {
		line += fmt.Sprintf("\nStage: `%s`\n", result.Stage)
	}
	return line, nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
