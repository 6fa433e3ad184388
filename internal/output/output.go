package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/formguard/formguard/internal/core"
	"github.com/formguard/formguard/internal/core/gatekeeper"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders command results.
type Formatter interface {
	FormatScreen(result *ScreenResult) (string, error)
	FormatLedgers(rows []LedgerRow) (string, error)
	FormatOutcome(result *OutcomeResult) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// ScreenRow is one field of a screening result.
type ScreenRow struct {
	Field   string   `json:"field"`
	Value   string   `json:"value"`
	Signals []string `json:"signals"`
}

// Passed reports whether the field tripped nothing.
func (r ScreenRow) Passed() bool {
	return len(r.Signals) == 0
}

// ScreenResult is the per-field view of a gatekeeper report.
type ScreenResult struct {
	Clean bool        `json:"clean"`
	Rows  []ScreenRow `json:"fields"`
}

// NewScreenResult pairs the screened values with their report.
func NewScreenResult(attempt core.SubmissionAttempt, report gatekeeper.Report) *ScreenResult {
	single := func(signal string) []string {
		if signal == "" {
			return []string{}
		}
		return []string{signal}
	}
	orEmpty := func(signals []string) []string {
		if signals == nil {
			return []string{}
		}
		return signals
	}

	return &ScreenResult{
		Clean: report.Clean(),
		Rows: []ScreenRow{
			{Field: "name", Value: attempt.Name, Signals: orEmpty(report.Name)},
			{Field: "email", Value: attempt.Email, Signals: single(report.Email)},
			{Field: "phone", Value: attempt.Phone, Signals: single(report.Phone)},
			{Field: "message", Value: attempt.Message, Signals: orEmpty(report.Message)},
		},
	}
}

// LedgerRow summarizes one stored ledger.
type LedgerRow struct {
	Key       string     `json:"key"`
	Recent    int        `json:"recent"`
	Total     int        `json:"total"`
	Last      *time.Time `json:"last_submission,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NewLedgerRow summarizes a stored ledger as of now.
func NewLedgerRow(key string, ledger core.Ledger, updatedAt, now time.Time, window time.Duration) LedgerRow {
	row := LedgerRow{
		Key:    key,
		Recent: len(ledger.Recent(now, window)),
		Total:  len(ledger.Entries),
	}
	if times := ledger.Times(); len(times) > 0 {
		last := times[len(times)-1]
		row.Last = &last
	}
	if !updatedAt.IsZero() {
		updated := updatedAt.UTC()
		row.UpdatedAt = &updated
	}
	return row
}

// OutcomeResult is the banner a submit produced.
type OutcomeResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func signalsLabel(signals []string) string {
	if len(signals) == 0 {
		return "ok"
	}
	return strings.Join(signals, ", ")
}

// truncate shortens long values for table cells.
func truncate(value string, max int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
