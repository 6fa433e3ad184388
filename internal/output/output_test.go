package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/formguard/formguard/internal/core"
	"github.com/formguard/formguard/internal/core/gatekeeper"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func spamAttempt() core.SubmissionAttempt {
	return core.SubmissionAttempt{
		Name:    "Jane Smith",
		Email:   "a@example.com",
		Phone:   "",
		Message: "BUY NOW!!! CHEAP PILLS!!!",
	}
}

func TestNewScreenResult(t *testing.T) {
	attempt := spamAttempt()
	result := NewScreenResult(attempt, gatekeeper.Screen(attempt))

	require.False(t, result.Clean)
	require.Len(t, result.Rows, 4)
	require.Equal(t, "name", result.Rows[0].Field)
	require.True(t, result.Rows[0].Passed())
	require.Equal(t, "email", result.Rows[1].Field)
	require.False(t, result.Rows[1].Passed())
	require.True(t, result.Rows[2].Passed(), "empty phone is allowed")
	require.False(t, result.Rows[3].Passed())
}

func TestFormatScreen(t *testing.T) {
	attempt := spamAttempt()
	result := NewScreenResult(attempt, gatekeeper.Screen(attempt))

	table, err := NewFormatter(FormatTable).FormatScreen(result)
	require.NoError(t, err)
	require.Contains(t, table, "Field")
	require.Contains(t, table, "flagged")
	require.Contains(t, table, "uppercase")

	md, err := NewFormatter(FormatMarkdown).FormatScreen(result)
	require.NoError(t, err)
	require.Contains(t, md, "| Field | Value | Result |")
	require.Contains(t, md, "**Verdict**: flagged")

	raw, err := NewFormatter(FormatJSON).FormatScreen(result)
	require.NoError(t, err)
	var decoded struct {
		Clean  bool `json:"clean"`
		Fields []struct {
			Field   string   `json:"field"`
			Signals []string `json:"signals"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.False(t, decoded.Clean)
	require.Len(t, decoded.Fields, 4)
	require.NotNil(t, decoded.Fields[0].Signals)
}

func TestNewLedgerRow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ledger := core.Ledger{Entries: []int64{
		now.Add(-2 * time.Hour).UnixMilli(),
		now.Add(-10 * time.Minute).UnixMilli(),
	}}

	row := NewLedgerRow("contact_form_submissions:203.0.113.7", ledger, now, now, time.Hour)
	require.Equal(t, 1, row.Recent)
	require.Equal(t, 2, row.Total)
	require.NotNil(t, row.Last)
	require.True(t, row.Last.Equal(now.Add(-10*time.Minute)))

	empty := NewLedgerRow("k", core.Ledger{}, time.Time{}, now, time.Hour)
	require.Nil(t, empty.Last)
	require.Nil(t, empty.UpdatedAt)
}

func TestFormatLedgers(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := []LedgerRow{
		NewLedgerRow("contact_form_submissions:a", core.Ledger{Entries: []int64{now.UnixMilli()}}, now, now, time.Hour),
	}

	table, err := NewFormatter(FormatTable).FormatLedgers(rows)
	require.NoError(t, err)
	require.Contains(t, table, "contact_form_submissions:a")
	require.Contains(t, table, "1 ledger(s)")

	raw, err := NewFormatter(FormatJSON).FormatLedgers(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", strings.TrimSpace(raw))
}

func TestFormatOutcome(t *testing.T) {
	result := &OutcomeResult{Status: "error", Message: core.ReasonTooFast, Stage: "timing"}

	table, err := NewFormatter(FormatTable).FormatOutcome(result)
	require.NoError(t, err)
	require.Contains(t, table, core.ReasonTooFast)
	require.Contains(t, table, "timing")

	md, err := NewFormatter(FormatMarkdown).FormatOutcome(&OutcomeResult{Status: "success", Message: "a|b"})
	require.NoError(t, err)
	require.Contains(t, md, `a\|b`)
	require.NotContains(t, md, "Stage")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "a b", truncate("a\n\n b", 10))
	require.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
