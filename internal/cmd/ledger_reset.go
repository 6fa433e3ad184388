package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/formguard/formguard/internal/core/store"
	"github.com/formguard/formguard/internal/output"
)

var ledgerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete stored submission ledgers",
	Long: `Delete stored ledgers so the matching clients may submit again
before their window expires.`,
	Example: `  formguard ledger reset --key contact_form_submissions:203.0.113.7
  formguard ledger reset --all --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		if format == output.FormatMarkdown {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		all, _ := cmd.Flags().GetBool("all")
		yes, _ := cmd.Flags().GetBool("yes")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		query := store.LedgerQuery{
			All:    all,
			Key:    strings.TrimSpace(flagString(cmd, "key")),
			Prefix: strings.TrimSpace(flagString(cmd, "prefix")),
		}
		if err := query.Validate(); err != nil {
			return err
		}
		if query.All && !yes && !dryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		cfg, err := loadConfig(cmd, ledgerFlagBindings)
		if err != nil {
			return err
		}

		backend, err := openBackend(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer backend.Close() // nolint:errcheck // best-effort cleanup

		matched, err := backend.CountLedgers(cmd.Context(), query)
		if err != nil {
			return err
		}

		sink, err := resolveSink(cmd, format, "ledger.reset")
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if dryRun {
			return writeLedgerResetResult(format, sink.writer, matched, 0, true)
		}

		deleted, err := backend.ResetLedgers(cmd.Context(), query)
		if err != nil {
			return err
		}
		return writeLedgerResetResult(format, sink.writer, matched, deleted, false)
	},
}

func writeLedgerResetResult(format output.Format, w io.Writer, matched int, deleted int64, dryRun bool) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(map[string]any{
			"matched": matched,
			"deleted": deleted,
			"dry_run": dryRun,
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	if dryRun {
		_, err := fmt.Fprintf(w, "Would delete %d ledger(s)\n", matched)
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted %d/%d ledger(s)\n", deleted, matched)
	return err
}

func init() {
	ledgerResetCmd.Flags().Bool("all", false, "Reset every ledger")
	ledgerResetCmd.Flags().String("key", "", "Reset a single ledger (exact storage key)")
	ledgerResetCmd.Flags().String("prefix", "", "Reset ledgers whose key has this prefix")
	ledgerResetCmd.Flags().Bool("yes", false, "Confirm destructive reset")
	ledgerResetCmd.Flags().Bool("dry-run", false, "Show what would be deleted")
	addOutputFlags(ledgerResetCmd)
}
