package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/formguard/formguard/internal/core/store"
	"github.com/formguard/formguard/internal/output"
)

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored submission ledgers",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
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

		all, _ := cmd.Flags().GetBool("all")
		query := store.LedgerQuery{
			All:    all,
			Prefix: strings.TrimSpace(flagString(cmd, "prefix")),
		}
		if !query.All && query.Prefix == "" {
			query.All = true
		}

		entries, err := backend.ListLedgers(cmd.Context(), query)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		window := gatekeeperPolicy(cfg).Window
		rows := make([]output.LedgerRow, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, output.NewLedgerRow(entry.Key, entry.Ledger, entry.UpdatedAt, now, window))
		}

		rendered, err := output.NewFormatter(format).FormatLedgers(rows)
		if err != nil {
			return err
		}

		sink, err := resolveSink(cmd, format, "ledger.list")
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		return writeRendered(sink, rendered)
	},
}

func init() {
	ledgerListCmd.Flags().Bool("all", false, "List all ledgers")
	ledgerListCmd.Flags().String("prefix", "", "List ledgers whose key has this prefix")
	addOutputFlags(ledgerListCmd)
}
