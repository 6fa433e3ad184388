package cmd

import "github.com/spf13/cobra"

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and reset stored submission ledgers",
}

var ledgerFlagBindings = map[string]string{
	"store.driver": "store-driver",
}

func init() {
	ledgerCmd.PersistentFlags().String("store-driver", "libsql", "ledger store: libsql|redis|memory")
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerResetCmd)
	rootCmd.AddCommand(ledgerCmd)
}
