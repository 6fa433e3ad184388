package cmd

import (
	"github.com/spf13/cobra"

	"github.com/formguard/formguard/internal/core"
	"github.com/formguard/formguard/internal/core/gatekeeper"
	"github.com/formguard/formguard/internal/output"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run the content checks against sample field values",
	Long: `Run the spam heuristics over the given field values and show which
signals each field trips. Nothing is stored and nothing is sent.`,
	Example: `  formguard screen --name "Jane Smith" --email jane@company.com --message "Hello there"
  formguard screen --message "BUY NOW!!! CHEAP PILLS!!!" --output-format json`,
	RunE: runScreen,
}

func runScreen(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	attempt := core.SubmissionAttempt{
		Name:    flagString(cmd, "name"),
		Email:   flagString(cmd, "email"),
		Phone:   flagString(cmd, "phone"),
		Message: flagString(cmd, "message"),
	}

	result := output.NewScreenResult(attempt, gatekeeper.Screen(attempt))
	rendered, err := output.NewFormatter(format).FormatScreen(result)
	if err != nil {
		return err
	}

	sink, err := resolveSink(cmd, format, "screen")
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	return writeRendered(sink, rendered)
}

func flagString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}

// addFieldFlags registers one flag per visible form field.
func addFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "Name field value")
	cmd.Flags().String("email", "", "Email field value")
	cmd.Flags().String("phone", "", "Phone field value")
	cmd.Flags().String("message", "", "Message field value")
}

func init() {
	rootCmd.AddCommand(screenCmd)

	addFieldFlags(screenCmd)
	addOutputFlags(screenCmd)
}
