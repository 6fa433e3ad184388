package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/formguard/formguard/internal/core"
	"github.com/formguard/formguard/internal/core/relay"
	"github.com/formguard/formguard/internal/form"
	"github.com/formguard/formguard/internal/observability"
	"github.com/formguard/formguard/internal/output"
)

var submitFlagBindings = map[string]string{
	"store.driver":           "store-driver",
	"contact.relay_base_url": "relay-url",
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Run one submission through the full gatekeeper pipeline",
	Long: `Open a form, fill it with the given values and submit it after the
given elapsed time. Accepted submissions are sent to the configured relay
unless --dry-run is set. The client's ledger is read from and written to
the configured store.`,
	Example: `  formguard submit --name "Jane Smith" --email jane@company.com --message "Hello there" --dry-run
  formguard submit --client 203.0.113.7 --elapsed 1s --message "too quick" --store-driver memory`,
	RunE: runSubmit,
}

// dryRunSender accepts every message without contacting the relay.
type dryRunSender struct{}

func (dryRunSender) Send(ctx context.Context, msg core.ContactMessage) (*relay.Response, error) {
	return &relay.Response{StatusCode: 200, Message: "dry run"}, nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, submitFlagBindings)
	if err != nil {
		return err
	}

	elapsed, _ := cmd.Flags().GetDuration("elapsed")
	if elapsed < 0 {
		return fmt.Errorf("--elapsed must not be negative")
	}
	clientKey := strings.TrimSpace(flagString(cmd, "client"))
	if clientKey == "" {
		clientKey = "cli"
	}

	backend, err := openBackend(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer backend.Close() // nolint:errcheck // best-effort cleanup

	var sender form.Sender = newRelayClient(cfg)
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		sender = dryRunSender{}
	}

	// The form is opened elapsed ago and submitted now.
	current := time.Now().UTC().Add(-elapsed)
	clock := func() time.Time { return current }
	deps := newFormDeps(cfg, backend, sender, observability.CLILogger, clock)

	session := form.NewSession(uuid.NewString(), clientKey, deps)
	current = current.Add(elapsed)

	fields := form.Fields{
		Name:     flagString(cmd, "name"),
		Email:    flagString(cmd, "email"),
		Phone:    flagString(cmd, "phone"),
		Message:  flagString(cmd, "message"),
		Honeypot: flagString(cmd, "honeypot"),
	}
	state := session.State()
	fields.DecoyA = state.Fields.DecoyA
	fields.DecoyB = state.Fields.DecoyB
	if cmd.Flags().Changed("decoy-a") {
		fields.DecoyA = flagString(cmd, "decoy-a")
	}
	if cmd.Flags().Changed("decoy-b") {
		fields.DecoyB = flagString(cmd, "decoy-b")
	}

	outcome, err := session.SubmitFields(cmd.Context(), fields)
	if err != nil {
		return err
	}

	result := &output.OutcomeResult{
		Status:  string(outcome.Status),
		Message: outcome.Message,
		Stage:   string(outcome.Stage),
	}
	rendered, err := output.NewFormatter(format).FormatOutcome(result)
	if err != nil {
		return err
	}

	sink, err := resolveSink(cmd, format, "submit")
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	return writeRendered(sink, rendered)
}

func addSubmitFlags(cmd *cobra.Command) {
	addFieldFlags(cmd)
	cmd.Flags().String("honeypot", "", "Hidden website_url field value")
	cmd.Flags().String("decoy-a", "", "Override the first decoy field (default: configured seed)")
	cmd.Flags().String("decoy-b", "", "Override the second decoy field (default: configured seed)")
	cmd.Flags().String("client", "cli", "Client key the ledger is kept under")
	cmd.Flags().Duration("elapsed", 10*time.Second, "Time between opening and submitting the form")
	cmd.Flags().Bool("dry-run", false, "Accept without contacting the relay")
	cmd.Flags().String("store-driver", "libsql", "ledger store: libsql|redis|memory")
	cmd.Flags().String("relay-url", "", "Relay base URL (overrides config)")
	addOutputFlags(cmd)
}

func init() {
	rootCmd.AddCommand(submitCmd)
	addSubmitFlags(submitCmd)
}
