package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/snapshot"
)

// auditOutput extends the store report with the anchor consistency check.
type auditOutput struct {
	snapshot.AuditReport
	OrphanAnchors []string `json:"orphan_anchors,omitempty"`
}

// NewAuditCommand builds the tamper-audit command over the configured
// snapshot store.
func NewAuditCommand(app *App) *cobra.Command {
	var secure bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Re-hash every registered snapshot blob and report tampering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := app.setup()
			if err != nil {
				return err
			}

			if secure && app.cfg.SecretKey == "" {
				return faults.E(faults.KindInput, "audit --secure requires SECRET_KEY", nil)
			}

			store, err := app.openStore()
			if err != nil {
				return err
			}

			out := auditOutput{AuditReport: store.Audit()}

			anchors, err := snapshot.OpenAnchors(app.cfg.AnchorDir)
			if err != nil {
				return err
			}

			orphans, err := anchors.Orphans(store)
			if err != nil {
				return err
			}

			for _, orphan := range orphans {
				out.OrphanAnchors = append(out.OrphanAnchors, orphan.ID)
			}

			// The audit report itself is the one output allowed on failure.
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return faults.E(faults.KindInternal, "encode audit report", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			if !out.OK() {
				return faults.E(faults.KindIntegrity,
					fmt.Sprintf("%d tampered, %d missing, %d unregistered",
						len(out.Tampered), len(out.Missing), len(out.Unregistered)), nil)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&secure, "secure", false, "additionally verify HMAC signatures (requires SECRET_KEY)")

	return cmd
}

// NewVerifyCommand builds the verify command: recompute hashes for the
// snapshot store under an explicit path.
func NewVerifyCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <path>",
		Short: "Recompute content hashes for the store at path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := app.setup()
			if err != nil {
				return err
			}

			store, err := snapshot.Open(snapshot.Options{
				Dir:    args[0],
				Logger: app.providers.Logger,
			})
			if err != nil {
				return err
			}

			report := store.Audit()

			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return faults.E(faults.KindInternal, "encode audit report", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			if !report.OK() {
				return faults.E(faults.KindIntegrity,
					fmt.Sprintf("store at %s has integrity findings", args[0]), nil)
			}

			return nil
		},
	}
}
