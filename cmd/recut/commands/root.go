// Package commands implements the CLI command handlers for recut.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/recut/internal/config"
	"github.com/Sumatoshi-tech/recut/internal/observability"
	"github.com/Sumatoshi-tech/recut/pkg/budget"
	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/snapshot"
	"github.com/Sumatoshi-tech/recut/pkg/units"
	"github.com/Sumatoshi-tech/recut/pkg/version"
)

// App carries the lazily initialized runtime shared by the commands.
type App struct {
	configPath  string
	metricsAddr string

	cfg       *config.Config
	budget    budget.Plan
	providers observability.Providers
	metrics   *observability.PipelineMetrics
	debug     *observability.DebugServer
}

// setup loads configuration and initializes observability. Idempotent.
func (a *App) setup() error {
	if a.cfg != nil {
		return nil
	}

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return faults.E(faults.KindInput, "load configuration", err)
	}

	plan, err := budget.Solve(units.MiBToBytes(int64(cfg.MaxResidentMemoryMiB)))
	if err != nil {
		return faults.E(faults.KindResource,
			fmt.Sprintf("memory ceiling %d MiB", cfg.MaxResidentMemoryMiB), err)
	}

	providers, err := observability.Init(observability.Config{
		ServiceName:    "recut",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLP.Endpoint,
		OTLPInsecure:   cfg.OTLP.Insecure,
		LogLevel:       cfg.SlogLevel(),
		LogJSON:        cfg.Log.JSON,
	})
	if err != nil {
		return faults.E(faults.KindInternal, "init observability", err)
	}

	slog.SetDefault(providers.Logger)

	metrics, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return faults.E(faults.KindInternal, "create metrics", err)
	}

	a.cfg = cfg
	a.budget = plan
	a.providers = providers
	a.metrics = metrics

	addr := a.metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}

	if addr != "" {
		debug, debugErr := observability.StartDebugServer(addr, a.storeReachable)
		if debugErr != nil {
			return faults.E(faults.KindResource, "start metrics listener", debugErr)
		}

		a.debug = debug
	}

	return nil
}

// storeReachable is the readiness check for /readyz: the snapshot directory
// must exist or be creatable.
func (a *App) storeReachable(_ context.Context) error {
	return os.MkdirAll(a.cfg.SnapshotDir, 0o750)
}

// openStore opens the configured snapshot store with the diversity gate,
// sized by the solved memory budget.
func (a *App) openStore() (*snapshot.Store, error) {
	var secret []byte
	if a.cfg.SecretKey != "" {
		secret = []byte(a.cfg.SecretKey)
	}

	gate := snapshot.NewDiversityGate(nil,
		snapshot.WithEmbedCacheEntries(a.budget.EmbedCacheEntries))

	return snapshot.Open(snapshot.Options{
		Dir:    a.cfg.SnapshotDir,
		Secret: secret,
		Gate:   gate,
		Logger: a.providers.Logger,
	})
}

// shutdown flushes telemetry and stops the debug listener.
func (a *App) shutdown() {
	ctx := context.Background()

	if a.debug != nil {
		err := a.debug.Shutdown(ctx)
		if err != nil {
			slog.Warn("metrics listener shutdown", slog.Any("error", err))
		}
	}

	if a.providers.Shutdown != nil {
		err := a.providers.Shutdown(ctx)
		if err != nil {
			slog.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}
}

// NewRootCommand wires the recut command tree.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "recut",
		Short:         "Viral re-cut reconstruction for subtitled footage",
		Long:          "recut rewrites an SRT narration for engagement and emits an executable cut plan.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file path (default: .recut.yaml in CWD or $HOME)")
	root.PersistentFlags().StringVar(&app.metricsAddr, "metrics-addr", "", "serve /metrics, /healthz, /readyz on this address")

	root.AddCommand(NewReconstructCommand(app))
	root.AddCommand(NewSnapshotCommand(app))
	root.AddCommand(NewVerifyCommand(app))
	root.AddCommand(NewAuditCommand(app))
	root.AddCommand(NewVersionCommand())

	return root
}

// failureReport is the machine-readable stderr report on non-zero exit.
type failureReport struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	ExitCode int    `json:"exit_code"`
}

// Execute runs the CLI and maps the outcome to an exit code. Cancellation
// exits clean without a report.
func Execute() int {
	app := &App{}
	err := NewRootCommand(app).Execute()

	app.shutdown()

	if err == nil || faults.IsCanceled(err) {
		return faults.ExitOK
	}

	code := faults.ExitCode(err)

	summary := color.New(color.FgRed, color.Bold)
	_, _ = summary.Fprintf(os.Stderr, "recut: %s (%s)\n", err.Error(), faults.KindOf(err))

	report, marshalErr := json.Marshal(failureReport{
		Error:    err.Error(),
		Kind:     faults.KindOf(err).String(),
		ExitCode: code,
	})
	if marshalErr == nil {
		fmt.Fprintln(os.Stderr, string(report))
	}

	return code
}

// NewVersionCommand reports the binary's build identity.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "recut %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
