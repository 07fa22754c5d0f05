package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/recut/pkg/backend"
	"github.com/Sumatoshi-tech/recut/pkg/checkpoint"
	"github.com/Sumatoshi-tech/recut/pkg/engine"
	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/framework"
	"github.com/Sumatoshi-tech/recut/pkg/governor"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
	"github.com/Sumatoshi-tech/recut/pkg/units"
	"github.com/Sumatoshi-tech/recut/pkg/validators"
)

// langAuto selects language detection.
const langAuto = "auto"

// reconstructOptions hold the reconstruct command flags.
type reconstructOptions struct {
	lang    string
	style   string
	seed    int64
	plot    string
	format  string
	project string
}

// NewReconstructCommand builds the reconstruct command: SRT in, CutPlan
// JSON on stdout.
func NewReconstructCommand(app *App) *cobra.Command {
	opts := &reconstructOptions{}

	cmd := &cobra.Command{
		Use:   "reconstruct <file.srt>",
		Short: "Rewrite an SRT narration and emit the cut plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := app.setup()
			if err != nil {
				return err
			}

			return runReconstruct(cmd, app, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.lang, "lang", langAuto, "narration language: auto, zh, or en")
	cmd.Flags().StringVar(&opts.style, "style", string(engine.StyleViral), "rewrite style: viral, formal, or minimal")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "seed for deterministic phrase selection")
	cmd.Flags().StringVar(&opts.plot, "plot", "", "write the emotion-curve chart to this HTML file")
	cmd.Flags().StringVar(&opts.format, "format", validators.FormatJSON, "validation report format: json or yaml")
	cmd.Flags().StringVar(&opts.project, "project", "", "project name stamped on the plan (default: the input basename)")

	return cmd
}

func runReconstruct(cmd *cobra.Command, app *App, srtPath string, opts *reconstructOptions) error {
	lang, err := parseLang(opts.lang)
	if err != nil {
		return err
	}

	style := engine.Style(opts.style)
	if !style.Valid() {
		return faults.E(faults.KindInput, fmt.Sprintf("unknown style %q", opts.style), nil)
	}

	store, err := app.openStore()
	if err != nil {
		return err
	}

	gov := governor.New(governor.Config{
		CeilingBytes: units.MiBToBytes(int64(app.cfg.MaxResidentMemoryMiB)),
		Registry:     backend.NewRegistry(),
		Logger:       app.providers.Logger,
	})
	defer gov.Close()

	ckptDir := ""

	if app.cfg.Checkpoint.Enabled {
		ckptDir = app.cfg.Checkpoint.Dir
		if ckptDir == "" {
			ckptDir = checkpoint.DefaultDir()
		}
	}

	coord := framework.New(framework.Config{
		Workers:       app.cfg.JobWorkers,
		Governor:      gov,
		Store:         store,
		CheckpointDir: ckptDir,
		Resume:        app.cfg.Checkpoint.Resume,
		Metrics:       app.metrics,
		Tracer:        app.providers.Tracer,
		Logger:        app.providers.Logger,
	})

	project := opts.project
	if project == "" {
		project = baseName(srtPath)
	}

	results, err := coord.Run(cmd.Context(), []framework.Job{{
		SRTPath:     srtPath,
		Lang:        lang,
		Style:       style,
		Seed:        opts.seed,
		ProjectName: project,
	}})
	if err != nil {
		return err
	}

	result := results[0]

	// The validation report goes to stderr in the requested format; stdout
	// stays plan-only.
	if len(result.Validation.Reports) > 0 && result.Validation.IssueCount > 0 {
		report, reportErr := result.Validation.MarshalFormat(opts.format)
		if reportErr != nil {
			return reportErr
		}

		fmt.Fprintln(os.Stderr, string(report))
	}

	if result.Err != nil {
		return result.Err
	}

	if opts.plot != "" {
		plotErr := writePlot(opts.plot, result)
		if plotErr != nil {
			return plotErr
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(result.PlanJSON))

	return nil
}

func writePlot(path string, result framework.JobResult) error {
	f, err := os.Create(path)
	if err != nil {
		return faults.E(faults.KindInput, fmt.Sprintf("create %s", path), err)
	}

	renderErr := engine.RenderCurve(f, result.Features)
	closeErr := f.Close()

	if renderErr != nil {
		return faults.E(faults.KindInternal, "render curve", renderErr)
	}

	if closeErr != nil {
		return faults.E(faults.KindResource, fmt.Sprintf("write %s", path), closeErr)
	}

	return nil
}

func parseLang(name string) (timeline.Language, error) {
	switch name {
	case langAuto, "":
		return "", nil
	case string(timeline.LangZH):
		return timeline.LangZH, nil
	case string(timeline.LangEN):
		return timeline.LangEN, nil
	default:
		return "", faults.E(faults.KindInput, fmt.Sprintf("unknown language %q", name), nil)
	}
}

func baseName(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}
