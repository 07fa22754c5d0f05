// Package framework provides the coordinator that drives reconstruction
// jobs through the pipeline stages: ingest, backend acquisition, rewrite,
// plan layout, validation, and snapshot. Jobs run on a bounded worker pool;
// stages within one job are strictly ordered, jobs never order against each
// other.
package framework

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/recut/internal/observability"
	"github.com/Sumatoshi-tech/recut/pkg/backend"
	"github.com/Sumatoshi-tech/recut/pkg/checkpoint"
	"github.com/Sumatoshi-tech/recut/pkg/engine"
	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/governor"
	"github.com/Sumatoshi-tech/recut/pkg/planner"
	"github.com/Sumatoshi-tech/recut/pkg/snapshot"
	"github.com/Sumatoshi-tech/recut/pkg/srt"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
	"github.com/Sumatoshi-tech/recut/pkg/validators"
)

// Pool and timing defaults.
const (
	// DefaultJobTimeout bounds one job end-to-end.
	DefaultJobTimeout = 180 * time.Second

	// DefaultStartupTimeout bounds each backend acquisition attempt.
	DefaultStartupTimeout = 5 * time.Second

	// maxAcquireRetries bounds retries of retriable resource faults.
	maxAcquireRetries = 4

	// backoffBase is the first retry delay; each retry doubles it.
	backoffBase = 250 * time.Millisecond
)

// engineStage is the checkpoint key for the rewrite output.
const engineStage = "engine"

// Job is one reconstruction request.
type Job struct {
	// ID identifies the job in logs and traces. Empty gets a fresh uuid.
	ID string

	// SRTPath is the subtitle file to reconstruct.
	SRTPath string

	// Lang forces the narration language; empty means detect.
	Lang timeline.Language

	// Style selects the rewrite style; empty means viral.
	Style engine.Style

	// Seed drives every stochastic pick.
	Seed int64

	// ProjectName labels the emitted plan.
	ProjectName string
}

func (j Job) style() engine.Style {
	if j.Style == "" {
		return engine.StyleViral
	}

	return j.Style
}

// JobResult carries everything a finished job produced. Err is the job's
// terminal error; partial fields before the failing stage stay populated.
type JobResult struct {
	Job        Job
	Timeline   timeline.Timeline
	Rewritten  timeline.RewrittenTimeline
	Plan       planner.CutPlan
	PlanJSON   []byte
	Features   analysis.Features
	Score      engine.Score
	Fallback   bool
	Validation validators.ValidationReport
	Snapshot   snapshot.Node
	Resumed    bool
	Err        error
}

// Config configures a Coordinator.
type Config struct {
	// Workers is the pool size. Zero means one.
	Workers int

	// Governor arbitrates backend residency. Required.
	Governor *governor.Governor

	// Store receives the plan snapshot. Nil skips the snapshot stage.
	Store *snapshot.Store

	// CheckpointDir is the base directory for stage checkpoints. Empty
	// disables checkpointing.
	CheckpointDir string

	// Resume reuses a prior engine-stage checkpoint for the same
	// input and parameters.
	Resume bool

	// Metrics receives job and stage instruments. Nil discards them.
	Metrics *observability.PipelineMetrics

	// Tracer opens one span per stage. Nil disables spans.
	Tracer trace.Tracer

	// Logger defaults to discard.
	Logger *slog.Logger

	// JobTimeout and StartupTimeout override the defaults when positive.
	JobTimeout     time.Duration
	StartupTimeout time.Duration
}

// Coordinator runs reconstruction jobs on a bounded worker pool.
type Coordinator struct {
	cfg Config
}

// New builds a Coordinator. The governor must not be nil.
func New(cfg Config) *Coordinator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}

	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = DefaultStartupTimeout
	}

	return &Coordinator{cfg: cfg}
}

// Run executes the jobs FIFO on the worker pool and returns one result per
// job, in input order. Job failures land in their result; Run itself fails
// only when the whole batch is canceled.
func (c *Coordinator) Run(ctx context.Context, jobs []Job) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.cfg.Workers)

	for i, job := range jobs {
		if job.ID == "" {
			job.ID = uuid.NewString()
		}

		group.Go(func() error {
			results[i] = c.runJob(groupCtx, job)

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return results, fmt.Errorf("worker pool: %w", err)
	}

	if ctx.Err() != nil {
		return results, ctx.Err()
	}

	return results, nil
}

// runJob drives one job through the ordered stages.
func (c *Coordinator) runJob(parent context.Context, job Job) JobResult {
	ctx, cancel := context.WithTimeout(parent, c.cfg.JobTimeout)
	defer cancel()

	result := JobResult{Job: job}
	logger := c.cfg.Logger.With(slog.String("job", job.ID))

	result.Err = c.stage(ctx, "ingest", func(stageCtx context.Context) error {
		return c.ingest(stageCtx, job, &result)
	})

	if result.Err == nil {
		result.Err = c.stage(ctx, "engine", func(stageCtx context.Context) error {
			return c.rewrite(stageCtx, job, logger, &result)
		})
	}

	c.sampleMemory(ctx)

	if result.Err == nil {
		result.Err = c.stage(ctx, "plan", func(stageCtx context.Context) error {
			return c.plan(job, &result)
		})
	}

	if result.Err == nil {
		result.Err = c.stage(ctx, "validate", func(stageCtx context.Context) error {
			return c.validate(stageCtx, &result)
		})
	}

	if result.Err == nil && c.cfg.Store != nil {
		result.Err = c.stage(ctx, "snapshot", func(stageCtx context.Context) error {
			return c.takeSnapshot(stageCtx, job, &result)
		})
	}

	c.sampleMemory(ctx)

	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordJob(ctx, result.Err)
	}

	if result.Err != nil && !faults.IsCanceled(result.Err) {
		logger.Error("job failed",
			slog.String("kind", faults.KindOf(result.Err).String()),
			slog.Any("error", result.Err))
	}

	return result
}

// stage runs fn under a span and records its duration.
func (c *Coordinator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.cfg.Tracer != nil {
		var span trace.Span

		ctx, span = c.cfg.Tracer.Start(ctx, "stage."+name)
		defer span.End()
	}

	start := time.Now()
	err := fn(ctx)

	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordStage(ctx, name, time.Since(start), err)
	}

	return err
}

// ingest reads and decodes the subtitle file and settles the language.
func (c *Coordinator) ingest(_ context.Context, job Job, result *JobResult) error {
	data, err := os.ReadFile(job.SRTPath)
	if err != nil {
		return faults.E(faults.KindInput, fmt.Sprintf("read %s", job.SRTPath), err)
	}

	tl, err := srt.Decode(data)
	if err != nil {
		return faults.E(faults.KindInput, fmt.Sprintf("decode %s", job.SRTPath), err)
	}

	if job.Lang != "" {
		tl.Language = job.Lang
	}

	result.Timeline = tl

	return nil
}

// rewrite runs the engine under a backend lease, resuming from a prior
// checkpoint when one matches the input and parameters.
func (c *Coordinator) rewrite(ctx context.Context, job Job, logger *slog.Logger, result *JobResult) error {
	var mgr *checkpoint.Manager

	if c.cfg.CheckpointDir != "" {
		mgr = checkpoint.NewManager(c.cfg.CheckpointDir, checkpoint.Params{
			Fingerprint: result.Timeline.Fingerprint,
			Style:       string(job.style()),
			Seed:        job.Seed,
		})
	}

	var res engine.Result

	if mgr != nil && c.cfg.Resume && mgr.LoadStage(engineStage, &res) {
		logger.Info("resumed from checkpoint", slog.String("stage", engineStage))

		result.Resumed = true
		c.applyEngineResult(res, result)

		return nil
	}

	be, lease, err := c.acquireBackend(ctx, result.Timeline.Language)
	if err != nil {
		return err
	}
	defer lease.Release()

	res, err = engine.Reconstruct(ctx, result.Timeline, engine.Options{
		Style:    job.style(),
		Seed:     job.Seed,
		Analysis: analysis.Params{Backend: be},
	})
	if err != nil {
		return faults.E(faults.KindInternal, "reconstruct", err)
	}

	if mgr != nil {
		saveErr := mgr.SaveStage(engineStage, res)
		if saveErr != nil {
			logger.Warn("checkpoint write failed", slog.Any("error", saveErr))
		}
	}

	c.applyEngineResult(res, result)

	return nil
}

func (c *Coordinator) applyEngineResult(res engine.Result, result *JobResult) {
	result.Features = res.Features
	result.Score = res.Score
	result.Fallback = res.Fallback
	result.Rewritten = res.Rewritten
}

// acquireBackend leases a backend, retrying retriable resource faults with
// exponential backoff. Each attempt is bounded by the startup timeout.
func (c *Coordinator) acquireBackend(
	ctx context.Context, lang timeline.Language,
) (be backend.GenerationBackend, lease *governor.Lease, err error) {
	delay := backoffBase

	for attempt := 0; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.StartupTimeout)
		be, lease, err = c.cfg.Governor.Acquire(attemptCtx, lang)

		cancel()

		if err == nil {
			return be, lease, nil
		}

		if !faults.IsRetriable(err) || attempt >= maxAcquireRetries {
			return nil, nil, err
		}

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
	}
}

// plan lays the rewritten timeline onto the source and emits the plan JSON.
func (c *Coordinator) plan(job Job, result *JobResult) error {
	plan, err := planner.Build(result.Timeline, result.Rewritten, planner.Options{
		ProjectName: job.ProjectName,
	})
	if err != nil {
		return faults.E(faults.KindInternal, "plan layout", err)
	}

	data, err := planner.EmitJSON(plan)
	if err != nil {
		return faults.E(faults.KindInternal, "emit plan", err)
	}

	result.Plan = plan
	result.PlanJSON = data

	return nil
}

// validate fans out the logic checks and classifies rejection.
func (c *Coordinator) validate(ctx context.Context, result *JobResult) error {
	report, err := validators.Run(ctx, validators.Input{
		Plan:        result.Plan,
		Rewritten:   result.Rewritten,
		Annotations: analysis.Annotate(result.Features, result.Timeline),
		Rules:       validators.DefaultRules(),
	})
	if err != nil {
		return err
	}

	result.Validation = report

	if c.cfg.Metrics != nil {
		for _, rep := range report.Reports {
			for _, issue := range rep.Issues {
				c.cfg.Metrics.RecordValidatorIssue(ctx, issue.Kind, string(issue.Severity))
			}
		}
	}

	if !report.Accepted {
		return faults.E(faults.KindValidation,
			fmt.Sprintf("%d critical issues", report.CriticalCount), nil)
	}

	return nil
}

// takeSnapshot stores the emitted plan in the version tree.
func (c *Coordinator) takeSnapshot(ctx context.Context, job Job, result *JobResult) error {
	node, err := c.cfg.Store.Take(ctx, string(result.PlanJSON), "reconstruct", snapshot.KindLinear,
		snapshot.TakeOptions{Description: job.ProjectName})
	if err != nil {
		return err
	}

	result.Snapshot = node

	if c.cfg.Metrics != nil && node.Tagged(snapshot.TagNearDuplicate) {
		c.cfg.Metrics.RecordNearDuplicate(ctx)
	}

	return nil
}

// sampleMemory feeds the governor's RSS tracker and the resident gauge
// between stages.
func (c *Coordinator) sampleMemory(ctx context.Context) {
	if c.cfg.Governor == nil {
		return
	}

	c.cfg.Governor.SampleRSS()

	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordResidentBytes(ctx, c.cfg.Governor.UsageBytes())
	}
}
