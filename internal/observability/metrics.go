package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricJobsTotal        = "recut.jobs.total"
	metricStageDuration    = "recut.stage.duration.seconds"
	metricResidentBytes    = "recut.governor.resident.bytes"
	metricValidatorIssues  = "recut.validator.issues.total"
	metricNearDuplicates   = "recut.snapshot.near_duplicates.total"

	attrStage    = "stage"
	attrStatus   = "status"
	attrKind     = "kind"
	attrSeverity = "severity"

	statusOK    = "ok"
	statusError = "error"
)

// stageBucketBoundaries covers 10ms spans up to the 180s per-job ceiling.
var stageBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180}

// PipelineMetrics holds the OTel instruments for the reconstruction
// pipeline.
type PipelineMetrics struct {
	jobsTotal       metric.Int64Counter
	stageDuration   metric.Float64Histogram
	residentBytes   metric.Int64Gauge
	validatorIssues metric.Int64Counter
	nearDuplicates  metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	jobs, err := mt.Int64Counter(metricJobsTotal,
		metric.WithDescription("Total number of reconstruction jobs"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricJobsTotal, err)
	}

	stages, err := mt.Float64Histogram(metricStageDuration,
		metric.WithDescription("Stage duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStageDuration, err)
	}

	resident, err := mt.Int64Gauge(metricResidentBytes,
		metric.WithDescription("Resident backend bytes accounted by the governor"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricResidentBytes, err)
	}

	issues, err := mt.Int64Counter(metricValidatorIssues,
		metric.WithDescription("Validation issues by kind and severity"),
		metric.WithUnit("{issue}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricValidatorIssues, err)
	}

	dups, err := mt.Int64Counter(metricNearDuplicates,
		metric.WithDescription("Snapshots tagged near_duplicate by the diversity gate"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricNearDuplicates, err)
	}

	return &PipelineMetrics{
		jobsTotal:       jobs,
		stageDuration:   stages,
		residentBytes:   resident,
		validatorIssues: issues,
		nearDuplicates:  dups,
	}, nil
}

// RecordJob records a finished job with its outcome.
func (pm *PipelineMetrics) RecordJob(ctx context.Context, err error) {
	pm.jobsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStatus, statusOf(err)),
	))
}

// RecordStage records one completed pipeline stage.
func (pm *PipelineMetrics) RecordStage(ctx context.Context, stage string, duration time.Duration, err error) {
	pm.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrStage, stage),
		attribute.String(attrStatus, statusOf(err)),
	))
}

// RecordResidentBytes records the governor's current resident accounting.
func (pm *PipelineMetrics) RecordResidentBytes(ctx context.Context, bytes int64) {
	pm.residentBytes.Record(ctx, bytes)
}

// RecordValidatorIssue counts one validation issue.
func (pm *PipelineMetrics) RecordValidatorIssue(ctx context.Context, kind, severity string) {
	pm.validatorIssues.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrSeverity, severity),
	))
}

// RecordNearDuplicate counts one diversity-gate tag.
func (pm *PipelineMetrics) RecordNearDuplicate(ctx context.Context) {
	pm.nearDuplicates.Add(ctx, 1)
}

func statusOf(err error) string {
	if err != nil {
		return statusError
	}

	return statusOK
}
