package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

func TestInit_NoEndpointUsesNoopProviders(t *testing.T) {
	providers, err := Init(DefaultConfig())
	require.NoError(t, err)

	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Logger)
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestTracingHandler_InjectsServiceAndTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	handler := NewTracingHandler(slog.NewJSONHandler(&buf, nil), "recut", "dev")
	logger := slog.New(handler)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01},
		SpanID:     trace.SpanID{0x02},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "stage finished", slog.String("stage", "engine"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "recut", record["service"])
	assert.Equal(t, "dev", record["env"])
	assert.Equal(t, sc.TraceID().String(), record["trace_id"])
	assert.Equal(t, sc.SpanID().String(), record["span_id"])
}

func TestNewPipelineMetrics_RecordsWithoutError(t *testing.T) {
	t.Parallel()

	pm, err := NewPipelineMetrics(noopmetric.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	pm.RecordJob(ctx, nil)
	pm.RecordStage(ctx, "engine", 120*time.Millisecond, nil)
	pm.RecordResidentBytes(ctx, 1<<30)
	pm.RecordValidatorIssue(ctx, "scene_overlap", "high")
	pm.RecordNearDuplicate(ctx)
}

func TestHealthHandler_AlwaysOK(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyHandler_FailingCheckReports503(t *testing.T) {
	t.Parallel()

	failing := func(context.Context) error { return assert.AnError }

	rec := httptest.NewRecorder()
	ReadyHandler(failing).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestDebugServer_ServesMetricsAndShutsDown(t *testing.T) {
	t.Parallel()

	ds, err := StartDebugServer("127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get("http://" + ds.Addr() + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, ds.Shutdown(context.Background()))
}
