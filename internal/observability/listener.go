package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	debugReadHeaderTimeout = 5 * time.Second
	debugShutdownTimeout   = 5 * time.Second
)

// DebugServer serves /metrics, /healthz, and /readyz on a side listener.
// It is mounted only when a metrics address is configured.
type DebugServer struct {
	srv      *http.Server
	listener net.Listener
	provider *sdkmetric.MeterProvider
	errCh    chan error
}

// StartDebugServer binds addr and starts serving in the background. The
// returned server exposes the meter provider the Prometheus bridge reads
// from.
func StartDebugServer(addr string, ready ...ReadyCheck) (*DebugServer, error) {
	promHandler, provider, err := PrometheusHandler()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promHandler)
	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(ready...))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind debug listener %s: %w", addr, err)
	}

	ds := &DebugServer{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: debugReadHeaderTimeout,
		},
		listener: listener,
		provider: provider,
		errCh:    make(chan error, 1),
	}

	go func() {
		serveErr := ds.srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			ds.errCh <- serveErr
		}

		close(ds.errCh)
	}()

	return ds, nil
}

// Addr returns the bound listener address, useful with ":0" in tests.
func (ds *DebugServer) Addr() string {
	return ds.listener.Addr().String()
}

// MeterProvider returns the provider feeding the /metrics bridge.
func (ds *DebugServer) MeterProvider() *sdkmetric.MeterProvider {
	return ds.provider
}

// Shutdown stops the listener and flushes the bridge provider.
func (ds *DebugServer) Shutdown(ctx context.Context) error {
	deadlineCtx, cancel := context.WithTimeout(ctx, debugShutdownTimeout)
	defer cancel()

	err := ds.srv.Shutdown(deadlineCtx)

	return errors.Join(err, <-ds.errCh, ds.provider.Shutdown(deadlineCtx))
}
