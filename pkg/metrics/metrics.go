/*
Copyright 2022 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// CeTypeHeader is the binary mode CloudEvents type header.
const CeTypeHeader string = "ce-type"

var env = envconfig.MustProcess(context.Background(), &struct {
	KnativeServiceName       string `env:"K_SERVICE, default=unknown"`
	KnativeConfigurationName string `env:"K_CONFIGURATION, default=unknown"`
	KnativeRevisionName      string `env:"K_REVISION, default=unknown"`
}{})

// Config controls the metrics server.
type Config struct {
	MetricsPort int  `env:"METRICS_PORT, default=2112"`
	EnablePprof bool `env:"ENABLE_PPROF, default=false"`
}

// ServeMetrics serves /metrics on METRICS_PORT until ctx is cancelled.
func ServeMetrics(ctx context.Context) error {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return fmt.Errorf("processing metrics environment: %w", err)
	}
	return Serve(ctx, cfg)
}

// Serve serves /metrics, and pprof if enabled, until ctx is cancelled.
func Serve(ctx context.Context, cfg Config) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           newMux(ctx, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	clog.InfoContextf(ctx, "Serving metrics on %s", srv.Addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen and serve for http /metrics: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down metrics server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newMux(ctx context.Context, cfg Config) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		clog.InfoContext(ctx, "Registered handlers for /debug/pprof")
	}
	return mux
}

var (
	eventsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_event_requests_in_flight",
			Help: "The number of build event deliveries currently being handled.",
		},
		[]string{"handler", "service_name", "configuration_name", "revision_name"},
	)
	eventLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "build_event_request_duration_seconds",
			Help:    "The time taken to accept a build event delivery.",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1},
		},
		[]string{"handler", "method", "event_type", "service_name", "configuration_name", "revision_name"},
	)
	eventDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "build_event_requests_total",
			Help: "The number of build event deliveries by response code and event type.",
		},
		[]string{"handler", "method", "code", "event_type", "service_name", "configuration_name", "revision_name"},
	)
)

type eventTypeKey struct{}

// eventType reads the CloudEvent type stored by Handler.
func eventType(ctx context.Context) string {
	if t, ok := ctx.Value(eventTypeKey{}).(string); ok && t != "" {
		return t
	}
	return "unknown"
}

// Handler wraps a build event endpoint with delivery metrics and tracing.
// Deliveries are labelled with their binary mode CloudEvent type.
func Handler(name string, handler http.Handler) http.Handler {
	labels := prometheus.Labels{
		"handler":            name,
		"service_name":       env.KnativeServiceName,
		"configuration_name": env.KnativeConfigurationName,
		"revision_name":      env.KnativeRevisionName,
	}
	byType := promhttp.WithLabelFromCtx("event_type", eventType)

	instrumented := promhttp.InstrumentHandlerInFlight(
		eventsInFlight.With(labels),
		promhttp.InstrumentHandlerDuration(
			eventLatency.MustCurryWith(labels),
			promhttp.InstrumentHandlerCounter(
				eventDeliveries.MustCurryWith(labels),
				otelhttp.NewHandler(handler, name),
				byType,
			),
			byType,
		),
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), eventTypeKey{}, r.Header.Get(CeTypeHeader))
		instrumented.ServeHTTP(w, r.WithContext(ctx))
	})
}
