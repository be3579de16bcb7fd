/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"fmt"

	"cloud.google.com/go/compute/metadata"
	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/api/option"
)

// TracingConfig selects where spans are exported.
type TracingConfig struct {
	// Endpoint is the OTLP endpoint. When empty and running on GCP, spans
	// go straight to Cloud Trace.
	Endpoint string `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`

	// Disabled turns tracing off entirely.
	Disabled bool `env:"TRACING_DISABLED, default=false"`
}

// SetupTracer installs the global tracer provider and propagators.
// The returned function flushes and stops the provider.
//
//	shutdown, err := metrics.SetupTracer(ctx)
//	if err != nil { ... }
//	defer shutdown()
func SetupTracer(ctx context.Context) (func(), error) {
	var cfg TracingConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("processing tracing environment: %w", err)
	}
	if cfg.Disabled {
		return func() {}, nil
	}

	var projectID string
	if cfg.Endpoint == "" && metadata.OnGCE() {
		projectID, _ = metadata.ProjectIDWithContext(ctx)
	}

	var (
		options []trace.TracerProviderOption
		err     error
	)
	if projectID != "" {
		options, err = gcpTracerOptions(ctx, projectID)
	} else {
		options, err = otlpTracerOptions(ctx)
	}
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(options...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func() {
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			clog.WarnContextf(ctx, "Error shutting down tracer provider: %v", err)
		}
	}, nil
}

func gcpTracerOptions(ctx context.Context, projectID string) ([]trace.TracerProviderOption, error) {
	exporter, err := texporter.New(
		texporter.WithProjectID(projectID),
		// Avoid tracing the trace uploads themselves.
		texporter.WithTraceClientOptions([]option.ClientOption{option.WithTelemetryDisabled()}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cloud trace exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithDetectors(gcp.NewDetector()),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("detecting gcp resource: %w", err)
	}
	return []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithBatcher(exporter),
		trace.WithSampler(trace.AlwaysSample()),
	}, nil
}

func otlpTracerOptions(ctx context.Context) ([]trace.TracerProviderOption, error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating otlp trace exporter: %w", err)
	}
	return []trace.TracerProviderOption{
		trace.WithResource(resource.Default()),
		trace.WithBatcher(exporter),
	}, nil
}
