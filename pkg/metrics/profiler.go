/*
Copyright 2024 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"fmt"

	"cloud.google.com/go/profiler"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
)

// ProfilerConfig controls the Cloud Profiler agent.
type ProfilerConfig struct {
	Enabled bool   `env:"ENABLE_PROFILER, default=false"`
	Service string `env:"K_SERVICE, default=teamcity-github-status"`
	Version string `env:"K_REVISION"`
}

// SetupProfiler starts the Cloud Profiler agent when ENABLE_PROFILER is set.
func SetupProfiler(ctx context.Context) error {
	var cfg ProfilerConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return fmt.Errorf("processing profiler environment: %w", err)
	}
	if !cfg.Enabled {
		return nil
	}
	if err := profiler.Start(profiler.Config{
		Service:        cfg.Service,
		ServiceVersion: cfg.Version,
	}); err != nil {
		return fmt.Errorf("starting profiler: %w", err)
	}
	clog.InfoContextf(ctx, "Started profiler for %s", cfg.Service)
	return nil
}
