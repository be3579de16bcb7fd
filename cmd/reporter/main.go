/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/sync/errgroup"

	"github.com/chainguard-dev/teamcity-github-status/pkg/buildevent"
	"github.com/chainguard-dev/teamcity-github-status/pkg/changestatus"
	"github.com/chainguard-dev/teamcity-github-status/pkg/githubapi"
	"github.com/chainguard-dev/teamcity-github-status/pkg/metrics"
	"github.com/chainguard-dev/teamcity-github-status/pkg/workqueue"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var env envConfig
	if err := envconfig.Process(ctx, &env); err != nil {
		clog.FatalContextf(ctx, "Failed to process configuration: %v", err)
	}

	if err := metrics.SetupProfiler(ctx); err != nil {
		clog.FatalContextf(ctx, "Failed to set up profiling: %v", err)
	}
	shutdown, err := metrics.SetupTracer(ctx)
	if err != nil {
		clog.FatalContextf(ctx, "Failed to set up tracing: %v", err)
	}
	defer shutdown()

	pool := workqueue.NewPool(env.Concurrency, env.Backlog, workqueue.WithName("github-status"))

	handler, err := changestatus.NewHandler(ctx, env.GitHub.descriptor(), &githubapi.Factory{}, pool,
		buildevent.Links{RootURL: env.RootURL})
	if err != nil {
		clog.FatalContextf(ctx, "Invalid GitHub status configuration: %v", err)
	}
	clog.InfoContextf(ctx, "Configured %s", handler)

	p, err := cehttp.New(
		cehttp.WithPort(env.Port),
		cehttp.WithMiddleware(func(next http.Handler) http.Handler {
			return metrics.Handler("build-events", next)
		}),
	)
	if err != nil {
		clog.FatalContextf(ctx, "Failed to create CloudEvents HTTP transport: %v", err)
	}
	c, err := cloudevents.NewClient(p)
	if err != nil {
		clog.FatalContextf(ctx, "Failed to create CloudEvents client: %v", err)
	}
	receiver := buildevent.NewReceiver(handler)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return metrics.ServeMetrics(ctx)
	})
	eg.Go(func() error {
		return pool.Run(ctx)
	})
	eg.Go(func() error {
		clog.InfoContextf(ctx, "Listening for build events on port %d", env.Port)
		return c.StartReceiver(ctx, receiver.Handle)
	})

	if err := eg.Wait(); err != nil {
		clog.FatalContextf(ctx, "Reporter stopped: %v", err)
	}
	clog.InfoContext(ctx, "Reporter stopped")
}
