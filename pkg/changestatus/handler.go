/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changestatus

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/teamcity-github-status/pkg/workqueue"
)

// Executor runs tasks asynchronously. *workqueue.Pool implements it.
type Executor interface {
	Queue(ctx context.Context, task workqueue.Task) error
}

// Handler schedules status reports for one configured feature.
type Handler struct {
	feature  Feature
	client   Client
	links    WebLinks
	executor Executor
	logger   *clog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used by the handler and its tasks.
func WithLogger(l *clog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler validates the feature and opens its client. Configuration
// problems are returned here, never from scheduled tasks.
func NewHandler(ctx context.Context, desc FeatureDescriptor, factory ClientFactory, executor Executor, links WebLinks, opts ...Option) (*Handler, error) {
	feature, err := ParseFeature(desc)
	if err != nil {
		return nil, err
	}
	client, err := feature.Open(factory)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		feature:  *feature,
		client:   client,
		links:    links,
		executor: executor,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = clog.FromContext(ctx)
	}
	h.logger = h.logger.With("repository", feature.Target.String())
	return h, nil
}

// Target returns the repository this handler reports to.
func (h *Handler) Target() Target {
	return h.feature.Target
}

// ShouldReportOnStart reports whether build starts are reported.
func (h *Handler) ShouldReportOnStart() bool {
	return h.feature.ReportOn.OnStart()
}

// ShouldReportOnFinish reports whether build completions are reported.
func (h *Handler) ShouldReportOnFinish() bool {
	return h.feature.ReportOn.OnFinish()
}

// ScheduleChangeStarted queues a pending status for a started build.
func (h *Handler) ScheduleChangeStarted(ctx context.Context, version RepositoryVersion, b Build) {
	h.schedule(ctx, version, b, "Started - TeamCity Build "+b.FullName(), Pending)
}

// ScheduleChangeCompleted queues the final status for a finished build.
func (h *Handler) ScheduleChangeCompleted(ctx context.Context, version RepositoryVersion, b Build) {
	state := Error
	if b.Successful() {
		state = Success
	}
	h.schedule(ctx, version, b, b.StatusText()+" - TeamCity Build "+b.FullName(), state)
}

func (h *Handler) schedule(ctx context.Context, version RepositoryVersion, b Build, message string, state ChangeState) {
	log := h.logger.With(
		"hash", version.Version,
		"branch", version.VCSBranch,
		"buildId", b.ID(),
		"status", state,
	)
	log.Info("Scheduling GitHub status update")

	task := DispatchTask{
		Client:       h.client,
		Links:        h.links,
		Target:       h.feature.Target,
		AddComments:  h.feature.AddComments,
		UseGuestURLs: h.feature.UseGuestURLs,
		Version:      version,
		Build:        b,
		Message:      message,
		State:        state,
		logger:       h.logger,
	}
	if err := h.executor.Queue(ctx, task); err != nil {
		log.With("error", err).Warn("Dropped GitHub status update")
	}
}

// String implements fmt.Stringer.
func (h *Handler) String() string {
	return fmt.Sprintf("github status handler for %s (report on %s)", h.feature.Target, h.feature.ReportOn)
}
