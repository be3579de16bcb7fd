/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package buildevent

import (
	"context"
	"errors"

	"github.com/chainguard-dev/clog"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/protocol"

	"github.com/chainguard-dev/teamcity-github-status/pkg/changestatus"
)

// CloudEvent types sent by the build server.
const (
	StartedEventType  = "dev.teamcity.build.started"
	FinishedEventType = "dev.teamcity.build.finished"
)

// Payload is the data of a build event.
type Payload struct {
	Version changestatus.RepositoryVersion `json:"version"`
	Build   *Build                         `json:"build"`
}

func (p *Payload) validate() error {
	if p.Build == nil {
		return errors.New("missing build")
	}
	if p.Version.Version == "" {
		return errors.New("missing version")
	}
	return nil
}

// Scheduler is the part of changestatus.Handler the receiver drives.
type Scheduler interface {
	ShouldReportOnStart() bool
	ShouldReportOnFinish() bool
	ScheduleChangeStarted(ctx context.Context, version changestatus.RepositoryVersion, b changestatus.Build)
	ScheduleChangeCompleted(ctx context.Context, version changestatus.RepositoryVersion, b changestatus.Build)
}

var _ Scheduler = (*changestatus.Handler)(nil)

// Receiver turns build events into scheduled status reports.
type Receiver struct {
	scheduler Scheduler
}

// NewReceiver returns a receiver scheduling on s.
func NewReceiver(s Scheduler) *Receiver {
	return &Receiver{scheduler: s}
}

// Handle is a cloudevents receiver function. Events that cannot be decoded
// are rejected; everything else is acknowledged, since reporting happens
// asynchronously.
func (r *Receiver) Handle(ctx context.Context, event cloudevents.Event) protocol.Result {
	log := clog.FromContext(ctx).With(
		"event_id", event.ID(),
		"event_type", event.Type(),
		"event_source", event.Source(),
	)

	var started bool
	switch event.Type() {
	case StartedEventType:
		started = true
	case FinishedEventType:
	default:
		log.Debug("Ignoring event of unknown type")
		return nil
	}

	var p Payload
	if err := event.DataAs(&p); err != nil {
		log.With("error", err).Warn("Failed to decode build event")
		return protocol.NewReceipt(false, "decoding %s event: %v", event.Type(), err)
	}
	if err := p.validate(); err != nil {
		log.With("error", err).Warn("Invalid build event")
		return protocol.NewReceipt(false, "invalid %s event: %v", event.Type(), err)
	}

	log = log.With("buildId", p.Build.ID(), "hash", p.Version.Version, "branch", p.Version.VCSBranch)
	ctx = clog.WithLogger(ctx, log)

	if started {
		if !r.scheduler.ShouldReportOnStart() {
			log.Debug("Build starts are not reported")
			return nil
		}
		r.scheduler.ScheduleChangeStarted(ctx, p.Version, p.Build)
		return nil
	}

	if !r.scheduler.ShouldReportOnFinish() {
		log.Debug("Build completions are not reported")
		return nil
	}
	r.scheduler.ScheduleChangeCompleted(ctx, p.Version, p.Build)
	return nil
}
