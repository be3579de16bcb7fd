/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package buildevent

import (
	"sync"
	"time"

	"github.com/chainguard-dev/teamcity-github-status/pkg/changestatus"
)

// Build is a snapshot of a build as sent by the build server.
// It implements changestatus.Build.
type Build struct {
	BuildID         int64                        `json:"id"`
	Name            string                       `json:"full_name"`
	BuildTypeName   string                       `json:"build_type_full_name,omitempty"`
	BuildNumber     string                       `json:"number"`
	DurationSeconds int64                        `json:"duration_seconds,omitempty"`
	Success         bool                         `json:"successful"`
	Text            string                       `json:"status_text,omitempty"`
	BuildStatus     string                       `json:"status,omitempty"`
	Short           changestatus.ShortStatistics `json:"short_statistics"`
	Reasons         []changestatus.Problem       `json:"failure_reasons,omitempty"`
	Stats           changestatus.Statistics      `json:"statistics"`
	BuildCommitters []changestatus.User          `json:"committers,omitempty"`

	mu          sync.Mutex
	comment     string
	commentUser changestatus.User
}

var _ changestatus.Build = (*Build)(nil)

func (b *Build) ID() int64                 { return b.BuildID }
func (b *Build) FullName() string          { return b.Name }
func (b *Build) BuildTypeFullName() string { return b.BuildTypeName }
func (b *Build) Number() string            { return b.BuildNumber }
func (b *Build) Successful() bool          { return b.Success }
func (b *Build) StatusText() string        { return b.Text }

func (b *Build) Duration() time.Duration {
	return time.Duration(b.DurationSeconds) * time.Second
}

// Status parses the reported status text. An empty status is derived from
// Successful.
func (b *Build) Status() changestatus.Status {
	if b.BuildStatus == "" {
		if b.Success {
			return changestatus.StatusNormal
		}
		return changestatus.StatusFailure
	}
	return changestatus.ParseStatus(b.BuildStatus)
}

func (b *Build) ShortStatistics() changestatus.ShortStatistics { return b.Short }
func (b *Build) FailureReasons() []changestatus.Problem        { return b.Reasons }
func (b *Build) Statistics() changestatus.Statistics           { return b.Stats }
func (b *Build) Committers() []changestatus.User               { return b.BuildCommitters }

// SetBuildComment records the comment on the snapshot.
func (b *Build) SetBuildComment(user changestatus.User, comment string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.comment, b.commentUser = comment, user
	return nil
}

// Comment returns the last comment set on the build and who set it.
func (b *Build) Comment() (changestatus.User, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commentUser, b.comment
}
