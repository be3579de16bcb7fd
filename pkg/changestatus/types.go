/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changestatus

import (
	"fmt"
	"strings"
)

// RepositoryVersion is the VCS revision a build ran against.
type RepositoryVersion struct {
	// Version is the raw revision (usually a commit SHA).
	Version string `json:"version"`

	// VCSBranch is the branch or ref the revision came from, if known.
	VCSBranch string `json:"vcs_branch,omitempty"`
}

// ChangeState is the state reported to the commit status API.
type ChangeState string

const (
	Pending ChangeState = "pending"
	Success ChangeState = "success"
	Error   ChangeState = "error"
)

// String implements fmt.Stringer.
func (s ChangeState) String() string {
	return string(s)
}

// ReportEvent selects which build phases get reported.
type ReportEvent int

const (
	OnStartAndFinish ReportEvent = iota
	OnStart
	OnFinish
	Never
)

// ParseReportEvent parses the report_on feature parameter.
// An empty value reports on both phases.
func ParseReportEvent(s string) (ReportEvent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return OnStartAndFinish, nil
	case "start":
		return OnStart, nil
	case "finish":
		return OnFinish, nil
	case "never":
		return Never, nil
	default:
		return Never, fmt.Errorf("unknown report event %q (expected start, finish, both or never)", s)
	}
}

// String implements fmt.Stringer.
func (e ReportEvent) String() string {
	switch e {
	case OnStartAndFinish:
		return "both"
	case OnStart:
		return "start"
	case OnFinish:
		return "finish"
	case Never:
		return "never"
	default:
		return fmt.Sprintf("ReportEvent(%d)", int(e))
	}
}

// OnStart reports whether builds are reported when they start.
func (e ReportEvent) OnStart() bool {
	return e == OnStartAndFinish || e == OnStart
}

// OnFinish reports whether builds are reported when they finish.
func (e ReportEvent) OnFinish() bool {
	return e == OnStartAndFinish || e == OnFinish
}

// Target identifies the repository statuses are reported to.
type Target struct {
	Owner string
	Repo  string

	// Context is the optional status context label.
	Context string
}

// String returns owner/repo.
func (t Target) String() string {
	return t.Owner + "/" + t.Repo
}
