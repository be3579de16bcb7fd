/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changestatus

import "time"

// Build problem types with dedicated comment sections.
const (
	CompilationErrorType = "TC_COMPILATION_ERROR"
	FailedTestsType      = "TC_FAILED_TESTS"
)

// Build is the host's view of a running or finished build.
// Apart from SetBuildComment, implementations are only read.
type Build interface {
	// ID is the build id on the build server.
	ID() int64

	// FullName is the "<project> :: <build type>" label of the build.
	FullName() string

	// BuildTypeFullName is the full name of the build configuration,
	// or empty if the configuration no longer exists.
	BuildTypeFullName() string

	// Number is the user facing build number.
	Number() string

	Duration() time.Duration
	Successful() bool

	// StatusText is the short status description, e.g. "Tests passed: 12".
	StatusText() string

	Status() Status
	ShortStatistics() ShortStatistics
	FailureReasons() []Problem
	Statistics() Statistics

	// Committers returns the users with changes since the previous build.
	Committers() []User

	// SetBuildComment replaces the build's comment on behalf of user.
	SetBuildComment(user User, comment string) error
}

// Status is the overall build status.
type Status int

const (
	StatusNormal Status = iota
	StatusWarning
	StatusFailure
	StatusError
	StatusUnknown
)

// Text returns the display text of the status.
func (s Status) Text() string {
	switch s {
	case StatusNormal:
		return "SUCCESS"
	case StatusWarning:
		return "WARNING"
	case StatusFailure:
		return "FAILURE"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus is the inverse of Status.Text. Unknown values map to StatusUnknown.
func ParseStatus(s string) Status {
	switch s {
	case "SUCCESS", "NORMAL":
		return StatusNormal
	case "WARNING":
		return StatusWarning
	case "FAILURE":
		return StatusFailure
	case "ERROR":
		return StatusError
	default:
		return StatusUnknown
	}
}

// ShortStatistics are the test counters of a build.
type ShortStatistics struct {
	AllTestCount     int `json:"all"`
	FailedTestCount  int `json:"failed"`
	NewFailedCount   int `json:"new_failed"`
	IgnoredTestCount int `json:"ignored"`
}

// Problem is a reason the build failed.
type Problem struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Statistics is the detailed breakdown used for failure comments.
type Statistics struct {
	CompilationErrorBlocks []CompilationBlock `json:"compilation_error_blocks,omitempty"`
	CompilationErrorsCount int                `json:"compilation_errors_count,omitempty"`
	FailedTests            []TestRun          `json:"failed_tests,omitempty"`
	FailedTestCount        int                `json:"failed_test_count,omitempty"`
}

// CompilationBlock is one block of compiler output.
type CompilationBlock struct {
	CompilerMessages string `json:"messages"`
}

// TestRun is a failed test within the build.
type TestRun struct {
	Name       string `json:"name"`
	NewFailure bool   `json:"new_failure,omitempty"`

	// FirstFailed is when the build that first failed this test finished.
	// The zero value means unknown.
	FirstFailed time.Time `json:"first_failed,omitempty"`
}

// User is a build server user.
type User struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// WebLinks builds links to the build server UI.
type WebLinks interface {
	ViewResultsURL(b Build) string
}
