/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package buildevent

import (
	"context"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/protocol"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/chainguard-dev/teamcity-github-status/pkg/changestatus"
)

type scheduled struct {
	Phase   string
	Version changestatus.RepositoryVersion
	BuildID int64
}

type fakeScheduler struct {
	onStart, onFinish bool
	calls             []scheduled
}

func (f *fakeScheduler) ShouldReportOnStart() bool  { return f.onStart }
func (f *fakeScheduler) ShouldReportOnFinish() bool { return f.onFinish }

func (f *fakeScheduler) ScheduleChangeStarted(_ context.Context, v changestatus.RepositoryVersion, b changestatus.Build) {
	f.calls = append(f.calls, scheduled{"started", v, b.ID()})
}

func (f *fakeScheduler) ScheduleChangeCompleted(_ context.Context, v changestatus.RepositoryVersion, b changestatus.Build) {
	f.calls = append(f.calls, scheduled{"completed", v, b.ID()})
}

const finishedData = `{
  "version": {"version": "abcd123", "vcs_branch": "refs/pull/7/merge"},
  "build": {
    "id": 7,
    "full_name": "Project :: Build",
    "build_type_full_name": "Project :: Build",
    "number": "42",
    "duration_seconds": 3661,
    "successful": false,
    "status_text": "Tests failed: 1 (1 new)",
    "status": "FAILURE",
    "short_statistics": {"all": 10, "failed": 1, "new_failed": 1, "ignored": 2},
    "failure_reasons": [{"type": "TC_FAILED_TESTS", "description": "Tests failed: 1 (1 new)"}],
    "statistics": {
      "failed_tests": [{"name": "TestA", "new_failure": true}],
      "failed_test_count": 1
    },
    "committers": [{"username": "alice", "name": "Alice"}]
  }
}`

func newEvent(t *testing.T, typ, data string) cloudevents.Event {
	t.Helper()
	e := cloudevents.NewEvent()
	e.SetID("1")
	e.SetSource("https://tc.example.com")
	e.SetType(typ)
	if err := e.SetData(cloudevents.ApplicationJSON, []byte(data)); err != nil {
		t.Fatalf("SetData() = %v", err)
	}
	return e
}

func TestReceiver_Handle(t *testing.T) {
	version := changestatus.RepositoryVersion{Version: "abcd123", VCSBranch: "refs/pull/7/merge"}

	tests := []struct {
		name      string
		eventType string
		onStart   bool
		onFinish  bool
		want      []scheduled
	}{{
		name:      "started",
		eventType: StartedEventType,
		onStart:   true,
		onFinish:  true,
		want:      []scheduled{{"started", version, 7}},
	}, {
		name:      "finished",
		eventType: FinishedEventType,
		onStart:   true,
		onFinish:  true,
		want:      []scheduled{{"completed", version, 7}},
	}, {
		name:      "start not reported",
		eventType: StartedEventType,
		onFinish:  true,
	}, {
		name:      "finish not reported",
		eventType: FinishedEventType,
		onStart:   true,
	}, {
		name:      "unknown type",
		eventType: "dev.teamcity.build.queued",
		onStart:   true,
		onFinish:  true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeScheduler{onStart: tt.onStart, onFinish: tt.onFinish}
			r := NewReceiver(s)

			if result := r.Handle(context.Background(), newEvent(t, tt.eventType, finishedData)); !protocol.IsACK(result) {
				t.Fatalf("Handle() = %v, want ACK", result)
			}
			if diff := cmp.Diff(tt.want, s.calls, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("scheduled mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReceiver_RejectsBadEvents(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"version":`},
		{"missing build", `{"version": {"version": "abcd123"}}`},
		{"missing version", `{"build": {"id": 7}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeScheduler{onStart: true, onFinish: true}
			r := NewReceiver(s)

			if result := r.Handle(context.Background(), newEvent(t, FinishedEventType, tt.data)); !protocol.IsNACK(result) {
				t.Errorf("Handle() = %v, want NACK", result)
			}
			if len(s.calls) != 0 {
				t.Errorf("scheduled %+v for a bad event", s.calls)
			}
		})
	}
}

type captureScheduler struct {
	fakeScheduler
	build changestatus.Build
}

func (c *captureScheduler) ScheduleChangeCompleted(_ context.Context, _ changestatus.RepositoryVersion, b changestatus.Build) {
	c.build = b
}

func TestReceiver_DecodesSnapshot(t *testing.T) {
	s := &captureScheduler{fakeScheduler: fakeScheduler{onFinish: true}}
	if result := NewReceiver(s).Handle(context.Background(), newEvent(t, FinishedEventType, finishedData)); !protocol.IsACK(result) {
		t.Fatalf("Handle() = %v", result)
	}
	b := s.build
	if b == nil {
		t.Fatal("no build scheduled")
	}

	if b.Status() != changestatus.StatusFailure {
		t.Errorf("Status() = %v, want failure", b.Status())
	}
	if b.Duration() != 3661*time.Second {
		t.Errorf("Duration() = %v", b.Duration())
	}
	if want := (changestatus.ShortStatistics{AllTestCount: 10, FailedTestCount: 1, NewFailedCount: 1, IgnoredTestCount: 2}); b.ShortStatistics() != want {
		t.Errorf("ShortStatistics() = %+v, want %+v", b.ShortStatistics(), want)
	}
	if got := b.Statistics().FailedTests; len(got) != 1 || !got[0].NewFailure {
		t.Errorf("FailedTests = %+v", got)
	}

	// End to end through the comment composer.
	got := changestatus.Compose(b, true, "deadbeef", Links{RootURL: "https://tc.example.com/"}.ViewResultsURL(b))
	want := "**FAILURE** - TeamCity Project :: Build [Build 42](https://tc.example.com/viewLog.html?buildId=7) for deadbeef\n" +
		"Tests: 10, 1 failed (1 new), 2 ignored. Build time: 01:01:01" +
		"\n\nTests failed: 1 (1 new)" +
		"\n* (new) TestA\n\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compose() mismatch (-want +got):\n%s", diff)
	}
}
