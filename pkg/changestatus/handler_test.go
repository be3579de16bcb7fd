/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changestatus

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chainguard-dev/teamcity-github-status/pkg/workqueue"
)

func newTestHandler(t *testing.T, params map[string]string, client *fakeClient, exec Executor) *Handler {
	t.Helper()
	h, err := NewHandler(context.Background(),
		FeatureDescriptor{Type: FeatureType, Parameters: params},
		&fakeFactory{client: client}, exec, fakeLinks{base: "https://tc.example.com"})
	if err != nil {
		t.Fatalf("NewHandler() = %v", err)
	}
	return h
}

func TestHandler_ReportPolicy(t *testing.T) {
	tests := []struct {
		reportOn   string
		wantStart  bool
		wantFinish bool
	}{
		{"", true, true},
		{"both", true, true},
		{"start", true, false},
		{"finish", false, true},
		{"never", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.reportOn, func(t *testing.T) {
			h := newTestHandler(t, with(validParams(), ReportOnKey, tt.reportOn), &fakeClient{}, &inlineExecutor{})
			if got := h.ShouldReportOnStart(); got != tt.wantStart {
				t.Errorf("ShouldReportOnStart() = %v, want %v", got, tt.wantStart)
			}
			if got := h.ShouldReportOnFinish(); got != tt.wantFinish {
				t.Errorf("ShouldReportOnFinish() = %v, want %v", got, tt.wantFinish)
			}
		})
	}
}

func TestHandler_ScheduleChangeStarted(t *testing.T) {
	client := &fakeClient{}
	exec := &inlineExecutor{}
	h := newTestHandler(t, with(validParams(), ContextKey, "ci/teamcity"), client, exec)

	if got, want := h.Target(), (Target{Owner: "octo", Repo: "hello", Context: "ci/teamcity"}); got != want {
		t.Errorf("Target() = %v, want %v", got, want)
	}

	b := baseBuild()
	b.number = "42"
	h.ScheduleChangeStarted(context.Background(), RepositoryVersion{Version: "abcd123", VCSBranch: "refs/heads/main"}, b)

	if len(exec.tasks) != 1 {
		t.Fatalf("queued %d tasks, want 1", len(exec.tasks))
	}
	want := []statusCall{{
		Owner:       "octo",
		Repo:        "hello",
		Hash:        "abcd123",
		State:       Pending,
		TargetURL:   "https://tc.example.com/viewLog.html?buildId=7",
		Description: "Started - TeamCity Build Project :: Build",
		Context:     "ci/teamcity",
	}}
	if diff := cmp.Diff(want, client.statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if len(client.commitCmts)+len(client.prComments) != 0 {
		t.Error("comments posted with comments disabled")
	}
}

func TestHandler_ScheduleChangeCompleted(t *testing.T) {
	tests := []struct {
		name       string
		successful bool
		statusText string
		wantState  ChangeState
	}{{
		name:       "success",
		successful: true,
		statusText: "Tests passed: 10",
		wantState:  Success,
	}, {
		name:       "failure",
		statusText: "Tests failed: 1 (1 new)",
		wantState:  Error,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{
				headCommits: map[string]string{"refs/pull/7/merge": "deadbeef"},
				prIDs:       map[string]string{"refs/pull/7/merge": "7"},
			}
			h := newTestHandler(t, with(validParams(), UseCommentsKey, "true"), client, &inlineExecutor{})

			b := baseBuild()
			b.successful = tt.successful
			b.statusText = tt.statusText
			b.committers = []User{{Username: "alice"}}
			h.ScheduleChangeCompleted(context.Background(), RepositoryVersion{Version: "abcd123", VCSBranch: "refs/pull/7/merge"}, b)

			if len(client.statuses) != 1 {
				t.Fatalf("got %d statuses, want 1", len(client.statuses))
			}
			got := client.statuses[0]
			if got.Hash != "deadbeef" {
				t.Errorf("status hash = %q, want deadbeef", got.Hash)
			}
			if got.State != tt.wantState {
				t.Errorf("status state = %v, want %v", got.State, tt.wantState)
			}
			if want := tt.statusText + " - TeamCity Build Project :: Build"; got.Description != want {
				t.Errorf("status description = %q, want %q", got.Description, want)
			}
			if len(client.prComments) != 1 || client.prComments[0].On != "7" {
				t.Fatalf("pull request comments = %+v, want one on 7", client.prComments)
			}
			if !strings.Contains(client.prComments[0].Text, "for deadbeef\n") {
				t.Errorf("comment does not name the head commit:\n%s", client.prComments[0].Text)
			}
		})
	}
}

func TestHandler_QueueRejectionIsDropped(t *testing.T) {
	client := &fakeClient{}
	exec := &inlineExecutor{err: workqueue.ErrQueueFull}
	h := newTestHandler(t, validParams(), client, exec)

	// Must not panic or block.
	h.ScheduleChangeStarted(context.Background(), RepositoryVersion{Version: "abcd123"}, baseBuild())

	if len(client.statuses) != 0 {
		t.Errorf("statuses = %+v, want none", client.statuses)
	}
}

func TestNewHandler_Credentials(t *testing.T) {
	t.Run("token", func(t *testing.T) {
		f := &fakeFactory{client: &fakeClient{}}
		if _, err := NewHandler(context.Background(), FeatureDescriptor{Type: FeatureType, Parameters: validParams()}, f, &inlineExecutor{}, fakeLinks{}); err != nil {
			t.Fatalf("NewHandler() = %v", err)
		}
		if f.tokenCalls != 1 || f.userCalls != 0 {
			t.Errorf("token calls = %d, user calls = %d, want 1, 0", f.tokenCalls, f.userCalls)
		}
		if f.server != "https://api.github.com" || f.token != "s3cr3t" {
			t.Errorf("opened %q with token %q", f.server, f.token)
		}
	})

	t.Run("password", func(t *testing.T) {
		f := &fakeFactory{client: &fakeClient{}}
		params := with(validParams(),
			AuthenticationTypeKey, "password",
			UserNameKey, "bot",
			PasswordKey, "hunter2",
		)
		if _, err := NewHandler(context.Background(), FeatureDescriptor{Type: FeatureType, Parameters: params}, f, &inlineExecutor{}, fakeLinks{}); err != nil {
			t.Fatalf("NewHandler() = %v", err)
		}
		if f.userCalls != 1 || f.tokenCalls != 0 {
			t.Errorf("user calls = %d, token calls = %d, want 1, 0", f.userCalls, f.tokenCalls)
		}
		if f.username != "bot" || f.password != "hunter2" {
			t.Errorf("opened as %q/%q, want bot/hunter2", f.username, f.password)
		}
	})
}

func TestNewHandler_Errors(t *testing.T) {
	t.Run("invalid configuration", func(t *testing.T) {
		f := &fakeFactory{client: &fakeClient{}}
		_, err := NewHandler(context.Background(),
			FeatureDescriptor{Type: FeatureType, Parameters: with(validParams(), RepositoryOwnerKey, "")},
			f, &inlineExecutor{}, fakeLinks{})
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("NewHandler() = %v, want configuration error", err)
		}
		if f.userCalls+f.tokenCalls != 0 {
			t.Error("client opened for an invalid configuration")
		}
	})

	t.Run("factory failure", func(t *testing.T) {
		boom := errors.New("bad server url")
		f := &fakeFactory{err: boom}
		_, err := NewHandler(context.Background(),
			FeatureDescriptor{Type: FeatureType, Parameters: validParams()},
			f, &inlineExecutor{}, fakeLinks{})
		if !errors.Is(err, boom) {
			t.Errorf("NewHandler() = %v, want %v", err, boom)
		}
	})
}

func TestHandler_WithPool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	client := &fakeClient{}
	pool := workqueue.NewPool(2, 10)
	h := newTestHandler(t, validParams(), client, pool)

	for range 3 {
		h.ScheduleChangeStarted(ctx, RepositoryVersion{Version: "abcd123"}, baseBuild())
	}

	// Queued work is drained before Run returns.
	cancel()
	if err := pool.Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.statuses) != 3 {
		t.Errorf("got %d statuses, want 3", len(client.statuses))
	}
}
