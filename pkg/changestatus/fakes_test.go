/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changestatus

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/chainguard-dev/teamcity-github-status/pkg/workqueue"
)

var mergeBranch = regexp.MustCompile(`^refs/pull/(\d+)/merge$`)

type statusCall struct {
	Owner, Repo, Hash string
	State             ChangeState
	TargetURL         string
	Description       string
	Context           string
}

type commentCall struct {
	Owner, Repo string
	// On is the pull request id or the commit hash.
	On   string
	Text string
}

type fakeClient struct {
	mu sync.Mutex

	headCommits map[string]string // branch -> head hash
	findErr     error
	statusErr   error
	prIDs       map[string]string // branch -> pull request id
	prIDErr     error
	commentErr  error
	panicOnPR   bool

	statuses   []statusCall
	prComments []commentCall
	commitCmts []commentCall
}

var _ Client = (*fakeClient)(nil)

func (f *fakeClient) IsPullRequestMergeBranch(branch string) bool {
	return mergeBranch.MatchString(branch)
}

func (f *fakeClient) FindPullRequestCommit(_ context.Context, _, _, branch string) (string, error) {
	if f.findErr != nil {
		return "", f.findErr
	}
	return f.headCommits[branch], nil
}

func (f *fakeClient) SetChangeStatus(_ context.Context, owner, repo, hash string, state ChangeState, targetURL, description, statusContext string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, statusCall{owner, repo, hash, state, targetURL, description, statusContext})
	return f.statusErr
}

func (f *fakeClient) GetPullRequestID(_ context.Context, _, _, branch string) (string, error) {
	if f.panicOnPR {
		panic("pull request lookup exploded")
	}
	if f.prIDErr != nil {
		return "", f.prIDErr
	}
	return f.prIDs[branch], nil
}

func (f *fakeClient) PostPullRequestComment(_ context.Context, owner, repo, id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prComments = append(f.prComments, commentCall{owner, repo, id, text})
	return f.commentErr
}

func (f *fakeClient) PostCommitComment(_ context.Context, owner, repo, hash, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitCmts = append(f.commitCmts, commentCall{owner, repo, hash, text})
	return f.commentErr
}

func (f *fakeClient) PullRequestURL(owner, repo, id string) string {
	return fmt.Sprintf("https://github.com/%s/%s/pull/%s", owner, repo, id)
}

type fakeFactory struct {
	client *fakeClient
	err    error

	userCalls  int
	tokenCalls int
	server     string
	username   string
	password   string
	token      string
}

func (f *fakeFactory) OpenForUser(serverURL, username, password string) (Client, error) {
	f.userCalls++
	f.server, f.username, f.password = serverURL, username, password
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

func (f *fakeFactory) OpenForToken(serverURL, token string) (Client, error) {
	f.tokenCalls++
	f.server, f.token = serverURL, token
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

type fakeBuild struct {
	id         int64
	fullName   string
	btName     string
	number     string
	duration   time.Duration
	successful bool
	statusText string
	status     Status
	short      ShortStatistics
	reasons    []Problem
	stats      Statistics
	committers []User

	commentErr  error
	commentUser User
	comment     string
}

var _ Build = (*fakeBuild)(nil)

func (b *fakeBuild) ID() int64                        { return b.id }
func (b *fakeBuild) FullName() string                 { return b.fullName }
func (b *fakeBuild) BuildTypeFullName() string        { return b.btName }
func (b *fakeBuild) Number() string                   { return b.number }
func (b *fakeBuild) Duration() time.Duration          { return b.duration }
func (b *fakeBuild) Successful() bool                 { return b.successful }
func (b *fakeBuild) StatusText() string               { return b.statusText }
func (b *fakeBuild) Status() Status                   { return b.status }
func (b *fakeBuild) ShortStatistics() ShortStatistics { return b.short }
func (b *fakeBuild) FailureReasons() []Problem        { return b.reasons }
func (b *fakeBuild) Statistics() Statistics           { return b.stats }
func (b *fakeBuild) Committers() []User               { return b.committers }

func (b *fakeBuild) SetBuildComment(user User, comment string) error {
	if b.commentErr != nil {
		return b.commentErr
	}
	b.commentUser, b.comment = user, comment
	return nil
}

type fakeLinks struct {
	base string
}

func (l fakeLinks) ViewResultsURL(b Build) string {
	return fmt.Sprintf("%s/viewLog.html?buildId=%d", l.base, b.ID())
}

// inlineExecutor runs tasks as soon as they are queued.
type inlineExecutor struct {
	tasks []workqueue.Task
	err   error
}

func (e *inlineExecutor) Queue(ctx context.Context, t workqueue.Task) error {
	if e.err != nil {
		return e.err
	}
	e.tasks = append(e.tasks, t)
	t.Run(ctx)
	return nil
}
