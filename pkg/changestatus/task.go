/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changestatus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/teamcity-github-status/pkg/workqueue"
)

// DispatchTask reports one build phase for one revision.
// It is built by the Handler and executed once by a workqueue.
type DispatchTask struct {
	Client       Client
	Links        WebLinks
	Target       Target
	AddComments  bool
	UseGuestURLs bool

	Version RepositoryVersion
	Build   Build
	Message string
	State   ChangeState

	logger *clog.Logger
}

var _ workqueue.Task = DispatchTask{}

// Name implements workqueue.Task.
func (t DispatchTask) Name() string {
	return fmt.Sprintf("set change status on github: build %d %s", t.Build.ID(), t.State)
}

// Run implements workqueue.Task.
// Every failure is logged and swallowed; the comment step runs even when
// the status update failed.
func (t DispatchTask) Run(ctx context.Context) {
	logger := t.logger
	if logger == nil {
		logger = clog.FromContext(ctx)
	}
	ctx = clog.WithLogger(ctx, logger.With(
		"hash", t.Version.Version,
		"branch", t.Version.VCSBranch,
		"buildId", t.Build.ID(),
		"status", t.State,
	))

	hash := t.resolveCommit(ctx)
	t.setStatus(ctx, hash)

	if t.AddComments {
		t.addComment(ctx, hash)
	}
}

// resolveCommit returns the commit to report against. Pull request merge
// refs are swapped for the pull request head; on lookup failure the
// original revision is used.
func (t DispatchTask) resolveCommit(ctx context.Context) string {
	branch := t.Version.VCSBranch
	if branch == "" || !t.Client.IsPullRequestMergeBranch(branch) {
		return t.Version.Version
	}

	hash, err := t.Client.FindPullRequestCommit(ctx, t.Target.Owner, t.Target.Repo, branch)
	if err == nil && hash == "" {
		err = fmt.Errorf("failed to find head hash for commit from %s", branch)
	}
	if err != nil {
		clog.FromContext(ctx).With("error", err).
			Warnf("Failed to find status update hash for %s for repository %s", branch, t.Target.Repo)
		return t.Version.Version
	}

	clog.FromContext(ctx).With("newHash", hash).
		Infof("Resolved GitHub change commit for %s to point to pull request head", branch)
	return hash
}

func (t DispatchTask) setStatus(ctx context.Context, hash string) {
	log := clog.FromContext(ctx)
	if err := t.Client.SetChangeStatus(ctx, t.Target.Owner, t.Target.Repo, hash, t.State,
		t.resultsURL(), t.Message, t.Target.Context); err != nil {
		log.With("error", err).Warnf("Failed to update GitHub status for hash: %s", hash)
		return
	}
	log.Infof("Updated GitHub status for hash: %s", hash)
}

func (t DispatchTask) addComment(ctx context.Context, hash string) {
	log := clog.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Panic while adding GitHub comment for branch %q: %v", t.Version.VCSBranch, r)
		}
	}()

	if err := t.comment(ctx, hash); err != nil {
		log.With("error", err).Warnf("Failed to add GitHub comment for branch: %q", t.Version.VCSBranch)
	}
}

func (t DispatchTask) comment(ctx context.Context, hash string) error {
	log := clog.FromContext(ctx)
	owner, repo := t.Target.Owner, t.Target.Repo

	prID, err := t.Client.GetPullRequestID(ctx, owner, repo, t.Version.VCSBranch)
	if err != nil {
		return fmt.Errorf("looking up pull request: %w", err)
	}

	if prID == "" {
		text := Compose(t.Build, t.State != Pending, hash, t.resultsURL())
		if err := t.Client.PostCommitComment(ctx, owner, repo, hash, text); err != nil {
			return fmt.Errorf("posting commit comment: %w", err)
		}
		log.Infof("Added comment to GitHub commit: %s", hash)
		return nil
	}

	t.setBuildComment(ctx, prID)

	text := Compose(t.Build, t.State != Pending, hash, t.resultsURL())
	if err := t.Client.PostPullRequestComment(ctx, owner, repo, prID, text); err != nil {
		return fmt.Errorf("posting pull request comment: %w", err)
	}
	log.Infof("Added comment to GitHub pull request: %s", prID)
	return nil
}

// setBuildComment points the build comment at the pull request, on behalf
// of the first committer. Failures only get logged.
func (t DispatchTask) setBuildComment(ctx context.Context, prID string) {
	log := clog.FromContext(ctx)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		committers := t.Build.Committers()
		if len(committers) == 0 {
			return errNoCommitters
		}
		return t.Build.SetBuildComment(committers[0], t.Client.PullRequestURL(t.Target.Owner, t.Target.Repo, prID))
	}()
	switch {
	case errors.Is(err, errNoCommitters):
		log.Debugf("No committers to set the build comment for %s", prID)
	case err != nil:
		log.With("error", err).Warnf("Error setting the build comment for %s", prID)
	}
}

var errNoCommitters = errors.New("no committers")

func (t DispatchTask) resultsURL() string {
	u := t.Links.ViewResultsURL(t.Build)
	if !t.UseGuestURLs {
		return u
	}
	if strings.Contains(u, "?") {
		return u + "&guest=1"
	}
	return u + "?guest=1"
}
