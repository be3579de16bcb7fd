/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changestatus

import "context"

// Client is the subset of the code host API used to report build results.
// Implementations must be safe for concurrent use.
type Client interface {
	// IsPullRequestMergeBranch reports whether branch is the synthetic
	// merge ref of a pull request.
	IsPullRequestMergeBranch(branch string) bool

	// FindPullRequestCommit returns the head commit of the pull request
	// behind the given merge branch.
	FindPullRequestCommit(ctx context.Context, owner, repo, branch string) (string, error)

	// SetChangeStatus creates a commit status.
	SetChangeStatus(ctx context.Context, owner, repo, hash string, state ChangeState, targetURL, description, context string) error

	// GetPullRequestID returns the id of the open pull request for branch,
	// or "" when there is none.
	GetPullRequestID(ctx context.Context, owner, repo, branch string) (string, error)

	PostPullRequestComment(ctx context.Context, owner, repo, pullRequestID, text string) error
	PostCommitComment(ctx context.Context, owner, repo, hash, text string) error

	// PullRequestURL is the web URL of the pull request.
	PullRequestURL(owner, repo, pullRequestID string) string
}

// ClientFactory opens authenticated clients.
type ClientFactory interface {
	OpenForUser(serverURL, username, password string) (Client, error)
	OpenForToken(serverURL, token string) (Client, error)
}
