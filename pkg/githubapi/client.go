/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"

	"github.com/chainguard-dev/teamcity-github-status/pkg/changestatus"
)

const (
	// DefaultContext labels statuses that have no configured context.
	DefaultContext = "continuous-integration/teamcity"

	// maxDescriptionLength is the longest description GitHub accepts on a
	// commit status.
	maxDescriptionLength = 140
)

// Client reports build statuses to one GitHub server.
type Client struct {
	gh *github.Client
}

var _ changestatus.Client = (*Client)(nil)

// NewClient wraps a go-github client.
func NewClient(gh *github.Client) *Client {
	return &Client{gh: gh}
}

// IsPullRequestMergeBranch implements changestatus.Client.
func (c *Client) IsPullRequestMergeBranch(branch string) bool {
	return mergeBranchPattern.MatchString(branch)
}

// FindPullRequestCommit implements changestatus.Client. It returns the head
// commit of the pull request behind a refs/pull/N/merge branch.
func (c *Client) FindPullRequestCommit(ctx context.Context, owner, repo, branch string) (string, error) {
	m := mergeBranchPattern.FindStringSubmatch(branch)
	if m == nil {
		return "", fmt.Errorf("%q is not a pull request merge branch", branch)
	}
	number, err := strconv.Atoi(m[1])
	if err != nil {
		return "", fmt.Errorf("parsing pull request number from %q: %w", branch, err)
	}

	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return "", fmt.Errorf("getting pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	return pr.GetHead().GetSHA(), nil
}

// SetChangeStatus implements changestatus.Client.
func (c *Client) SetChangeStatus(ctx context.Context, owner, repo, hash string, state changestatus.ChangeState, targetURL, description, statusContext string) error {
	if statusContext == "" {
		statusContext = DefaultContext
	}
	status := &github.RepoStatus{
		State:       github.Ptr(state.String()),
		Description: github.Ptr(truncate(description, maxDescriptionLength)),
		Context:     github.Ptr(statusContext),
	}
	if targetURL != "" {
		status.TargetURL = github.Ptr(targetURL)
	}

	if _, _, err := c.gh.Repositories.CreateStatus(ctx, owner, repo, hash, status); err != nil {
		return fmt.Errorf("creating %s status on %s/%s@%s: %w", state, owner, repo, hash, err)
	}

	clog.FromContext(ctx).Debugf("Created %s status %q on %s/%s@%s", state, statusContext, owner, repo, hash)
	return nil
}

// GetPullRequestID implements changestatus.Client. It returns "" when the
// branch has no open pull request.
func (c *Client) GetPullRequestID(ctx context.Context, owner, repo, branch string) (string, error) {
	if number, ok := pullNumber(branch); ok {
		pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
		if err != nil {
			return "", fmt.Errorf("getting pull request %s/%s#%d: %w", owner, repo, number, err)
		}
		if pr.GetState() != "open" {
			clog.FromContext(ctx).Debugf("Pull request %s/%s#%d is %s", owner, repo, number, pr.GetState())
			return "", nil
		}
		return strconv.Itoa(pr.GetNumber()), nil
	}

	name := branchName(branch)
	if name == "" {
		return "", nil
	}
	prs, _, err := c.gh.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State: "open",
		Head:  owner + ":" + name,
	})
	if err != nil {
		return "", fmt.Errorf("listing pull requests for %s:%s: %w", owner, name, err)
	}
	if len(prs) == 0 {
		return "", nil
	}
	return strconv.Itoa(prs[0].GetNumber()), nil
}

// PostPullRequestComment implements changestatus.Client.
func (c *Client) PostPullRequestComment(ctx context.Context, owner, repo, prID, text string) error {
	number, err := strconv.Atoi(prID)
	if err != nil {
		return fmt.Errorf("invalid pull request id %q: %w", prID, err)
	}
	if _, _, err := c.gh.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.Ptr(text),
	}); err != nil {
		return fmt.Errorf("commenting on %s/%s#%d: %w", owner, repo, number, err)
	}
	return nil
}

// PostCommitComment implements changestatus.Client.
func (c *Client) PostCommitComment(ctx context.Context, owner, repo, hash, text string) error {
	if _, _, err := c.gh.Repositories.CreateComment(ctx, owner, repo, hash, &github.RepositoryComment{
		Body: github.Ptr(text),
	}); err != nil {
		return fmt.Errorf("commenting on %s/%s@%s: %w", owner, repo, hash, err)
	}
	return nil
}

// PullRequestURL implements changestatus.Client.
func (c *Client) PullRequestURL(owner, repo, prID string) string {
	return fmt.Sprintf("%s%s/%s/pull/%s", webURL(c.gh.BaseURL), owner, repo, prID)
}

// webURL maps an API base URL to the web URL of the same server, with a
// trailing slash.
func webURL(api *url.URL) string {
	u := *api
	if u.Host == "api.github.com" {
		u.Host = "github.com"
		u.Path = "/"
	} else {
		u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/api/v3") + "/"
	}
	u.RawPath = ""
	return u.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
