/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"github.com/chainguard-dev/teamcity-github-status/pkg/changestatus"
	"github.com/chainguard-dev/teamcity-github-status/pkg/githubapi"
)

type envConfig struct {
	Port        int    `env:"PORT, default=8080"`
	RootURL     string `env:"TEAMCITY_ROOT_URL, required"`
	Concurrency int    `env:"REPORTER_CONCURRENCY, default=4"`
	Backlog     int    `env:"REPORTER_BACKLOG, default=100"`

	GitHub githubConfig
}

// githubConfig holds the build feature parameters.
type githubConfig struct {
	Host      string `env:"GITHUB_HOST"`
	AuthType  string `env:"GITHUB_AUTH_TYPE, default=token"`
	Username  string `env:"GITHUB_USERNAME"`
	Password  string `env:"GITHUB_PASSWORD"`
	Token     string `env:"GITHUB_TOKEN"`
	Owner     string `env:"GITHUB_OWNER, required"`
	Repo      string `env:"GITHUB_REPO, required"`
	Context   string `env:"GITHUB_CONTEXT"`
	Comments  bool   `env:"GITHUB_COMMENTS, default=false"`
	GuestURLs bool   `env:"GITHUB_GUEST_URLS, default=false"`
	ReportOn  string `env:"GITHUB_REPORT_ON"`
}

func enabled(b bool) string {
	if b {
		return "true"
	}
	return ""
}

// descriptor maps the environment onto a feature descriptor.
func (c githubConfig) descriptor() changestatus.FeatureDescriptor {
	host := c.Host
	if host == "" {
		host = githubapi.PublicServer
	}
	return changestatus.FeatureDescriptor{
		Type: changestatus.FeatureType,
		Parameters: map[string]string{
			changestatus.ServerKey:             host,
			changestatus.AuthenticationTypeKey: c.AuthType,
			changestatus.UserNameKey:           c.Username,
			changestatus.PasswordKey:           c.Password,
			changestatus.AccessTokenKey:        c.Token,
			changestatus.RepositoryOwnerKey:    c.Owner,
			changestatus.RepositoryNameKey:     c.Repo,
			changestatus.ContextKey:            c.Context,
			changestatus.UseCommentsKey:        enabled(c.Comments),
			changestatus.UseGuestURLsKey:       enabled(c.GuestURLs),
			changestatus.ReportOnKey:           c.ReportOn,
		},
	}
}
