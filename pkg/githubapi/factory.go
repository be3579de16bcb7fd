/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"

	"github.com/chainguard-dev/teamcity-github-status/pkg/changestatus"
)

// PublicServer is the API URL of github.com.
const PublicServer = "https://api.github.com/"

// Factory opens clients for GitHub servers. The zero value talks through
// http.DefaultTransport.
type Factory struct {
	// Base is the innermost transport.
	Base http.RoundTripper

	// DefaultRetryAfter is how long requests pause after a rate limited
	// response that carries no hint. Defaults to one minute.
	DefaultRetryAfter time.Duration
}

var _ changestatus.ClientFactory = (*Factory)(nil)

// OpenForUser implements changestatus.ClientFactory with basic
// authentication.
func (f *Factory) OpenForUser(serverURL, username, password string) (changestatus.Client, error) {
	c, err := f.open(serverURL, &github.BasicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: f.transport(),
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// OpenForToken implements changestatus.ClientFactory with an access token.
func (f *Factory) OpenForToken(serverURL, token string) (changestatus.Client, error) {
	c, err := f.open(serverURL, &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		Base:   f.transport(),
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (f *Factory) transport() http.RoundTripper {
	return NewTransport(f.Base, f.DefaultRetryAfter)
}

func (f *Factory) open(serverURL string, rt http.RoundTripper) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return nil, fmt.Errorf("parsing server url %q: %w", serverURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("server url %q must be an absolute http(s) url", serverURL)
	}

	gh := github.NewClient(&http.Client{Transport: rt})
	if u.Host != "api.github.com" {
		if gh, err = gh.WithEnterpriseURLs(u.String(), u.String()); err != nil {
			return nil, fmt.Errorf("configuring enterprise server %q: %w", serverURL, err)
		}
	}
	return NewClient(gh), nil
}
