/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package buildevent

import (
	"fmt"
	"strings"

	"github.com/chainguard-dev/teamcity-github-status/pkg/changestatus"
)

// Links builds links into the build server web UI.
type Links struct {
	// RootURL is the build server's root URL, e.g. https://teamcity.example.com.
	RootURL string
}

var _ changestatus.WebLinks = Links{}

// ViewResultsURL implements changestatus.WebLinks.
func (l Links) ViewResultsURL(b changestatus.Build) string {
	return fmt.Sprintf("%s/viewLog.html?buildId=%d", strings.TrimSuffix(l.RootURL, "/"), b.ID())
}
