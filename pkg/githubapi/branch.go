/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubapi

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	mergeBranchPattern = regexp.MustCompile(`^refs/pull/(\d+)/merge$`)
	pullRefPattern     = regexp.MustCompile(`^refs/pull/(\d+)/(?:head|merge)$`)
)

// pullNumber extracts the pull request number from refs/pull/N/head or
// refs/pull/N/merge.
func pullNumber(ref string) (int, bool) {
	m := pullRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// branchName strips the refs/heads/ prefix from a branch reference.
func branchName(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}
