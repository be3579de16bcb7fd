/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package changestatus reports build progress to GitHub commit statuses.
//
// A Handler is created once per configured build feature. NewHandler
// validates the feature parameters and opens the GitHub client, so
// configuration mistakes surface before anything is scheduled:
//
//	h, err := changestatus.NewHandler(ctx, desc, githubapi.NewFactory(), pool, links)
//	if err != nil {
//	    return err
//	}
//
// The build lifecycle calls the scheduling methods, guarded by the phase
// policy:
//
//	if h.ShouldReportOnStart() {
//	    h.ScheduleChangeStarted(ctx, version, build)
//	}
//
// Scheduling never blocks. Each call becomes a DispatchTask that is run by an
// Executor (normally a *workqueue.Pool). The task
//
//  1. resolves the commit, replacing pull request merge refs with the head
//     of the pull request when it can,
//  2. sets the commit status, and
//  3. when comments are enabled, posts a summary on the pull request or,
//     without one, on the commit.
//
// Every failure inside a task is logged and dropped. Nothing is retried and
// nothing reaches the build.
package changestatus
