/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package buildevent receives build lifecycle events as CloudEvents and
// feeds them to a changestatus.Handler.
//
// An event carries the revision the build ran against and a snapshot of
// the build:
//
//	{
//	  "version": {"version": "abcd123", "vcs_branch": "refs/pull/7/merge"},
//	  "build": {"id": 7, "full_name": "Project :: Build", "number": "42", ...}
//	}
package buildevent
