/*
Copyright 2024 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package workqueue contains a bounded, in-process pool for fire-and-forget
// background work.
//
// Tasks are queued without blocking the caller and are run by a fixed set of
// workers. A task that panics is logged and counted; it never takes down its
// worker or its siblings. There is no result channel and no retry: callers
// that care about failures must handle them inside the task.
package workqueue
