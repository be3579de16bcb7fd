/*
Copyright 2024 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workqueue

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sethvargo/go-envconfig"
)

var env = envconfig.MustProcess(context.Background(), &struct {
	// https://cloud.google.com/run/docs/container-contract#services-env-vars
	KnativeServiceName  string `env:"K_SERVICE, default=unknown"`
	KnativeRevisionName string `env:"K_REVISION, default=unknown"`
}{})

var (
	mInProgressTasks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "workqueue_in_progress_tasks",
			Help: "The number of tasks currently being run by this workqueue.",
		},
		[]string{"queue", "service_name", "revision_name"},
	)
	mQueuedTasks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "workqueue_queued_tasks",
			Help: "The number of tasks currently in the backlog of this workqueue.",
		},
		[]string{"queue", "service_name", "revision_name"},
	)
	mWorkLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workqueue_process_latency_seconds",
			Help:    "The duration taken to run a task.",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 45, 60, 120, 240},
		},
		[]string{"queue", "service_name", "revision_name"},
	)
	mWaitLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workqueue_wait_latency_seconds",
			Help:    "The duration the task waited to start.",
			Buckets: []float64{.01, .05, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"queue", "service_name", "revision_name"},
	)
	mAddedTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workqueue_added_tasks",
			Help: "The total number of accepted queue requests.",
		},
		[]string{"queue", "service_name", "revision_name"},
	)
	mRejectedTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workqueue_rejected_tasks",
			Help: "The total number of queue requests that were turned away.",
		},
		[]string{"queue", "reason", "service_name", "revision_name"},
	)
	mPanickedTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workqueue_panicked_tasks",
			Help: "The total number of tasks that panicked.",
		},
		[]string{"queue", "service_name", "revision_name"},
	)
)
