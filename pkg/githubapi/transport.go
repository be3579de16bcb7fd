/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubapi

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var env = envconfig.MustProcess(context.Background(), &struct {
	KnativeServiceName  string `env:"K_SERVICE, default=unknown"`
	KnativeRevisionName string `env:"K_REVISION, default=unknown"`
}{})

var (
	mReqCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "github_status_request_count",
			Help: "The total number of GitHub API requests",
		},
		[]string{"code", "method", "path", "service_name", "revision_name"},
	)
	mReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "github_status_request_duration_seconds",
			Help:    "The duration of GitHub API requests",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"code", "method", "path", "service_name", "revision_name"},
	)
	mRateLimitRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "github_status_rate_limit_remaining",
			Help: "The number of requests remaining in the current rate limit window",
		},
		[]string{"resource"},
	)
	mRateLimitReset = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "github_status_rate_limit_reset",
			Help: "The timestamp at which the current rate limit window resets",
		},
		[]string{"resource"},
	)
)

// NewTransport returns the transport every client is built on: rate
// limiting, then request metrics, then tracing, then base.
func NewTransport(base http.RoundTripper, defaultRetryAfter time.Duration) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return NewRateLimitTransport(
		instrumentRequests(
			otelhttp.NewTransport(base)),
		defaultRetryAfter)
}

type pathPattern struct {
	pattern *regexp.Regexp
	bucket  string
}

// The endpoints this package calls. Enterprise servers prefix them with
// /api/v3, which is stripped before matching.
var apiPatterns = []pathPattern{{
	// https://docs.github.com/en/rest/commits/statuses#create-a-commit-status
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/statuses/[^/]+$`),
	bucket:  "/repos/{org}/{repo}/statuses/{sha}",
}, {
	// https://docs.github.com/en/rest/pulls/pulls#list-pull-requests
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/pulls$`),
	bucket:  "/repos/{org}/{repo}/pulls",
}, {
	// https://docs.github.com/en/rest/pulls/pulls#get-a-pull-request
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/pulls/\d+$`),
	bucket:  "/repos/{org}/{repo}/pulls/{number}",
}, {
	// https://docs.github.com/en/rest/issues/comments#create-an-issue-comment
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/\d+/comments$`),
	bucket:  "/repos/{org}/{repo}/issues/{number}/comments",
}, {
	// https://docs.github.com/en/rest/commits/comments#create-a-commit-comment
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/commits/[^/]+/comments$`),
	bucket:  "/repos/{org}/{repo}/commits/{sha}/comments",
}}

func bucketizePath(path string) string {
	path = strings.TrimPrefix(path, "/api/v3")
	for _, p := range apiPatterns {
		if p.pattern.MatchString(path) {
			return p.bucket
		}
	}
	return "other"
}

func instrumentRequests(next http.RoundTripper) promhttp.RoundTripperFunc {
	return func(r *http.Request) (*http.Response, error) {
		path := bucketizePath(r.URL.Path)
		start := time.Now()

		resp, err := next.RoundTrip(r)

		code := "error"
		if err == nil {
			code = strconv.Itoa(resp.StatusCode)
			recordRateLimit(resp)
		}
		labels := prometheus.Labels{
			"code":          code,
			"method":        r.Method,
			"path":          path,
			"service_name":  env.KnativeServiceName,
			"revision_name": env.KnativeRevisionName,
		}
		mReqCount.With(labels).Inc()
		mReqDuration.With(labels).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// recordRateLimit exports the rate limit headers GitHub sends on every
// API response.
func recordRateLimit(resp *http.Response) {
	resource := resp.Header.Get("X-Ratelimit-Resource")
	if resource == "" {
		return
	}
	if v, err := strconv.Atoi(resp.Header.Get(HeaderXRateLimitRemaining)); err == nil {
		mRateLimitRemaining.With(prometheus.Labels{"resource": resource}).Set(float64(v))
	}
	if v, err := strconv.ParseInt(resp.Header.Get(HeaderXRateLimitReset), 10, 64); err == nil {
		mRateLimitReset.With(prometheus.Labels{"resource": resource}).Set(float64(v))
	}
}
