/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubapi

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// GitHub rate limit header names, in Go canonical form.
// https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api#checking-the-status-of-your-rate-limit
const (
	HeaderRetryAfter          = "Retry-After"
	HeaderXRateLimitReset     = "X-Ratelimit-Reset"
	HeaderXRateLimitRemaining = "X-Ratelimit-Remaining"
)

var (
	mRateLimitTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "github_status_rate_limit_triggered_total",
			Help: "The number of rate limited responses from GitHub",
		},
		[]string{"status_code", "reason"},
	)
	mRateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "github_status_rate_limit_wait_seconds",
			Help:    "The duration requests are paused for after a rate limited response",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"reason"},
	)
	mRateLimitRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "github_status_rate_limit_retries_total",
			Help: "The number of requests retried after a rate limit pause",
		},
		[]string{"outcome"},
	)
	mRateLimitHeaderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "github_status_rate_limit_header_errors_total",
			Help: "The number of rate limit headers that failed to parse",
		},
		[]string{"header"},
	)
)

// RateLimitTransport pauses all requests while GitHub reports that the
// client is rate limited, and retries the limited request once afterwards.
type RateLimitTransport struct {
	base              http.RoundTripper
	limiter           *limiter
	clock             clockwork.Clock
	defaultRetryAfter time.Duration
}

// NewRateLimitTransport wraps base. defaultRetryAfter is used when a
// limited response carries no usable headers and defaults to one minute.
func NewRateLimitTransport(base http.RoundTripper, defaultRetryAfter time.Duration) *RateLimitTransport {
	return newRateLimitTransport(base, defaultRetryAfter, clockwork.NewRealClock())
}

func newRateLimitTransport(base http.RoundTripper, defaultRetryAfter time.Duration, clock clockwork.Clock) *RateLimitTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if defaultRetryAfter == 0 {
		defaultRetryAfter = time.Minute
	}
	return &RateLimitTransport{
		base: base,
		limiter: &limiter{
			base:  rate.NewLimiter(rate.Inf, 100),
			clock: clock,
		},
		clock:             clock,
		defaultRetryAfter: defaultRetryAfter,
	}
}

// maxRetries bounds how often one request is replayed after a rate limit.
const maxRetries = 1

// RoundTrip implements http.RoundTripper. A limited request is retried at
// most maxRetries times; after that the limited response is returned.
func (rt *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	for attempt := 0; ; attempt++ {
		if err := rt.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := rt.base.RoundTrip(req)
		if attempt > 0 {
			if err != nil {
				mRateLimitRetries.WithLabelValues("error").Inc()
			} else {
				mRateLimitRetries.WithLabelValues("ok").Inc()
			}
		}
		if err != nil {
			return resp, err
		}

		if !rt.processRateLimit(ctx, resp) || attempt >= maxRetries {
			return resp, nil
		}
		// The body was consumed and cannot be replayed.
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			return resp, nil
		}

		if resp.Body != nil {
			resp.Body.Close()
		}
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req = req.Clone(ctx)
			req.Body = body
		}
	}
}

// processRateLimit pauses future requests when resp is rate limited and
// reports whether the request should be retried.
// https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api#exceeding-the-rate-limit
func (rt *RateLimitTransport) processRateLimit(ctx context.Context, resp *http.Response) bool {
	if resp.StatusCode != http.StatusForbidden &&
		resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	log := clog.FromContext(ctx)
	code := strconv.Itoa(resp.StatusCode)

	var (
		retryAfter time.Duration
		reset      time.Time
		remaining  = -1
	)

	if v := resp.Header.Get(HeaderRetryAfter); v != "" {
		if seconds, err := strconv.Atoi(v); err != nil {
			log.Warnf("Failed to parse retry-after header: %v", err)
			mRateLimitHeaderErrors.WithLabelValues(HeaderRetryAfter).Inc()
		} else {
			retryAfter = time.Duration(seconds) * time.Second
		}
	}
	if v := resp.Header.Get(HeaderXRateLimitRemaining); v != "" {
		if r, err := strconv.Atoi(v); err != nil {
			log.Warnf("Failed to parse x-ratelimit-remaining header: %v", err)
			mRateLimitHeaderErrors.WithLabelValues(HeaderXRateLimitRemaining).Inc()
		} else {
			remaining = r
		}
	}
	if v := resp.Header.Get(HeaderXRateLimitReset); v != "" {
		if seconds, err := strconv.ParseInt(v, 10, 64); err != nil {
			log.Warnf("Failed to parse x-ratelimit-reset header: %v", err)
			mRateLimitHeaderErrors.WithLabelValues(HeaderXRateLimitReset).Inc()
		} else {
			reset = time.Unix(seconds, 0)
		}
	}

	if retryAfter > 0 {
		log.With("retry_after", retryAfter).Warn("GitHub rate limit hit, pausing requests")
		rt.pause(code, "retry_after", retryAfter)
		return true
	}

	if remaining == 0 && !reset.IsZero() {
		if d := reset.Sub(rt.clock.Now()); d > 0 {
			log.With("reset_at", reset, "retry_after", d).Warn("GitHub rate limit exhausted, pausing until reset")
			rt.pause(code, "remaining_zero", d)
			return true
		}
	}

	// Without a rate limit signal a 403 is a permission problem.
	if resp.StatusCode == http.StatusForbidden && remaining != 0 {
		return false
	}

	log.With("retry_after", rt.defaultRetryAfter).Warn("GitHub rate limit hit (no usable headers), using default pause")
	rt.pause(code, "default", rt.defaultRetryAfter)
	return true
}

func (rt *RateLimitTransport) pause(code, reason string, d time.Duration) {
	mRateLimitTriggered.WithLabelValues(code, reason).Inc()
	mRateLimitWait.WithLabelValues(reason).Observe(d.Seconds())
	rt.limiter.PauseFor(d)
}

// limiter is a rate limiter that can block all requests for a while.
type limiter struct {
	base  *rate.Limiter
	clock clockwork.Clock

	mu         sync.Mutex
	pauseUntil time.Time
	pauseCh    chan struct{}
}

// Wait blocks until any active pause is over and the rate limiter allows
// a request.
func (l *limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	pauseCh := l.pauseCh
	l.mu.Unlock()

	if pauseCh != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pauseCh:
		}
	}
	return l.base.Wait(ctx)
}

// PauseFor blocks requests for d. An active pause is only ever extended.
func (l *limiter) PauseFor(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until := l.clock.Now().Add(d)
	if !until.After(l.pauseUntil) {
		return
	}
	l.pauseUntil = until

	// Release waiters on the pause being replaced.
	if l.pauseCh != nil {
		close(l.pauseCh)
	}
	l.pauseCh = make(chan struct{})

	timer := l.clock.NewTimer(d)
	go func(ch chan struct{}) {
		defer timer.Stop()
		<-timer.Chan()

		l.mu.Lock()
		defer l.mu.Unlock()
		if ch == l.pauseCh {
			close(ch)
			l.pauseCh = nil
			l.pauseUntil = time.Time{}
		}
	}(l.pauseCh)
}
