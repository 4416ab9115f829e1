// Package ratelimit provides an http.RoundTripper that absorbs HTTP 429
// responses by sleeping until the platform's reset signal and re-sending the
// identical request. Rate limiting never surfaces as an error.
package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"onboarding-pr-miner/internal/common"
)

const (
	// MinWait is the floor applied to every rate-limit sleep.
	MinWait = 60 * time.Second
	// ResetBuffer is added to absolute reset timestamps.
	ResetBuffer = 5 * time.Second
)

// WaitFunc computes how long to sleep after a 429 response.
type WaitFunc func(resp *http.Response, now time.Time) time.Duration

// GitHubWait reads the absolute X-RateLimit-Reset epoch.
func GitHubWait(resp *http.Response, now time.Time) time.Duration {
	reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return MinWait
	}
	wait := time.Unix(reset, 0).Sub(now) + ResetBuffer
	return max(wait, MinWait)
}

// GitLabWait reads the relative Retry-After seconds.
func GitLabWait(resp *http.Response, _ time.Time) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil {
		return MinWait
	}
	return max(time.Duration(secs)*time.Second, MinWait)
}

// Transport retries 429 responses forever. Every other response, and every
// transport error, is returned unchanged.
type Transport struct {
	Base   http.RoundTripper
	Wait   WaitFunc
	Sleep  common.SleepFunc
	Now    func() time.Time
	Logger *slog.Logger
}

// New wraps base (http.DefaultTransport when nil).
func New(base http.RoundTripper, wait WaitFunc, logger *slog.Logger) *Transport {
	return &Transport{Base: base, Wait: wait, Logger: logger}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	for {
		resp, err := t.base().RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		wait := t.wait(resp)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		t.logger().WarnContext(req.Context(), "⏳ rate limited, waiting before retry",
			"url", req.URL.Redacted(), "wait", wait.String())
		if err := t.sleep(req.Context(), wait); err != nil {
			return nil, err
		}

		if req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req = req.Clone(req.Context())
			req.Body = body
		}
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) wait(resp *http.Response) time.Duration {
	now := time.Now()
	if t.Now != nil {
		now = t.Now()
	}
	if t.Wait == nil {
		return MinWait
	}
	return t.Wait(resp, now)
}

func (t *Transport) sleep(ctx context.Context, d time.Duration) error {
	if t.Sleep != nil {
		return t.Sleep(ctx, d)
	}
	return common.Sleep(ctx, d)
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return common.DiscardLogger()
}
