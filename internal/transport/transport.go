// Package transport provides an http.RoundTripper that waits out rate limiting.
package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cchalm/learnlog/internal/logger"
)

// DefaultMaxRetries is the number of rate-limited attempts retried before the 429 response is returned as is
const DefaultMaxRetries = 5

// maxWait caps a single Retry-After wait
const maxWait = 2 * time.Minute

type RateLimitedTransport struct {
	base       http.RoundTripper
	log        *logger.Logger
	maxRetries int
}

// WithRateLimiting wraps base so that 429 responses carrying a Retry-After header are retried after the
// requested delay, up to maxRetries times. A nil base uses http.DefaultTransport.
func WithRateLimiting(base http.RoundTripper, log *logger.Logger, maxRetries int) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if log == nil {
		log = logger.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &RateLimitedTransport{base: base, log: log, maxRetries: maxRetries}
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Preserve the original request body for retries
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		err = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		// Restore the request body for each attempt
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return resp, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= t.maxRetries {
			return resp, nil
		}

		waitDuration := retryAfter(resp.Header.Get("Retry-After"), time.Now())
		if waitDuration <= 0 {
			return resp, nil
		}

		// Close the response body to free resources
		err = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close response body: %w", err)
		}

		t.log.Warn("rate limited, waiting", "host", req.URL.Host, "wait", waitDuration, "attempt", attempt+1)
		timer := time.NewTimer(waitDuration)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
}

// retryAfter parses a Retry-After value given in seconds or as an HTTP date. It returns 0 when the value is
// missing or unparseable.
func retryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	var d time.Duration
	if seconds, err := strconv.Atoi(value); err == nil {
		d = time.Duration(seconds) * time.Second
	} else if retryTime, err := http.ParseTime(value); err == nil {
		d = retryTime.Sub(now)
	}
	return min(d, maxWait)
}
