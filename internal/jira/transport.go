package jira

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryTransport retries rate-limited and 5xx responses with exponential
// backoff (300ms, 600ms, 1.2s, ...). Requests whose body cannot be
// replayed are sent once.
type RetryTransport struct {
	Base    http.RoundTripper
	Retries int
	Backoff time.Duration

	sleep func(time.Duration) <-chan time.Time
}

// NewRetryTransport wraps base, or http.DefaultTransport when base is nil.
func NewRetryTransport(base http.RoundTripper, retries int) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{Base: base, Retries: retries, Backoff: 300 * time.Millisecond}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.Base.RoundTrip(req)

	for attempt := 0; attempt < t.Retries; attempt++ {
		if err != nil || !retryable(resp.StatusCode) || !replayable(req) {
			return resp, err
		}

		wait := retryAfter(resp, t.Backoff<<attempt)
		resp.Body.Close()

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-t.after(wait):
		}

		if req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, berr
			}
			req = req.Clone(req.Context())
			req.Body = body
		}
		resp, err = t.Base.RoundTrip(req)
	}

	return resp, err
}

func (t *RetryTransport) after(d time.Duration) <-chan time.Time {
	if t.sleep != nil {
		return t.sleep(d)
	}
	return time.After(d)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Searches are POSTed but read-only, so they are replayed like GETs.
func replayable(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		return true
	case http.MethodPost:
		return strings.HasSuffix(req.URL.Path, "/search/jql") && (req.Body == nil || req.GetBody != nil)
	}
	return false
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
