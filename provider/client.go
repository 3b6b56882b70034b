package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	defaultRateLimit  = 10 // requests per second
)

// client is the shared HTTP plumbing for provider calls: JSON round trips,
// rate limiting, and bounded exponential-backoff retries on transient
// failures (network errors, 429, 5xx).
type client struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
}

func newClient(name string, timeout time.Duration, requestsPerSecond float64) *client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultRateLimit
	}
	return &client{
		name:       name,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		maxRetries: defaultMaxRetries,
	}
}

// postJSON sends body to url and decodes the response into out.
func (c *client) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Provider: c.name, Message: "encode request", cause: err}
	}

	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(&Error{Provider: c.name, Message: "build request", cause: err})
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Transport failure: retryable.
			return &Error{Provider: c.name, Message: "send request", cause: err}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return &Error{Provider: c.name, Message: "read response", cause: err}
		}

		if resp.StatusCode != http.StatusOK {
			perr := &Error{
				Provider:   c.name,
				StatusCode: resp.StatusCode,
				Message:    truncate(string(respBody), 512),
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return perr
			}
			return backoff.Permanent(perr)
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return backoff.Permanent(&Error{Provider: c.name, Message: "decode response", cause: err})
		}
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	return backoff.Retry(op, bo)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
