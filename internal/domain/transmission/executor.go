package transmission

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vitaluxe/pharmacy-bridge/internal/domain/pharmacy"
)

const maxResponseBytes = 64 * 1024

// Backoff maps a zero-based completed attempt index to the delay before the
// next attempt.
type Backoff func(attempt int) time.Duration

// LinearBackoff waits 1s after the first failure, 2s after the second, and
// so on.
func LinearBackoff(attempt int) time.Duration {
	return time.Duration(attempt+1) * time.Second
}

// FixedBackoff waits the same delay between every attempt.
func FixedBackoff(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Executor delivers a JSON payload to a pharmacy endpoint with per-attempt
// timeouts and retry backoff. It never returns an error: every run produces
// a Result that the caller records verbatim in the transmission log.
type Executor struct {
	client *http.Client
	sleep  func(time.Duration)
}

type ExecutorOption func(*Executor)

func WithHTTPClient(c *http.Client) ExecutorOption {
	return func(e *Executor) { e.client = c }
}

// WithSleep replaces the inter-attempt delay function, used by tests to run
// retry cycles without real waits.
func WithSleep(fn func(time.Duration)) ExecutorOption {
	return func(e *Executor) { e.sleep = fn }
}

func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		client: &http.Client{},
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute pushes the payload using the pharmacy's configured attempt budget,
// per-attempt timeout, and linear backoff.
func (e *Executor) Execute(ctx context.Context, ph *pharmacy.Pharmacy, headers map[string]string, payload []byte) *Result {
	return e.ExecuteWith(ctx, *ph.APIEndpointURL, headers, payload,
		ph.EffectiveRetryCount(), ph.EffectiveTimeout(), LinearBackoff)
}

// ExecuteWith runs up to attempts POSTs against the endpoint. The first 2xx
// response wins; any other status or transport error consumes the attempt.
// The Result's ErrorMessage holds the last attempt's failure.
func (e *Executor) ExecuteWith(ctx context.Context, endpoint string, headers map[string]string, payload []byte, attempts int, timeout time.Duration, backoff Backoff) *Result {
	result := &Result{}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			e.sleep(backoff(attempt - 1))
		}
		result.AttemptsUsed = attempt + 1
		// The recorded outcome must describe the final attempt only; an
		// earlier attempt's HTTP response must not survive a later
		// transport failure.
		result.ResponseStatus = 0
		result.ResponseBody = ""

		status, body, err := e.doAttempt(ctx, endpoint, headers, payload, timeout)
		if err != nil {
			result.ErrorMessage = err.Error()
			if errors.Is(err, context.DeadlineExceeded) {
				result.ErrorMessage = fmt.Sprintf("Request timeout after %dms", timeout.Milliseconds())
			}
			continue
		}

		result.ResponseStatus = status
		result.ResponseBody = body
		if status >= 200 && status < 300 {
			result.Success = true
			result.ErrorMessage = ""
			return result
		}
		result.ErrorMessage = fmt.Sprintf("HTTP %d: %s", status, body)
	}

	return result
}

func (e *Executor) doAttempt(ctx context.Context, endpoint string, headers map[string]string, payload []byte, timeout time.Duration) (int, string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if attemptCtx.Err() != nil {
			err = fmt.Errorf("%w: %v", attemptCtx.Err(), err)
		}
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}
