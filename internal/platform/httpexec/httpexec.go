// Package httpexec runs tasks on a remote worker over HTTP.
//
// The worker receives POST {"task": <task>} and answers with {"result": n} on
// success or a non-2xx status with {"error": "..."} on failure. Transport
// errors and 5xx responses without a worker message are retried with
// exponential backoff.
package httpexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/executor"
	"github.com/phrazzld/taskdeck-api/internal/redact"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// Defaults for the remote executor
const (
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = 200 * time.Millisecond
	maxResponseBytes    = 1 << 20
)

type requestBody struct {
	Task domain.Task `json:"task"`
}

type responseBody struct {
	Result *float64 `json:"result"`
	Error  string   `json:"error"`
}

// Executor posts tasks to a remote worker.
type Executor struct {
	url          string
	client       *http.Client
	limiter      *rate.Limiter
	maxRetries   uint64
	retryBackoff time.Duration
	logger       *slog.Logger
}

var _ executor.Executor = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) { e.client = c }
}

// WithRateLimit caps outgoing requests at rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Executor) { e.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithRetries sets how many times a transport failure is retried and the
// base backoff between attempts.
func WithRetries(maxRetries uint64, backoff time.Duration) Option {
	return func(e *Executor) {
		e.maxRetries = maxRetries
		e.retryBackoff = backoff
	}
}

// NewExecutor creates a remote executor posting to url.
func NewExecutor(url string, timeout time.Duration, logger *slog.Logger, opts ...Option) (*Executor, error) {
	if url == "" {
		return nil, errors.New("url cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	e := &Executor{
		url:          url,
		client:       &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(rate.Inf, 0),
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
		logger:       logger.With("component", "http_executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.retryBackoff <= 0 {
		return nil, errors.New("retry backoff must be positive")
	}

	return e, nil
}

// Execute sends the task to the worker and returns its result.
// Worker-reported failures are returned as *executor.ExecutionError.
func (e *Executor) Execute(ctx context.Context, task domain.Task) (float64, error) {
	payload, err := json.Marshal(requestBody{Task: task})
	if err != nil {
		return 0, fmt.Errorf("failed to encode task: %w", err)
	}

	var result float64
	backoff := retry.WithMaxRetries(e.maxRetries, retry.NewExponential(e.retryBackoff))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}

		res, err := e.post(ctx, payload)
		if err != nil {
			var execErr *executor.ExecutionError
			if errors.As(err, &execErr) || ctx.Err() != nil {
				return err
			}
			e.logger.WarnContext(ctx, "remote worker call failed, retrying",
				slog.String("task_id", task.ID.String()),
				slog.String("error", redact.Error(err)))
			return retry.RetryableError(err)
		}

		result = res
		return nil
	})
	if err != nil {
		return 0, err
	}

	return result, nil
}

func (e *Executor) post(ctx context.Context, payload []byte) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		// drop the request URL, it may carry credentials
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return 0, fmt.Errorf("worker request failed: %w", urlErr.Err)
		}
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	var body responseBody
	decodeErr := json.Unmarshal(data, &body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && body.Error != "" {
			return 0, executor.NewExecutionError(body.Error)
		}
		if resp.StatusCode >= 500 {
			return 0, fmt.Errorf("worker returned status %d", resp.StatusCode)
		}
		return 0, executor.NewExecutionError(http.StatusText(resp.StatusCode))
	}

	if decodeErr != nil {
		return 0, executor.NewExecutionError("invalid worker response")
	}
	if body.Result == nil {
		if body.Error != "" {
			return 0, executor.NewExecutionError(body.Error)
		}
		return 0, executor.NewExecutionError("worker response has no result")
	}

	return *body.Result, nil
}
