package mealapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
)

// RequestFunc builds a fresh request for every attempt, so bodies can be replayed.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Retrier performs HTTP requests and retries connectivity errors and 5xx responses
// with exponential backoff. Attempts is the number of retries after the first try,
// the wait before retry k is Delay * 2^(k-1).
type Retrier struct {
	Attempts int
	Delay    time.Duration
	// Timer is used to wait between attempts. Nil uses a real timer.
	Timer backoff.Timer

	client *http.Client
	logger *log.Logger
}

// NewRetrier creates a retrier that sends requests through client.
func NewRetrier(client *http.Client, attempts int, delay time.Duration) *Retrier {
	if client == nil {
		client = http.DefaultClient
	}
	return &Retrier{
		Attempts: attempts,
		Delay:    delay,
		client:   client,
		logger:   log.Default().WithPrefix("mealapi"),
	}
}

// serverError marks a 5xx response that is worth another attempt.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error %d", e.status)
}

func (r *Retrier) backOff(ctx context.Context) backoff.BackOff {
	attempts := max(r.Attempts, 0)
	b := &backoff.ExponentialBackOff{
		InitialInterval:     r.Delay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Duration(math.MaxInt64),
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts)), ctx)
}

// Do sends the request built by newRequest. It returns the first response below 500.
// When every attempt ends in a 5xx the last response is returned without error,
// when every attempt fails to connect the last transport error is returned.
func (r *Retrier) Do(ctx context.Context, newRequest RequestFunc) (*http.Response, error) {
	var (
		resp *http.Response
		url  string
	)

	operation := func() error {
		if resp != nil {
			drainAndClose(resp)
			resp = nil
		}

		req, err := newRequest(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error creating request: %w", err))
		}
		url = req.URL.String()

		res, err := r.client.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return backoff.Permanent(ctxErr)
			}
			return fmt.Errorf("error performing request: %w", err)
		}

		resp = res
		if res.StatusCode >= http.StatusInternalServerError {
			return &serverError{status: res.StatusCode}
		}
		return nil
	}

	notify := func(err error, next time.Duration) {
		r.logger.Warn("retrying request", "url", url, "error", err, "delay", next)
	}

	err := backoff.RetryNotifyWithTimer(operation, r.backOff(ctx), notify, r.Timer)
	if err == nil {
		return resp, nil
	}

	var srvErr *serverError
	if errors.As(err, &srvErr) && resp != nil {
		return resp, nil
	}

	if resp != nil {
		drainAndClose(resp)
	}
	return nil, err
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close() //nolint:errcheck
}
