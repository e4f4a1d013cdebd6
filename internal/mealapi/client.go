package mealapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/mealdesk/mealdesk/internal/config"
	"github.com/mealdesk/mealdesk/internal/version"
)

// APIError is returned for every non-2xx response of the remote API.
type APIError struct {
	StatusCode int
	// Message is the "error" field of the response body, empty if there was none.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API request failed with status %d", e.StatusCode)
}

// Client represents a meal order API client.
type Client struct {
	baseURL   string
	retrier   *Retrier
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithTimer replaces the timer used to wait between retries.
func WithTimer(t backoff.Timer) Option {
	return func(c *Client) {
		c.retrier.Timer = t
	}
}

// New creates a new meal order API client.
func New(cfg *config.APIConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attempts, delay := DefaultRetryAttempts, DefaultRetryDelay
	if cfg.Retry != nil {
		attempts, delay = cfg.Retry.Attempts, cfg.Retry.Delay
	}

	c := &Client{
		baseURL:   cfg.URL,
		retrier:   NewRetrier(&http.Client{Timeout: timeout}, attempts, delay),
		userAgent: fmt.Sprintf("mealdesk/%s", version.Version),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs a request against the API through the retrier and
// turns non-2xx responses into an *APIError.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, queryParams url.Values, body any) (*http.Response, error) {
	reqURL := c.baseURL + endpoint
	if len(queryParams) > 0 {
		reqURL += "?" + queryParams.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	requestID := uuid.New().String()
	resp, err := c.retrier.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close() //nolint:errcheck
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb errorBody
		if data, readErr := io.ReadAll(resp.Body); readErr == nil && json.Unmarshal(data, &eb) == nil {
			apiErr.Message = eb.Error
		}
		return nil, apiErr
	}

	return resp, nil
}

func (c *Client) decode(ctx context.Context, method, endpoint string, queryParams url.Values, body, out any) error {
	resp, err := c.doRequest(ctx, method, endpoint, queryParams, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding %s response: %w", endpoint, err)
	}
	return nil
}

// OrdersByDate returns all orders of the given YYYY-MM-DD date.
func (c *Client) OrdersByDate(ctx context.Context, date string) ([]Order, error) {
	var res OrdersResponse
	if err := c.decode(ctx, http.MethodGet, "/detailed_summary", url.Values{"date": {date}}, nil, &res); err != nil {
		return nil, err
	}
	if res.Orders == nil {
		return []Order{}, nil
	}
	return res.Orders, nil
}

// OrdersByUser returns the username and all orders of a user.
func (c *Client) OrdersByUser(ctx context.Context, whatsappID string) (*UserOrdersResponse, error) {
	var res UserOrdersResponse
	if err := c.decode(ctx, http.MethodGet, "/orders/"+url.PathEscape(whatsappID), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SaveOrder creates or updates the order of a user for a date.
func (c *Client) SaveOrder(ctx context.Context, payload OrderPayload) error {
	return c.decode(ctx, http.MethodPost, "/orders", nil, payload, nil)
}

// CancelOrder marks the order of a user for a date as canceled.
func (c *Client) CancelOrder(ctx context.Context, whatsappID, date string) error {
	return c.decode(ctx, http.MethodPost, "/orders/cancel_by_date", nil, CancelPayload{WhatsappID: whatsappID, Date: date}, nil)
}

// Users returns all users known to the API.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var res UsersResponse
	if err := c.decode(ctx, http.MethodGet, "/users", nil, nil, &res); err != nil {
		return nil, err
	}
	if res.Users == nil {
		return []User{}, nil
	}
	return res.Users, nil
}

// Ping checks that the API answers below 500. It is used to keep the backend awake.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.retrier.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		return req, nil
	})
	if err != nil {
		return err
	}
	drainAndClose(resp)
	if resp.StatusCode >= http.StatusInternalServerError {
		return &APIError{StatusCode: resp.StatusCode}
	}
	return nil
}
