// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

// Package smartthings is a client for the SmartThings device history
// API. It handles bearer authentication, cursor pagination, and
// bounded retry with exponential backoff; it deliberately does not
// sort, dedupe, or interpret the events it returns.
package smartthings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"context"

	"github.com/Caisho/smartthings-api-extractor/lib/clock"
	"github.com/Caisho/smartthings-api-extractor/lib/netutil"
	"github.com/Caisho/smartthings-api-extractor/lib/secret"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the API root (e.g. "https://api.smartthings.com").
	BaseURL string
	// Token is the bearer token for every request. The client reads
	// it at request time and never logs it; the caller retains
	// ownership and closes it after the extraction.
	Token *secret.Buffer
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used. Set its Timeout to bound individual requests.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
	// Retry is the per-page retry policy.
	Retry RetryPolicy
	// Clock drives retry backoff and page pacing. If nil, the real
	// clock is used.
	Clock clock.Clock
	// PageDelay is a courtesy pause between successful page fetches.
	// Zero disables pacing.
	PageDelay time.Duration
}

// Client is an authenticated SmartThings API client.
type Client struct {
	baseURL    string
	token      *secret.Buffer
	httpClient *http.Client
	logger     *slog.Logger
	retry      RetryPolicy
	clock      clock.Clock
	pageDelay  time.Duration
}

// NewClient creates a new Client. The base URL is validated here so a
// malformed endpoint fails at construction, not mid-extraction.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("smartthings: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("smartthings: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if config.Token == nil {
		return nil, fmt.Errorf("smartthings: Token is required")
	}
	if config.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("smartthings: Retry.MaxAttempts must be at least 1, got %d", config.Retry.MaxAttempts)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		token:      config.Token,
		httpClient: httpClient,
		logger:     logger,
		retry:      config.Retry,
		clock:      clk,
		pageDelay:  config.PageDelay,
	}, nil
}

// get performs a single authenticated GET against rawURL and returns
// the response body. Non-2xx responses decode into *APIError.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("smartthings: failed to create request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Authorization", "Bearer "+c.token.String())

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("smartthings: GET %s failed: %w", request.URL.Path, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("smartthings: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	apiErr := &APIError{StatusCode: response.StatusCode}
	if jsonErr := json.Unmarshal(responseBody, apiErr); jsonErr != nil || apiErr.Message == "" {
		// Non-JSON error body (proxies, load balancers). Keep the raw
		// text so the failure is still diagnosable.
		apiErr.Message = strings.TrimSpace(string(responseBody))
	}
	return nil, apiErr
}

// getWithRetry performs get with the client's bounded retry policy.
// Rate limits (429), server errors (5xx), and transport failures are
// retried with exponential backoff plus jitter; auth failures and
// other client errors return immediately. Backoff sleeps go through
// the injected clock and respect context cancellation.
func (c *Client) getWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	var lastError error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.retry.Backoff(attempt - 1)
			c.logger.Warn("transient page fetch failure, retrying",
				"attempt", attempt-1,
				"backoff", backoff,
				"error", lastError,
			)
			select {
			case <-c.clock.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := c.get(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastError = err
	}
	return nil, &RetriesExhaustedError{Attempts: c.retry.MaxAttempts, Last: lastError}
}
