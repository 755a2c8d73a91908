// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package smartthings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Caisho/smartthings-api-extractor/lib/clock"
	"github.com/Caisho/smartthings-api-extractor/lib/secret"
)

// newTestClient builds a Client against server with a no-delay retry
// policy unless the test overrides it.
func newTestClient(t *testing.T, server *httptest.Server, retry RetryPolicy, clk clock.Clock) *Client {
	t.Helper()

	token, err := secret.NewFromBytes([]byte("test-token"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { token.Close() })

	client, err := NewClient(ClientConfig{
		BaseURL:    server.URL,
		Token:      token,
		HTTPClient: server.Client(),
		Retry:      retry,
		Clock:      clk,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func noRetryDelay(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts}
}

func testQuery() HistoryQuery {
	return HistoryQuery{LocationID: "loc-1", DeviceID: "dev-1", Limit: 2}
}

func pageBody(nextHref string, items ...string) string {
	body := `{"items":[`
	for i, item := range items {
		if i > 0 {
			body += ","
		}
		body += item
	}
	body += `]`
	if nextHref != "" {
		body += fmt.Sprintf(`,"_links":{"next":{"href":%q}}`, nextHref)
	}
	return body + `}`
}

func eventItem(epoch int64, value string) string {
	return fmt.Sprintf(`{"deviceId":"dev-1","capability":"switch","attribute":"switch","value":%q,"epoch":%d}`, value, epoch)
}

func TestFetchFollowsPaginationCursor(t *testing.T) {
	var requests atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}

		switch r.URL.Query().Get("cursor") {
		case "":
			// First request carries the full query.
			q := r.URL.Query()
			if q.Get("locationId") != "loc-1" || q.Get("deviceId") != "dev-1" {
				t.Errorf("first request query = %v, missing identifiers", q)
			}
			if q.Get("limit") != "2" || q.Get("oldestFirst") != "false" {
				t.Errorf("first request query = %v, wrong paging params", q)
			}
			fmt.Fprint(w, pageBody(server.URL+"/v1/history/devices?cursor=p2",
				eventItem(1000, "on"), eventItem(2000, "off")))
		case "p2":
			fmt.Fprint(w, pageBody(server.URL+"/v1/history/devices?cursor=p3",
				eventItem(3000, "on"), eventItem(4000, "off")))
		case "p3":
			fmt.Fprint(w, pageBody("", eventItem(5000, "on")))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, noRetryDelay(1), nil)
	records, err := client.FetchDeviceHistory(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("FetchDeviceHistory: %v", err)
	}

	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	if requests.Load() != 3 {
		t.Fatalf("server saw %d requests, want 3", requests.Load())
	}
	// Page-arrival order is preserved.
	if records[0].Epoch != 1000 || records[4].Epoch != 5000 {
		t.Fatalf("records out of arrival order: first epoch %d, last epoch %d", records[0].Epoch, records[4].Epoch)
	}
}

func TestFetchStopsOnEmptyPage(t *testing.T) {
	var requests atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Query().Get("cursor") == "" {
			fmt.Fprint(w, pageBody(server.URL+"/v1/history/devices?cursor=p2", eventItem(1000, "on")))
			return
		}
		// Empty page that still advertises a next cursor: pagination
		// must end anyway.
		fmt.Fprint(w, pageBody(server.URL+"/v1/history/devices?cursor=p3"))
	}))
	defer server.Close()

	client := newTestClient(t, server, noRetryDelay(1), nil)
	records, err := client.FetchDeviceHistory(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("FetchDeviceHistory: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if requests.Load() != 2 {
		t.Fatalf("server saw %d requests, want 2", requests.Load())
	}
}

func TestFetchRetriesRateLimitThenSucceeds(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"requestId":"r-1","code":"TooManyRequests","message":"rate limit exceeded"}`)
			return
		}
		fmt.Fprint(w, pageBody("", eventItem(1000, "on")))
	}))
	defer server.Close()

	client := newTestClient(t, server, noRetryDelay(4), nil)
	records, err := client.FetchDeviceHistory(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("FetchDeviceHistory: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if requests.Load() != 3 {
		t.Fatalf("server saw %d requests, want 3 (2 rate limited + 1 success)", requests.Load())
	}
}

func TestFetchRateLimitExhaustsRetryBudget(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"code":"TooManyRequests","message":"rate limit exceeded"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, noRetryDelay(3), nil)
	_, err := client.FetchDeviceHistory(context.Background(), testQuery())
	if err == nil {
		t.Fatal("FetchDeviceHistory succeeded against a permanently rate-limited server")
	}

	if requests.Load() != 3 {
		t.Fatalf("server saw %d requests, want exactly max_attempts (3)", requests.Load())
	}

	var exhausted *RetriesExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error %v is not a RetriesExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if !IsRateLimited(err) {
		t.Fatalf("IsRateLimited(%v) = false, want true", err)
	}
}

func TestFetchAuthFailureIsNotRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"requestId":"r-2","code":"UnauthorizedError","message":"invalid token"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, noRetryDelay(5), nil)
	_, err := client.FetchDeviceHistory(context.Background(), testQuery())
	if err == nil {
		t.Fatal("FetchDeviceHistory succeeded with an invalid token")
	}
	if requests.Load() != 1 {
		t.Fatalf("server saw %d requests, want 1 (no retry on auth failure)", requests.Load())
	}
	if !IsAuthError(err) {
		t.Fatalf("IsAuthError(%v) = false, want true", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "UnauthorizedError" {
		t.Fatalf("error %v does not carry the API error code", err)
	}
}

func TestFetchOtherClientErrorIsFatal(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":"ConstraintViolationError","message":"limit out of range"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, noRetryDelay(5), nil)
	_, err := client.FetchDeviceHistory(context.Background(), testQuery())
	if err == nil {
		t.Fatal("FetchDeviceHistory succeeded on a 400 response")
	}
	if requests.Load() != 1 {
		t.Fatalf("server saw %d requests, want 1 (no retry on 400)", requests.Load())
	}
}

func TestFetchServerErrorIsRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, pageBody("", eventItem(1000, "on")))
	}))
	defer server.Close()

	client := newTestClient(t, server, noRetryDelay(2), nil)
	records, err := client.FetchDeviceHistory(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("FetchDeviceHistory: %v", err)
	}
	if len(records) != 1 || requests.Load() != 2 {
		t.Fatalf("records = %d, requests = %d; want 1 record after one 502 retry", len(records), requests.Load())
	}
}

func TestFetchMalformedPageAbortsExtraction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": [{`)
	}))
	defer server.Close()

	client := newTestClient(t, server, noRetryDelay(3), nil)
	_, err := client.FetchDeviceHistory(context.Background(), testQuery())
	if !errors.Is(err, ErrMalformedPage) {
		t.Fatalf("error = %v, want ErrMalformedPage", err)
	}
}

func TestFetchConnectionFailureExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // every request now fails at the transport level

	client := newTestClient(t, server, noRetryDelay(2), nil)
	_, err := client.FetchDeviceHistory(context.Background(), testQuery())
	if err == nil {
		t.Fatal("FetchDeviceHistory succeeded against a closed server")
	}

	var exhausted *RetriesExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error %v is not a RetriesExhaustedError", err)
	}
	if IsRateLimited(err) {
		t.Fatalf("connection failure misclassified as rate limit: %v", err)
	}
}

func TestFetchBackoffUsesInjectedClock(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"code":"TooManyRequests","message":"rate limit exceeded"}`)
			return
		}
		fmt.Fprint(w, pageBody("", eventItem(1000, "on")))
	}))
	defer server.Close()

	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
	client := newTestClient(t, server, policy, fakeClock)

	type result struct {
		records []RawEvent
		err     error
	}
	done := make(chan result, 1)
	go func() {
		records, err := client.FetchDeviceHistory(context.Background(), testQuery())
		done <- result{records, err}
	}()

	// First retry backoff: 1s. The request count must not grow until
	// the clock advances.
	fakeClock.WaitForTimers(1)
	if requests.Load() != 1 {
		t.Fatalf("requests = %d before first backoff elapsed, want 1", requests.Load())
	}
	fakeClock.Advance(time.Second)

	// Second retry backoff: 2s.
	fakeClock.WaitForTimers(1)
	if requests.Load() != 2 {
		t.Fatalf("requests = %d before second backoff elapsed, want 2", requests.Load())
	}
	fakeClock.Advance(2 * time.Second)

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("FetchDeviceHistory: %v", r.err)
		}
		if len(r.records) != 1 {
			t.Fatalf("got %d records, want 1", len(r.records))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not complete after both backoffs elapsed")
	}
}
