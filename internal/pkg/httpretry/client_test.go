package httpretry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryClient(client HTTPDoer, maxRetries int) *RetryClient {
	return &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  time.Millisecond,
		maxDelay:   5 * time.Millisecond,
	}
}

// flakyServer fails with the given status until succeedAfter requests have
// been seen, then returns 200.
type flakyServer struct {
	mu           sync.Mutex
	requests     int
	bodies       []string
	failStatus   int
	succeedAfter int
}

func (f *flakyServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests++
	f.bodies = append(f.bodies, string(body))
	n := f.requests
	f.mu.Unlock()

	if n <= f.succeedAfter {
		w.WriteHeader(f.failStatus)
		return
	}
	w.Write([]byte(`ok`))
}

func (f *flakyServer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func TestNewRetryClient_Defaults(t *testing.T) {
	rc := NewRetryClient(nil, 0)
	assert.NotNil(t, rc.client)
	assert.Equal(t, 3, rc.maxRetries)
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	fs := &flakyServer{}
	server := httptest.NewServer(http.HandlerFunc(fs.handler))
	defer server.Close()

	rc := fastRetryClient(server.Client(), 3)
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, fs.count())
}

func TestDo_RetriesTransientStatus(t *testing.T) {
	fs := &flakyServer{failStatus: http.StatusServiceUnavailable, succeedAfter: 2}
	server := httptest.NewServer(http.HandlerFunc(fs.handler))
	defer server.Close()

	rc := fastRetryClient(server.Client(), 3)
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, fs.count())
}

func TestDo_DoesNotRetryClientErrors(t *testing.T) {
	fs := &flakyServer{failStatus: http.StatusBadRequest, succeedAfter: 10}
	server := httptest.NewServer(http.HandlerFunc(fs.handler))
	defer server.Close()

	rc := fastRetryClient(server.Client(), 3)
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1, fs.count(), "4xx other than 429 must not retry")
}

func TestDo_ExhaustedRetriesReturnsLastResponse(t *testing.T) {
	fs := &flakyServer{failStatus: http.StatusInternalServerError, succeedAfter: 100}
	server := httptest.NewServer(http.HandlerFunc(fs.handler))
	defer server.Close()

	rc := fastRetryClient(server.Client(), 2)
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := rc.Do(req)
	require.NoError(t, err, "the caller gets the final response, not an error")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 3, fs.count(), "initial attempt plus two retries")
}

func TestDo_ResetsBodyBetweenAttempts(t *testing.T) {
	fs := &flakyServer{failStatus: http.StatusTooManyRequests, succeedAfter: 1}
	server := httptest.NewServer(http.HandlerFunc(fs.handler))
	defer server.Close()

	rc := fastRetryClient(server.Client(), 3)
	req, _ := http.NewRequest(http.MethodPost, server.URL, bytes.NewReader([]byte(`{"ids":["a1"]}`)))

	resp, err := rc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, 2, fs.count())
	assert.Equal(t, `{"ids":["a1"]}`, fs.bodies[0])
	assert.Equal(t, `{"ids":["a1"]}`, fs.bodies[1], "retried request must carry the full body again")
}

func TestDo_ContextCancellationStopsRetries(t *testing.T) {
	fs := &flakyServer{failStatus: http.StatusServiceUnavailable, succeedAfter: 100}
	server := httptest.NewServer(http.HandlerFunc(fs.handler))
	defer server.Close()

	rc := &RetryClient{
		client:     server.Client(),
		maxRetries: 5,
		baseDelay:  200 * time.Millisecond,
		maxDelay:   time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := rc.Do(req)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "cancellation must short-circuit the backoff wait")
}

func TestDo_NetworkErrorRetried(t *testing.T) {
	calls := 0
	stub := doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(nil)),
		}, nil
	})

	rc := fastRetryClient(stub, 3)
	req, _ := http.NewRequest(http.MethodGet, "http://backend.local/api/v1/reports", nil)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls)
}

type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestBackoff_Bounds(t *testing.T) {
	rc := &RetryClient{baseDelay: 500 * time.Millisecond, maxDelay: 15 * time.Second}

	for attempt := 1; attempt <= 10; attempt++ {
		d := rc.backoff(attempt)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 15*time.Second)
	}
}

func TestRetryableStatus(t *testing.T) {
	retryable := []int{429, 500, 502, 503, 504}
	for _, code := range retryable {
		assert.True(t, retryableStatus(code), "status %d", code)
	}
	notRetryable := []int{200, 201, 204, 301, 400, 401, 403, 404, 409}
	for _, code := range notRetryable {
		assert.False(t, retryableStatus(code), "status %d", code)
	}
}
