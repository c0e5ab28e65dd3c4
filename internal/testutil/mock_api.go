// Package testutil provides testing utilities for the Veracross client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock API endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock Veracross server for testing. It serves
// rate limit headers on every response and records incoming requests.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount int
	requestURLs  []string
	lastAuthUser string
	lastAuthPass string
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.requestURLs = append(mock.requestURLs, r.URL.String())
		if user, pass, ok := r.BasicAuth(); ok {
			mock.lastAuthUser = user
			mock.lastAuthPass = pass
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.requestURLs = nil
	m.lastAuthUser = ""
	m.lastAuthPass = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPagedCollection serves a collection resource split into pages. The
// path must include the ".json" suffix the client appends. Each request
// answers with the page selected by the "page" query parameter (default 1),
// the X-Total-Count header, and healthy rate limit headers.
func (m *MockAPI) SetPagedCollection(path string, pages [][]string, totalCount int) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if pageStr := r.URL.Query().Get("page"); pageStr != "" {
			if p, err := strconv.Atoi(pageStr); err == nil {
				page = p
			}
		}

		w.Header().Set("X-Total-Count", strconv.Itoa(totalCount))
		w.Header().Set("X-Rate-Limit-Remaining", "299")
		w.Header().Set("X-Rate-Limit-Reset", "60")
		w.Header().Set("Content-Type", "application/json")

		if page < 1 || page > len(pages) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("[]"))
			return
		}

		records := make([]json.RawMessage, len(pages[page-1]))
		for i, rec := range pages[page-1] {
			records[i] = json.RawMessage(rec)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(records)
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockAPI) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// RequestURLs returns the URLs of all requests received, in order.
func (m *MockAPI) RequestURLs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	urls := make([]string, len(m.requestURLs))
	copy(urls, m.requestURLs)
	return urls
}

// LastBasicAuth returns the credentials of the most recent request.
func (m *MockAPI) LastBasicAuth() (string, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastAuthUser, m.lastAuthPass
}

// defaultHandler serves an empty collection with healthy rate limit headers.
func (m *MockAPI) defaultHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("X-Rate-Limit-Remaining", "299")
	w.Header().Set("X-Rate-Limit-Reset", "60")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("[]"))
}

// NewHealthyResponse creates a 200 OK response with healthy rate limit headers.
func NewHealthyResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"X-Rate-Limit-Remaining": "299",
			"X-Rate-Limit-Reset":     "60",
			"Content-Type":           "application/json",
		},
	}
}

// NewThrottledResponse creates a 200 OK response that signals the last
// allowed call before the rate limit window resets.
func NewThrottledResponse(body string, resetSeconds int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"X-Rate-Limit-Remaining": "1",
			"X-Rate-Limit-Reset":     strconv.Itoa(resetSeconds),
			"Content-Type":           "application/json",
		},
	}
}

// NewNotFoundResponse creates a 404 response with rate limit headers.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "not found"}`,
		Headers: map[string]string{
			"X-Rate-Limit-Remaining": "299",
			"X-Rate-Limit-Reset":     "60",
			"Content-Type":           "application/json",
		},
	}
}
