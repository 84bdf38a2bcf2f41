// Package testutil provides testing utilities for the Zotero MCP server.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines one canned response from the mock Zotero server.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest captures one request the mock server received.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// MockZotero is a configurable mock Zotero API server. Responses are
// keyed by "METHOD /path". Queued responses are consumed FIFO so retry
// sequences can be scripted; a sticky handler answers once the queue for
// its route is drained.
type MockZotero struct {
	server *httptest.Server
	mu     sync.Mutex

	handlers map[string]http.HandlerFunc
	queues   map[string][]MockResponse
	requests []RecordedRequest
}

// NewMockZotero creates a new mock Zotero API server.
func NewMockZotero() *MockZotero {
	mock := &MockZotero{
		handlers: make(map[string]http.HandlerFunc),
		queues:   make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		key := routeKey(r.Method, r.URL.Path)

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		var queued *MockResponse
		if queue := mock.queues[key]; len(queue) > 0 {
			next := queue[0]
			mock.queues[key] = queue[1:]
			queued = &next
		}
		handler := mock.handlers[key]
		mock.mu.Unlock()

		if queued != nil {
			writeMockResponse(w, *queued)
			return
		}
		if handler != nil {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "Not found")
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockZotero) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockZotero) Close() {
	m.server.Close()
}

// Reset clears recorded requests and scripted responses.
func (m *MockZotero) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = make(map[string]http.HandlerFunc)
	m.queues = make(map[string][]MockResponse)
	m.requests = nil
}

// SetHandler installs a custom handler for a method and path.
func (m *MockZotero) SetHandler(method, path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[routeKey(method, path)] = handler
}

// SetResponse configures a sticky canned response for a method and path.
func (m *MockZotero) SetResponse(method, path string, resp MockResponse) {
	m.SetHandler(method, path, func(w http.ResponseWriter, r *http.Request) {
		writeMockResponse(w, resp)
	})
}

// QueueResponses appends scripted responses for a method and path. Each
// request consumes one response in order.
func (m *MockZotero) QueueResponses(method, path string, resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := routeKey(method, path)
	m.queues[key] = append(m.queues[key], resps...)
}

// Requests returns a copy of all recorded requests.
func (m *MockZotero) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests received.
func (m *MockZotero) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// RequestsFor returns the recorded requests matching a method and path.
func (m *MockZotero) RequestsFor(method, path string) []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RecordedRequest
	for _, req := range m.requests {
		if req.Method == method && req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

func routeKey(method, path string) string {
	return method + " " + path
}

func writeMockResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		io.WriteString(w, resp.Body)
	}
}

// NewJSONResponse creates a 200 response with a JSON body.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewItemsPage creates a 200 list response carrying Total-Results and,
// when nextStart is non-negative, a rel="next" Link header.
func NewItemsPage(body string, total, nextStart int) MockResponse {
	headers := map[string]string{
		"Content-Type":  "application/json",
		"Total-Results": strconv.Itoa(total),
	}
	if nextStart >= 0 {
		headers["Link"] = fmt.Sprintf(
			`<https://api.zotero.org/users/0/items?start=%d>; rel="next", <https://api.zotero.org/users/0/items>; rel="first"`,
			nextStart,
		)
	}
	return MockResponse{StatusCode: http.StatusOK, Body: body, Headers: headers}
}

// NewRateLimitedResponse creates a 429 response. A non-empty retryAfter
// is attached as the Retry-After header.
func NewRateLimitedResponse(retryAfter string) MockResponse {
	resp := MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       "Too many requests",
		Headers:    map[string]string{},
	}
	if retryAfter != "" {
		resp.Headers["Retry-After"] = retryAfter
	}
	return resp
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "Internal server error",
	}
}
