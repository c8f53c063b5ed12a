// Package testutil provides an httptest-backed fake platform API for
// exercising the platform clients.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

// MockServer is a mock HTTP server for testing platform clients.
// Routes are keyed by method and path; unmatched requests get a 404.
type MockServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []Request
}

// MockResponse defines a canned response.
type MockResponse struct {
	StatusCode int
	Body       interface{}
	Headers    map[string]string
}

// Request is a request received by the mock server.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// JSON decodes the request body into v.
func (r Request) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// NewMockServer creates and starts a mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		routes: make(map[string]http.HandlerFunc),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close shuts the server down.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// Handle registers fn for method and path.
func (ms *MockServer) Handle(method, path string, fn http.HandlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.routes[method+" "+path] = fn
}

// SetResponse registers a fixed response for method and path.
func (ms *MockServer) SetResponse(method, path string, resp MockResponse) {
	ms.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		WriteResponse(w, resp)
	})
}

// SetSequence registers responses served in order. The last one repeats.
func (ms *MockServer) SetSequence(method, path string, resps ...MockResponse) {
	var mu sync.Mutex
	next := 0
	ms.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		resp := resps[next]
		if next < len(resps)-1 {
			next++
		}
		mu.Unlock()
		WriteResponse(w, resp)
	})
}

// Requests returns a copy of all requests received so far.
func (ms *MockServer) Requests() []Request {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := make([]Request, len(ms.requests))
	copy(out, ms.requests)
	return out
}

// RequestsTo returns the requests received for method and path.
func (ms *MockServer) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range ms.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// RequestCount returns the number of requests received.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	fn, ok := ms.routes[r.Method+" "+r.URL.Path]
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	fn(w, r)
}

// WriteResponse writes resp to w. String and []byte bodies are written
// verbatim; anything else is JSON encoded.
func WriteResponse(w http.ResponseWriter, resp MockResponse) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}

	switch v := resp.Body.(type) {
	case nil:
		w.WriteHeader(resp.StatusCode)
	case string:
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write([]byte(v))
	case []byte:
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(v)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_ = json.NewEncoder(w).Encode(v)
	}
}

// JSON is a shorthand for a 200 response with a JSON body.
func JSON(body interface{}) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}

// Status is a shorthand for an empty response with the given status code.
func Status(code int) MockResponse {
	return MockResponse{StatusCode: code}
}
