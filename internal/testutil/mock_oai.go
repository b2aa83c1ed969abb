// Package testutil provides testing utilities for the OAI-PMH harvester.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockOAIResponse defines the behavior for one mock provider response.
type MockOAIResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockOAI is a configurable mock OAI-PMH provider. Pages are keyed by the
// resumptionToken query parameter; the empty token is the first page.
type MockOAI struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[string][]MockOAIResponse
	served map[string]int

	// Tracking
	RequestCount int
	Requests     []url.Values
}

// NewMockOAI creates a new mock provider.
func NewMockOAI() *MockOAI {
	mock := &MockOAI{
		pages:  make(map[string][]MockOAIResponse),
		served: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		token := query.Get("resumptionToken")

		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, query)
		responses, exists := mock.pages[token]
		var resp MockOAIResponse
		if exists && len(responses) > 0 {
			// The last configured response repeats once the sequence is used up.
			idx := mock.served[token]
			if idx >= len(responses) {
				idx = len(responses) - 1
			}
			resp = responses[idx]
			mock.served[token]++
		}
		mock.mu.Unlock()

		if !exists {
			w.Header().Set("Content-Type", "text/xml; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(ErrorPage("badResumptionToken", "unknown token "+token)))
			return
		}

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
	}))

	return mock
}

// URL returns the mock provider base URL.
func (m *MockOAI) URL() string {
	return m.server.URL + "/v1/"
}

// Close shuts down the mock server.
func (m *MockOAI) Close() {
	m.server.Close()
}

// SetPage configures the responses served for token. Repeated requests for
// the same token walk through resps in order.
func (m *MockOAI) SetPage(token string, resps ...MockOAIResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[token] = resps
	m.served[token] = 0
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockOAI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// Tokens returns the resumptionToken of every request in arrival order.
func (m *MockOAI) Tokens() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tokens := make([]string, len(m.Requests))
	for i, q := range m.Requests {
		tokens[i] = q.Get("resumptionToken")
	}
	return tokens
}

// NewPageResponse creates a 200 OK response carrying body.
func NewPageResponse(body string) MockOAIResponse {
	return MockOAIResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "text/xml; charset=utf-8",
		},
	}
}

// NewTruncatedResponse creates a 200 OK response whose body is cut off
// halfway, as happens when a provider drops the connection mid-page.
func NewTruncatedResponse(body string) MockOAIResponse {
	return NewPageResponse(body[:len(body)/2])
}

// NewHTMLErrorResponse creates a 200 OK response with an HTML error page,
// which some gateways return in place of the XML document.
func NewHTMLErrorResponse(title string) MockOAIResponse {
	return MockOAIResponse{
		StatusCode: http.StatusOK,
		Body:       "<html><head><title>" + title + "</title></head><body><p>Try again later<br></body></html>",
		Headers: map[string]string{
			"Content-Type": "text/html; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockOAIResponse {
	return MockOAIResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "internal server error",
	}
}

// NewServiceUnavailableResponse creates a 503 response.
func NewServiceUnavailableResponse() MockOAIResponse {
	return MockOAIResponse{
		StatusCode: http.StatusServiceUnavailable,
		Headers: map[string]string{
			"Retry-After": "120",
		},
	}
}
