// Package testing holds shared helpers for package tests: a mocked HTTP
// transport and builders for synthetic document fixtures.
package testing

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockedRouterTripper struct {
	t         testing.TB
	routes    map[string]string
	statuses  map[string]int
	seenURLsM sync.Mutex
	seenURLs  map[string]struct{}
}

func (m *mockedRouterTripper) RoundTrip(
	request *http.Request) (*http.Response, error) {

	urlStr := request.URL.String()
	rr := httptest.NewRecorder()

	if request.Body != nil {
		// Drain so callers relying on full writes do not block.
		_, _ = io.Copy(io.Discard, request.Body)
	}

	body, ok := m.routes[urlStr]
	if !ok {
		m.t.Errorf("unexpected http request: %v", urlStr)
		rr.WriteHeader(http.StatusNotFound)
		httpResp := rr.Result()
		httpResp.Request = request
		return httpResp, nil
	}

	m.seenURLsM.Lock()
	if m.seenURLs == nil {
		m.seenURLs = make(map[string]struct{})
	}
	m.seenURLs[urlStr] = struct{}{}
	m.seenURLsM.Unlock()

	if status, ok := m.statuses[urlStr]; ok {
		rr.WriteHeader(status)
	}
	_, _ = rr.WriteString(body)

	httpResp := rr.Result()
	httpResp.Request = request
	return httpResp, nil
}

type mockHTTPClientOptions struct {
	ignoreUntouchedURLs bool
	statuses            map[string]int
}

type MockHTTPClientOption func(*mockHTTPClientOptions)

func IgnoreUntouchedURLs() MockHTTPClientOption {
	return func(opts *mockHTTPClientOptions) {
		opts.ignoreUntouchedURLs = true
	}
}

// WithStatus makes the mocked transport answer url with the given status
// code instead of 200.
func WithStatus(url string, status int) MockHTTPClientOption {
	return func(opts *mockHTTPClientOptions) {
		if opts.statuses == nil {
			opts.statuses = make(map[string]int)
		}
		opts.statuses[url] = status
	}
}

// MockHTTPClient replaces http.DefaultTransport with a router keyed by URL,
// answering each route with the mapped body. The returned teardown restores
// the transport and asserts every route was touched.
func MockHTTPClient(t testing.TB, routes map[string]string,
	opts ...MockHTTPClientOption) func() {

	var op mockHTTPClientOptions
	for _, o := range opts {
		o(&op)
	}

	oldRoundTripper := http.DefaultTransport
	transport := &mockedRouterTripper{t: t, routes: routes, statuses: op.statuses}
	http.DefaultTransport = transport
	return func() {
		http.DefaultTransport = oldRoundTripper

		if !op.ignoreUntouchedURLs {
			for u := range routes {
				_, ok := transport.seenURLs[u]
				assert.True(t, ok,
					"found a URL in routes that we did not touch: %v", u)
			}
		}
	}
}
