package relay

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultFetchTimeout bounds a single upstream GET
const DefaultFetchTimeout = 10 * time.Second

// Fetcher retrieves the text content of a URL.
// A non-2xx answer is reported as *UpstreamStatusError, a network failure as *FetchFaultError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherOption configures an HTTPFetcher
type FetcherOption func(*HTTPFetcher)

// WithTimeout sets the per-request client timeout
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client.Timeout = timeout
	}
}

// WithTransport replaces the client transport
func WithTransport(transport http.RoundTripper) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client.Transport = transport
	}
}

// HTTPFetcher is a Fetcher backed by net/http with the client's default redirect policy
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a new HTTPFetcher
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			Timeout:   DefaultFetchTimeout,
			Transport: http.DefaultTransport,
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues one GET to url and returns the body as UTF-8 text with surrounding
// whitespace stripped. The charset comes from Content-Type, a BOM or an HTML meta tag;
// undeclared bodies that are not valid UTF-8 are read as windows-1252.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", NewFetchFaultError(url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", NewFetchFaultError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &UpstreamStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", NewFetchFaultError(url, err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", NewFetchFaultError(url, err)
	}

	return strings.TrimSpace(string(body)), nil
}

// CloseIdleConnections releases pooled upstream connections
func (f *HTTPFetcher) CloseIdleConnections() {
	f.client.CloseIdleConnections()
}
