package imageproxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SourceFetchResult is the body of a successful candidate fetch.
type SourceFetchResult struct {
	// URL is the candidate that produced the body.
	URL string
	// Data is the raw response body.
	Data []byte
	// ContentType is the declared Content-Type. Advisory only: some sources
	// label images wrongly, and HTML pages are rejected later by the decoder.
	ContentType string
}

// Fetcher defines the interface for fetching a single candidate URL.
type Fetcher interface {
	// Fetch performs a GET against url and returns the body on a 2xx response.
	Fetch(ctx context.Context, url string) (*SourceFetchResult, error)
}

// HTTPFetcher implements Fetcher over net/http.
type HTTPFetcher struct {
	client       *http.Client
	maxSizeBytes int64
}

// DefaultMaxSourceSizeMB is the default maximum source image size if not configured.
const DefaultMaxSourceSizeMB = 25

// NewHTTPFetcher creates a new HTTPFetcher with the specified per-request timeout.
// maxSizeMB specifies the maximum allowed body size in megabytes (0 uses the default).
func NewHTTPFetcher(timeout time.Duration, maxSizeMB int) *HTTPFetcher {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSourceSizeMB
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		maxSizeBytes: int64(maxSizeMB) * 1024 * 1024,
	}
}

// Fetch retrieves url. Any non-2xx status, transport error, timeout, or
// oversized body is an error wrapping ErrSourceFetchFailed or ErrImageTooLarge.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*SourceFetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrSourceFetchFailed, err)
	}
	req.Header.Set("User-Agent", "Lightbox-ImageProxy/1.0")
	req.Header.Set("Accept", "image/*,*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeoutError(err) {
			return nil, fmt.Errorf("%w: request timed out", ErrSourceFetchFailed)
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrSourceFetchFailed, resp.StatusCode)
	}

	if resp.ContentLength > f.maxSizeBytes {
		return nil, fmt.Errorf("%w: content length %d exceeds maximum %d bytes",
			ErrImageTooLarge, resp.ContentLength, f.maxSizeBytes)
	}

	// Read one byte past the limit to detect bodies without a truthful Content-Length.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrSourceFetchFailed, err)
	}
	if int64(len(data)) > f.maxSizeBytes {
		return nil, fmt.Errorf("%w: response body exceeds maximum %d bytes",
			ErrImageTooLarge, f.maxSizeBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrSourceFetchFailed)
	}

	return &SourceFetchResult{
		URL:         url,
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// isTimeoutError checks if the error is a timeout-related error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if te, ok := err.(interface{ Timeout() bool }); ok {
		return te.Timeout()
	}
	return false
}
