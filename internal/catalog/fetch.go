package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 30 * time.Second
	// MaxDocumentSize bounds how much of a feed is read into memory.
	MaxDocumentSize = 64 << 20

	userAgent = "stockroom-importer/1.0"
	accept    = "application/xml, text/xml;q=0.9, */*;q=0.5"
)

// FetchError is any failure to retrieve a feed: transport, timeout, oversized
// body or a non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int // Zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch XML from %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch XML from %s: %s", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a fetcher whose requests give up after timeout. A zero
// timeout means DefaultTimeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch GETs the document at url. It never retries.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	// Read one byte past the limit to tell "exactly at" from "over".
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("error reading body: %w", err)}
	}
	if len(body) > MaxDocumentSize {
		return nil, &FetchError{URL: url, Err: errors.New("document exceeds 64MiB")}
	}

	return body, nil
}
