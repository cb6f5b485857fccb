package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// UserAgent identifies the extractor to publishers.
	UserAgent = "Mozilla/5.0 (compatible; DronewireBot/1.0; +https://dronewire.local/bot) counter-UAS news aggregator"

	fetchTimeout = 15 * time.Second
	maxPageBytes = 5 << 20
)

// Fetcher returns the HTML of a page
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// HTTPFetcher fetches pages with a plain HTTP GET
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with the standard page timeout. A nil
// client gets a default one.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &HTTPFetcher{client: client}
}

// Fetch implements Fetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch page: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return body, nil
}
