package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxLogoBytes caps a single logo download. Anything larger is not a logo.
const maxLogoBytes = 16 << 20

// Fetcher downloads raw logo bytes. Returns the payload and its content type.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// HTTPFetcher retrieves logos over HTTP with a bounded per-request timeout.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher. A nil client gets a sensible default.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create logo request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download logo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("download logo status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read logo: %w", err)
	}
	if len(data) > maxLogoBytes {
		return nil, "", fmt.Errorf("logo exceeds %d bytes", maxLogoBytes)
	}
	return data, strings.TrimSpace(resp.Header.Get("Content-Type")), nil
}

var _ Fetcher = (*HTTPFetcher)(nil)
