package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxAttempts = 3

// HTTPFetcher retrieves http(s) sources with a small bounded retry on
// transport errors and 5xx responses.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher wraps the given client, defaulting to http.DefaultClient.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	var lastErr error
	for i := range maxAttempts {
		if i > 0 {
			delay := time.Duration(1<<(i-1)) * 500 * time.Millisecond // 500ms, 1s, 2s...
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid fetch url %q: %w", rawURL, err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("fetch %s: %s", rawURL, resp.Status)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, 0, fmt.Errorf("fetch %s: %s", rawURL, resp.Status)
		}
		return resp.Body, resp.ContentLength, nil
	}
	return nil, 0, fmt.Errorf("fetch %s: %w", rawURL, lastErr)
}
