// Package fetch retrieves remote payload sources for fetch entries.
//
// The bag core only needs the transferred bytes and their length; every
// retrieval policy (transport, auth, retries) lives here. Two source kinds
// are supported: plain http(s) URLs and oci:// blob references addressing a
// layer by digest in an OCI registry.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// Fetcher retrieves the content behind a source URL. The returned length is
// the expected byte count, or -1 when the source does not report one. The
// caller owns the ReadCloser.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, int64, error)
}

// Default returns a fetcher that dispatches on the URL scheme.
func Default() Fetcher {
	return &dispatcher{
		http: NewHTTPFetcher(nil),
		oci:  NewOCIFetcher(),
	}
}

type dispatcher struct {
	http *HTTPFetcher
	oci  *OCIFetcher
}

func (d *dispatcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid fetch url %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		return d.http.Fetch(ctx, rawURL)
	case "oci":
		return d.oci.Fetch(ctx, rawURL)
	default:
		return nil, 0, fmt.Errorf("unsupported fetch scheme %q", u.Scheme)
	}
}
