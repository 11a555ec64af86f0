package checker

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/cybershield/shieldscan/internal/shared/constants"
)

// Fetcher retrieves the response headers of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (http.Header, error)
}

// Dialer opens network connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Connectivity bundles the network capabilities used by the probe suite so
// tests can replace them.
type Connectivity struct {
	Fetcher Fetcher
	Dialer  Dialer
}

// DefaultConnectivity uses net/http and net.Dialer.
func DefaultConnectivity() Connectivity {
	return Connectivity{
		Fetcher: &HTTPFetcher{},
		Dialer:  &net.Dialer{},
	}
}

// HTTPFetcher performs a GET request and discards the body.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (http.Header, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: constants.HTTPFetchTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "shieldscan")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	return resp.Header, nil
}
