// Package fetch retrieves raw policy documents from HTTP(S), S3 or local files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"

	"grab-go/internal/grab"
)

// MaxPolicySize caps how much of a policy document is read.
const MaxPolicySize = 1 << 20

// UserAgent builds the identifying User-Agent sent with policy requests.
func UserAgent(appVersion string) string {
	return fmt.Sprintf("grab/%s (%s; %s)", appVersion, runtime.GOOS, runtime.GOARCH)
}

// HTTPFetcher fetches the policy with a single GET. It has no timeout of its
// own; the caller bounds each request through ctx.
type HTTPFetcher struct {
	url       string
	userAgent string
	client    *http.Client
}

// NewHTTPFetcher creates a fetcher for url. A nil client uses a default one.
func NewHTTPFetcher(url, userAgent string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{url: url, userAgent: userAgent, client: client}
}

// Fetch GETs the policy document, bypassing intermediate caches.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &grab.FetchError{Reason: grab.ReasonNetwork, Err: err}
	}
	req.Header.Set("Cache-Control", "no-cache, no-store, max-age=0")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &grab.FetchError{Reason: grab.ReasonNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &grab.FetchError{
			Reason:     grab.ReasonHTTPStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response %s", resp.Status),
		}
	}

	return readLimited(resp.Body)
}

// URL returns the policy URL.
func (f *HTTPFetcher) URL() string { return f.url }

// readLimited reads at most MaxPolicySize bytes and rejects anything larger.
func readLimited(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxPolicySize+1))
	if err != nil {
		return nil, &grab.FetchError{Reason: grab.ReasonNetwork, Err: fmt.Errorf("reading body: %w", err)}
	}
	if len(body) > MaxPolicySize {
		return nil, &grab.FetchError{
			Reason: grab.ReasonInvalidPolicy,
			Err:    fmt.Errorf("policy document exceeds %d bytes", MaxPolicySize),
		}
	}
	return body, nil
}

var _ grab.PolicyFetcher = (*HTTPFetcher)(nil)
