package fetch

import (
	"context"
	"fmt"
	"net/url"

	"grab-go/internal/config"
	"grab-go/internal/grab"
)

// NewFetcherFromConfig creates a PolicyFetcher based on the policy URL scheme.
func NewFetcherFromConfig(ctx context.Context, policy config.PolicyConfig, s3cfg config.S3Config, userAgent string) (grab.PolicyFetcher, error) {
	if policy.URL == "" {
		return nil, fmt.Errorf("policy url is not configured")
	}

	u, err := url.Parse(policy.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing policy url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return NewHTTPFetcher(policy.URL, userAgent, nil), nil
	case "s3":
		return NewS3Fetcher(ctx, policy.URL, s3cfg)
	case "file":
		if u.Path == "" {
			return nil, fmt.Errorf("file policy url requires a path: %s", policy.URL)
		}
		return NewFileFetcher(u.Path), nil
	default:
		return nil, fmt.Errorf("unsupported policy url scheme: %q", u.Scheme)
	}
}
