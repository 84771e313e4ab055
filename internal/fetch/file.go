package fetch

import (
	"context"
	"fmt"
	"os"

	"grab-go/internal/grab"
)

// FileFetcher reads the policy from a local file. Useful for offline
// installs that ship the policy alongside the app and for staging.
type FileFetcher struct {
	path string
}

// NewFileFetcher creates a fetcher for path.
func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{path: path}
}

func (f *FileFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, &grab.FetchError{Reason: grab.ReasonNetwork, Err: fmt.Errorf("opening policy file: %w", err)}
	}
	defer file.Close()

	return readLimited(file)
}

func (f *FileFetcher) URL() string { return "file://" + f.path }

var _ grab.PolicyFetcher = (*FileFetcher)(nil)
