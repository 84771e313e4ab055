package testutil

import (
	"context"
	"errors"
	"sync"

	"grab-go/internal/grab"
)

// ValidPolicyJSON is a well-formed policy document used across tests.
const ValidPolicyJSON = `{
  "minimumVersion": "1.0.0",
  "latestVersion": "1.2.0",
  "isKillSwitchActive": false,
  "deprecatedVersions": ["1.0.0"],
  "forceUpdateVersions": ["1.0.1"],
  "updateMessage": "Please update",
  "downloadUrl": "https://example.com/download"
}`

// StubFetcher returns a canned body or error and counts calls.
// Safe for concurrent use.
type StubFetcher struct {
	mu    sync.Mutex
	body  []byte
	err   error
	calls int
}

// NewStubFetcher creates a fetcher that always returns body.
func NewStubFetcher(body string) *StubFetcher {
	return &StubFetcher{body: []byte(body)}
}

// NewFailingFetcher creates a fetcher that always returns err.
func NewFailingFetcher(err error) *StubFetcher {
	return &StubFetcher{err: err}
}

// NewOfflineFetcher creates a fetcher that fails like an unreachable network.
func NewOfflineFetcher() *StubFetcher {
	return NewFailingFetcher(&grab.FetchError{
		Reason: grab.ReasonNetwork,
		Err:    errors.New("dial tcp: connection refused"),
	})
}

func (f *StubFetcher) Fetch(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte(nil), f.body...), nil
}

func (f *StubFetcher) URL() string { return "stub://policy" }

// Set replaces the canned response.
func (f *StubFetcher) Set(body string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = []byte(body)
	f.err = err
}

// Calls returns the number of Fetch calls so far.
func (f *StubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// BlockingFetcher never returns until ctx is done, like a hung connection.
type BlockingFetcher struct{}

func (BlockingFetcher) Fetch(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (BlockingFetcher) URL() string { return "stub://hung" }

var (
	_ grab.PolicyFetcher = (*StubFetcher)(nil)
	_ grab.PolicyFetcher = BlockingFetcher{}
)
