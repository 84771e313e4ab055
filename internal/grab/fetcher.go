package grab

import (
	"context"
	"fmt"
)

// FailureReason classifies why a check could not use a fresh network policy.
type FailureReason string

const (
	ReasonNetwork       FailureReason = "network"
	ReasonTimeout       FailureReason = "timeout"
	ReasonHTTPStatus    FailureReason = "http_status"
	ReasonInvalidPolicy FailureReason = "invalid_policy"
	ReasonStoreWrite    FailureReason = "store_write"
)

// PolicyFetcher retrieves the raw policy document from its source.
// Implementations must honor ctx cancellation and never retry on their own.
type PolicyFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)

	// URL identifies the policy source, for diagnostics.
	URL() string
}

// FetchError carries the failure class out of a PolicyFetcher.
type FetchError struct {
	Reason     FailureReason
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching policy: %s (status %d): %v", e.Reason, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetching policy: %s: %v", e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
