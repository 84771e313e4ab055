package grab

import (
	"encoding/json"
	"fmt"
	"time"
)

// cacheFile is the on-disk layout shared by every PolicyStore backend:
//
//	{"config": {...}, "lastFetched": <unix ms>, "isOfflineMode": false}
type cacheFile struct {
	Config        json.RawMessage `json:"config"`
	LastFetched   *int64          `json:"lastFetched"`
	IsOfflineMode bool            `json:"isOfflineMode"`
}

// cachedPolicy adds the locally stamped lastUpdated to the wire document.
type cachedPolicy struct {
	policyDocument
	LastUpdated int64 `json:"lastUpdated,omitempty"`
}

// EncodeCacheRecord serializes a record in the cache file format.
func EncodeCacheRecord(record *CacheRecord) ([]byte, error) {
	cp := cachedPolicy{policyDocument: newPolicyDocument(record.Policy)}
	if !record.Policy.LastUpdated.IsZero() {
		cp.LastUpdated = record.Policy.LastUpdated.UnixMilli()
	}

	config, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("encoding cached policy: %w", err)
	}

	fetched := record.FetchedAt.UnixMilli()
	data, err := json.MarshalIndent(cacheFile{
		Config:        config,
		LastFetched:   &fetched,
		IsOfflineMode: record.WasOffline,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding cache record: %w", err)
	}
	return data, nil
}

// DecodeCacheRecord parses data written by EncodeCacheRecord. The cached
// policy is validated like a freshly fetched one; anything that fails is
// reported as ErrCacheCorrupt.
func DecodeCacheRecord(data []byte) (*CacheRecord, error) {
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}
	if len(f.Config) == 0 || f.LastFetched == nil {
		return nil, fmt.Errorf("%w: missing config or lastFetched", ErrCacheCorrupt)
	}

	policy, err := ParsePolicyDocument(f.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}

	var stamp struct {
		LastUpdated int64 `json:"lastUpdated"`
	}
	if err := json.Unmarshal(f.Config, &stamp); err == nil && stamp.LastUpdated > 0 {
		policy.LastUpdated = time.UnixMilli(stamp.LastUpdated)
	}

	return &CacheRecord{
		Policy:     policy,
		FetchedAt:  time.UnixMilli(*f.LastFetched),
		WasOffline: f.IsOfflineMode,
	}, nil
}
