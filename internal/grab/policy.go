package grab

import (
	"slices"
	"time"
)

// DefaultAppVersion is assumed when the host cannot report its own version.
const DefaultAppVersion = "1.0.0"

// Status is the outcome of a version check, in increasing order of severity:
// allowed, deprecated, force_update, blocked.
type Status string

const (
	StatusAllowed     Status = "allowed"
	StatusDeprecated  Status = "deprecated"
	StatusForceUpdate Status = "force_update"
	StatusBlocked     Status = "blocked"
)

// VersionPolicy is the remotely controlled document that decides which app
// versions may run.
type VersionPolicy struct {
	MinimumVersion      string
	LatestVersion       string
	IsKillSwitchActive  bool
	DeprecatedVersions  []string
	ForceUpdateVersions []string
	UpdateMessage       string
	DownloadURL         string
	KillSwitchMessage   string

	// LastUpdated is stamped locally when the document is fetched.
	// Any value sent by the server is ignored.
	LastUpdated time.Time
}

// FallbackPolicy returns the policy used when there is neither network nor a
// usable cache. It never blocks any version at or above 1.0.0.
func FallbackPolicy() VersionPolicy {
	return VersionPolicy{
		MinimumVersion:      "1.0.0",
		LatestVersion:       "1.0.0",
		DeprecatedVersions:  []string{},
		ForceUpdateVersions: []string{},
		UpdateMessage:       "",
		DownloadURL:         "",
	}
}

// Clone returns a deep copy so callers cannot mutate shared slices.
func (p VersionPolicy) Clone() VersionPolicy {
	c := p
	c.DeprecatedVersions = slices.Clone(p.DeprecatedVersions)
	c.ForceUpdateVersions = slices.Clone(p.ForceUpdateVersions)
	return c
}

// IsDeprecated reports whether version is listed in DeprecatedVersions.
func (p VersionPolicy) IsDeprecated(version string) bool {
	return slices.Contains(p.DeprecatedVersions, version)
}

// RequiresForceUpdate reports whether version is listed in ForceUpdateVersions.
func (p VersionPolicy) RequiresForceUpdate(version string) bool {
	return slices.Contains(p.ForceUpdateVersions, version)
}

// CacheRecord is the persisted form of the last policy confirmed over the network.
type CacheRecord struct {
	Policy VersionPolicy
	// FetchedAt is when the policy was last confirmed valid from the network.
	FetchedAt time.Time
	// WasOffline marks a record that was produced without a fresh fetch.
	// Such records never had their FetchedAt refreshed.
	WasOffline bool
}

// VersionCheckResult is everything the host needs to decide whether to
// start, warn or block.
type VersionCheckResult struct {
	CheckID     string
	Status      Status
	Config      VersionPolicy
	UserVersion string
	IsOffline   bool
	// CacheAge is zero when online or when the fallback policy was used.
	CacheAge time.Duration
	// CacheExpired is set when the offline policy is older than the
	// controller's max cache age. It never changes Status.
	CacheExpired bool
	// FailureReason explains why the network policy was not used.
	FailureReason FailureReason
}
