package grab

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// parseVersion reads the first three dot-separated components of v.
// Missing, negative or non-numeric components become 0, so "invalid" is 0.0.0.
func parseVersion(v string) *semver.Version {
	var parts [3]uint64
	for i, s := range strings.Split(strings.TrimSpace(v), ".") {
		if i == len(parts) {
			break
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			continue
		}
		parts[i] = n
	}
	return semver.New(parts[0], parts[1], parts[2], "", "")
}

// CompareVersions returns -1, 0 or 1 as a is below, equal to or newer than b.
// It never fails; unparsable input compares as 0.0.0.
func CompareVersions(a, b string) int {
	return parseVersion(a).Compare(parseVersion(b))
}

// IsVersionBelow reports whether a is strictly older than b.
func IsVersionBelow(a, b string) bool {
	return CompareVersions(a, b) < 0
}

// IsVersionNewer reports whether a is strictly newer than b.
func IsVersionNewer(a, b string) bool {
	return CompareVersions(a, b) > 0
}
