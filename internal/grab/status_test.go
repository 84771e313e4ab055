package grab_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"grab-go/internal/grab"
)

func testPolicy() grab.VersionPolicy {
	return grab.VersionPolicy{
		MinimumVersion:      "1.0.0",
		LatestVersion:       "1.2.0",
		DeprecatedVersions:  []string{"1.0.0"},
		ForceUpdateVersions: []string{"1.0.1"},
		UpdateMessage:       "Please update",
		DownloadURL:         "https://example.com/download",
	}
}

func TestDetermineStatus(t *testing.T) {
	killed := testPolicy()
	killed.IsKillSwitchActive = true

	tests := []struct {
		name     string
		version  string
		policy   grab.VersionPolicy
		offline  bool
		cacheAge time.Duration
		want     grab.Status
	}{
		{name: "current version online", version: "1.2.0", policy: testPolicy(), want: grab.StatusAllowed},
		{name: "newer than latest", version: "2.0.0", policy: testPolicy(), want: grab.StatusAllowed},
		{name: "deprecated online", version: "1.0.0", policy: testPolicy(), want: grab.StatusDeprecated},
		{name: "deprecated offline", version: "1.0.0", policy: testPolicy(), offline: true, cacheAge: time.Hour, want: grab.StatusDeprecated},
		{name: "below minimum online", version: "0.9.0", policy: testPolicy(), want: grab.StatusBlocked},
		{name: "below minimum offline fresh", version: "0.9.0", policy: testPolicy(), offline: true, cacheAge: 30 * time.Minute, want: grab.StatusDeprecated},
		{name: "below minimum offline stale", version: "0.9.0", policy: testPolicy(), offline: true, cacheAge: 7 * time.Hour, want: grab.StatusAllowed},
		{name: "exactly at stale threshold is not stale", version: "0.9.0", policy: testPolicy(), offline: true, cacheAge: 6 * time.Hour, want: grab.StatusDeprecated},
		{name: "kill switch online", version: "1.2.0", policy: killed, want: grab.StatusBlocked},
		{name: "kill switch offline ignored", version: "1.2.0", policy: killed, offline: true, want: grab.StatusAllowed},
		{name: "force update online", version: "1.0.1", policy: testPolicy(), want: grab.StatusForceUpdate},
		{name: "force update offline within grace", version: "1.0.1", policy: testPolicy(), offline: true, cacheAge: 30 * time.Minute, want: grab.StatusForceUpdate},
		{name: "force update offline past grace", version: "1.0.1", policy: testPolicy(), offline: true, cacheAge: 2 * time.Hour, want: grab.StatusDeprecated},
		{name: "force update beats deprecated", version: "1.0.0", policy: grab.VersionPolicy{MinimumVersion: "1.0.0", DeprecatedVersions: []string{"1.0.0"}, ForceUpdateVersions: []string{"1.0.0"}}, want: grab.StatusForceUpdate},
		{name: "set membership is exact string", version: "1.0", policy: testPolicy(), want: grab.StatusAllowed},
		{name: "fallback allows default version", version: grab.DefaultAppVersion, policy: grab.FallbackPolicy(), offline: true, want: grab.StatusAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := grab.DetermineStatus(tt.version, tt.policy, tt.offline, tt.cacheAge, grab.DefaultThresholds())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetermineStatus_CustomThresholds(t *testing.T) {
	th := grab.Thresholds{StaleAllowAfter: time.Hour, ForceUpdateGrace: 10 * time.Minute}

	assert.Equal(t, grab.StatusAllowed,
		grab.DetermineStatus("0.9.0", testPolicy(), true, 2*time.Hour, th))
	assert.Equal(t, grab.StatusDeprecated,
		grab.DetermineStatus("1.0.1", testPolicy(), true, 20*time.Minute, th))

	// Zero thresholds fall back to the defaults.
	assert.Equal(t, grab.StatusDeprecated,
		grab.DetermineStatus("0.9.0", testPolicy(), true, 2*time.Hour, grab.Thresholds{}))
}
