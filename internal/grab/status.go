package grab

import "time"

// Thresholds tune how the status algorithm relaxes while offline.
type Thresholds struct {
	// StaleAllowAfter: an offline policy older than this allows every version.
	StaleAllowAfter time.Duration
	// ForceUpdateGrace: an offline force-update older than this is only a warning.
	ForceUpdateGrace time.Duration
	// RecheckAfter: a cache older than this should be refreshed in the background.
	RecheckAfter time.Duration
}

// DefaultThresholds returns 6h / 1h / 1h.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StaleAllowAfter:  6 * time.Hour,
		ForceUpdateGrace: time.Hour,
		RecheckAfter:     time.Hour,
	}
}

// withDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.StaleAllowAfter <= 0 {
		t.StaleAllowAfter = d.StaleAllowAfter
	}
	if t.ForceUpdateGrace <= 0 {
		t.ForceUpdateGrace = d.ForceUpdateGrace
	}
	if t.RecheckAfter <= 0 {
		t.RecheckAfter = d.RecheckAfter
	}
	return t
}

// DetermineStatus evaluates userVersion against policy. Rules are applied in
// order and the first match wins. Every blocking outcome is softened while
// offline, since an unverifiable policy must never lock a user out.
func DetermineStatus(userVersion string, policy VersionPolicy, isOffline bool, cacheAge time.Duration, th Thresholds) Status {
	th = th.withDefaults()

	if isOffline && cacheAge > th.StaleAllowAfter {
		return StatusAllowed
	}

	if policy.IsKillSwitchActive && !isOffline {
		return StatusBlocked
	}

	if policy.RequiresForceUpdate(userVersion) {
		if isOffline && cacheAge > th.ForceUpdateGrace {
			return StatusDeprecated
		}
		return StatusForceUpdate
	}

	if IsVersionBelow(userVersion, policy.MinimumVersion) {
		if isOffline {
			return StatusDeprecated
		}
		return StatusBlocked
	}

	if policy.IsDeprecated(userVersion) {
		return StatusDeprecated
	}

	return StatusAllowed
}
