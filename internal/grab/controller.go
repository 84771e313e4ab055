package grab

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single policy fetch.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxCacheAge is when an offline policy is reported as expired.
	DefaultMaxCacheAge = 24 * time.Hour
)

// VersionFunc reports the running application's version.
type VersionFunc func() (string, error)

// Settings configures a VersionController. Zero fields take defaults.
type Settings struct {
	Timeout     time.Duration
	MaxCacheAge time.Duration
	Thresholds  Thresholds
	// Fallback is used when neither the network nor the cache yields a
	// policy. A zero value means FallbackPolicy().
	Fallback VersionPolicy
}

// DefaultSettings returns the defaults applied to zero Settings fields.
func DefaultSettings() Settings {
	return Settings{
		Timeout:     DefaultTimeout,
		MaxCacheAge: DefaultMaxCacheAge,
		Thresholds:  DefaultThresholds(),
		Fallback:    FallbackPolicy(),
	}
}

// VersionController fetches, caches and evaluates the version policy.
// It keeps no policy in memory between calls: every check re-reads the store,
// so independent instances sharing one cache agree with each other.
type VersionController struct {
	fetcher     PolicyFetcher
	store       PolicyStore
	appVersion  VersionFunc
	timeout     time.Duration
	maxCacheAge time.Duration
	thresholds  Thresholds
	fallback    VersionPolicy
	logger      Logger
	clock       Clock
	idgen       IDGenerator
}

// NewVersionController creates a VersionController with the provided dependencies.
func NewVersionController(fetcher PolicyFetcher, store PolicyStore, appVersion VersionFunc, settings Settings, logger Logger, clock Clock, idgen IDGenerator) *VersionController {
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	if settings.MaxCacheAge <= 0 {
		settings.MaxCacheAge = DefaultMaxCacheAge
	}
	if settings.Fallback.MinimumVersion == "" {
		settings.Fallback = FallbackPolicy()
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}

	return &VersionController{
		fetcher:     fetcher,
		store:       store,
		appVersion:  appVersion,
		timeout:     settings.Timeout,
		maxCacheAge: settings.MaxCacheAge,
		thresholds:  settings.Thresholds.withDefaults(),
		fallback:    settings.Fallback.Clone(),
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
	}
}

// CheckVersionStatus fetches the policy, caches it and evaluates the running
// version. It always returns a usable result: network, validation, cache and
// host failures each degrade to a documented offline fallback.
func (c *VersionController) CheckVersionStatus(ctx context.Context) *VersionCheckResult {
	checkID := c.idgen.New()
	userVersion := c.currentVersion()

	policy := c.validateStage(c.fetchStage(ctx))
	now := c.clock.Now()

	res := &VersionCheckResult{
		CheckID:     checkID,
		UserVersion: userVersion,
	}

	if policy.OK() {
		// The cache keeps milliseconds; stamp at that precision so a re-read
		// record matches this result exactly.
		stamp := now.Truncate(time.Millisecond)
		p := policy.Value
		p.LastUpdated = stamp
		res.Config = p

		persisted := c.persistStage(&CacheRecord{Policy: p, FetchedAt: stamp})
		if !persisted.OK() {
			c.logger.Warn("policy cache write failed", "check_id", checkID, "location", c.CachePath(), "error", persisted.Err)
		}
	} else {
		c.logger.Warn("policy fetch failed, using offline policy",
			"check_id", checkID, "url", c.URL(), "reason", string(policy.Reason), "error", policy.Err)
		res.IsOffline = true
		res.FailureReason = policy.Reason
		res.Config, res.CacheAge = c.offlinePolicy(now)
	}

	c.evaluate(res)

	c.logger.Info("version checked",
		"check_id", checkID,
		"version", userVersion,
		"status", string(res.Status),
		"offline", res.IsOffline,
		"cache_age", res.CacheAge.Truncate(time.Second).String(),
	)
	return res
}

// EvaluateCached evaluates the running version against the cached policy
// alone, as if the network were down. It never fetches.
func (c *VersionController) EvaluateCached() *VersionCheckResult {
	res := &VersionCheckResult{
		CheckID:     c.idgen.New(),
		UserVersion: c.currentVersion(),
		IsOffline:   true,
	}
	res.Config, res.CacheAge = c.offlinePolicy(c.clock.Now())
	c.evaluate(res)

	c.logger.Debug("cached policy evaluated", "check_id", res.CheckID, "status", string(res.Status))
	return res
}

// ShouldCheckForUpdates reports whether the cached policy is missing or
// older than the recheck threshold. It does not fetch.
func (c *VersionController) ShouldCheckForUpdates() bool {
	rec := c.readCache()
	if rec == nil {
		return true
	}
	return c.clock.Now().Sub(rec.FetchedAt) > c.thresholds.RecheckAfter
}

// GetCachedConfig returns the cached record. If the cache is absent or
// unreadable it returns the fallback policy marked as offline.
func (c *VersionController) GetCachedConfig() CacheRecord {
	if rec := c.readCache(); rec != nil {
		return *rec
	}
	return CacheRecord{Policy: c.GetFallbackConfig(), WasOffline: true}
}

// GetFallbackConfig returns a copy of the fallback policy.
func (c *VersionController) GetFallbackConfig() VersionPolicy {
	return c.fallback.Clone()
}

// Thresholds returns the thresholds used by the status algorithm.
func (c *VersionController) Thresholds() Thresholds {
	return c.thresholds
}

// URL returns the configured policy source.
func (c *VersionController) URL() string {
	if c.fetcher == nil {
		return ""
	}
	return c.fetcher.URL()
}

// CachePath returns where the policy cache is stored.
func (c *VersionController) CachePath() string {
	if c.store == nil {
		return ""
	}
	return c.store.Location()
}

func (c *VersionController) evaluate(res *VersionCheckResult) {
	res.CacheExpired = res.IsOffline && res.CacheAge > c.maxCacheAge
	res.Status = DetermineStatus(res.UserVersion, res.Config, res.IsOffline, res.CacheAge, c.thresholds)
}

// fetchStage retrieves the raw document, bounded by the controller timeout.
func (c *VersionController) fetchStage(ctx context.Context) StageResult[[]byte] {
	if c.fetcher == nil {
		return failed[[]byte](ReasonNetwork, errors.New("no policy source configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.fetcher.Fetch(ctx)
	if err == nil {
		return succeeded(body)
	}

	var fe *FetchError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return failed[[]byte](ReasonTimeout, err)
	case errors.As(err, &fe):
		return failed[[]byte](fe.Reason, err)
	default:
		return failed[[]byte](ReasonNetwork, err)
	}
}

// validateStage turns a fetched body into a policy. A failed fetch passes
// through unchanged.
func (c *VersionController) validateStage(fetched StageResult[[]byte]) StageResult[VersionPolicy] {
	if !fetched.OK() {
		return failed[VersionPolicy](fetched.Reason, fetched.Err)
	}

	policy, err := ParsePolicyDocument(fetched.Value)
	if err != nil {
		return failed[VersionPolicy](ReasonInvalidPolicy, err)
	}
	return succeeded(policy)
}

// persistStage writes the record. Failures are reported, never propagated.
func (c *VersionController) persistStage(record *CacheRecord) StageResult[struct{}] {
	if c.store == nil {
		return failed[struct{}](ReasonStoreWrite, errors.New("no policy store configured"))
	}
	if err := c.store.Write(record); err != nil {
		return failed[struct{}](ReasonStoreWrite, err)
	}
	return succeeded(struct{}{})
}

// offlinePolicy resolves the policy to use without the network and its age.
func (c *VersionController) offlinePolicy(now time.Time) (VersionPolicy, time.Duration) {
	rec := c.readCache()
	if rec == nil {
		c.logger.Info("no usable policy cache, using fallback policy", "location", c.CachePath())
		return c.GetFallbackConfig(), 0
	}

	// A record stamped in the future (clock skew) counts as fresh.
	age := now.Sub(rec.FetchedAt)
	if age < 0 {
		age = 0
	}
	return rec.Policy, age
}

// readCache returns the stored record, or nil when it is absent or unreadable.
func (c *VersionController) readCache() *CacheRecord {
	if c.store == nil {
		return nil
	}
	rec, err := c.store.Read()
	if err != nil {
		c.logger.Warn("policy cache unreadable, treating as absent", "location", c.store.Location(), "error", err)
		return nil
	}
	return rec
}

// currentVersion asks the host for its version and falls back to
// DefaultAppVersion.
func (c *VersionController) currentVersion() string {
	if c.appVersion == nil {
		return DefaultAppVersion
	}
	v, err := c.appVersion()
	if err != nil {
		c.logger.Warn("app version unavailable, assuming default", "default", DefaultAppVersion, "error", err)
		return DefaultAppVersion
	}
	if v = strings.TrimSpace(v); v == "" {
		return DefaultAppVersion
	}
	return v
}
