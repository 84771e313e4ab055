package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"grab-go/internal/config"
	"grab-go/internal/fetch"
	"grab-go/internal/grab"
	"grab-go/internal/policystore"
	"grab-go/internal/version"
)

// GrabApp is the application layer between the CLI and the VersionController.
// It constructs all dependencies from config and owns their lifecycle; the
// caller must call Close when done.
type GrabApp struct {
	cfg        *config.Config
	store      grab.PolicyStore
	fetcher    grab.PolicyFetcher
	controller *grab.VersionController
	logger     *slog.Logger
	logFile    *os.File
}

// NewGrabApp creates a fully wired GrabApp from the given config.
// stderrLevel is the minimum level echoed to stderr; the log file gets
// everything at or above cfg.LogLevel.
func NewGrabApp(ctx context.Context, cfg *config.Config, stderrLevel slog.Level) (*GrabApp, error) {
	settings, err := SettingsFromConfig(cfg.Policy)
	if err != nil {
		return nil, err
	}

	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID, level, stderrLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	store, err := policystore.NewPolicyStoreFromConfig(cfg.Cache)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating policy store: %w", err)
	}

	a := &GrabApp{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		logFile: logFile,
	}

	// A missing or broken policy source is not fatal: the controller treats
	// it as a network failure and serves the cache or the fallback.
	appVersion := currentVersion()
	fetcher, err := fetch.NewFetcherFromConfig(ctx, cfg.Policy, cfg.S3, fetch.UserAgent(appVersion))
	if err != nil {
		logger.Warn("policy source unavailable", "url", cfg.Policy.URL, "error", err)
	} else {
		a.fetcher = fetcher
	}

	a.controller = grab.NewVersionController(a.fetcher, store, version.Current, settings,
		&slogAdapter{l: logger}, grab.RealClock{}, grab.UUIDGenerator{})

	return a, nil
}

// SettingsFromConfig converts the policy section into controller settings.
func SettingsFromConfig(p config.PolicyConfig) (grab.Settings, error) {
	var s grab.Settings
	var err error

	if s.Timeout, err = p.TimeoutDuration(); err != nil {
		return grab.Settings{}, err
	}
	if s.MaxCacheAge, err = p.MaxCacheAgeDuration(); err != nil {
		return grab.Settings{}, err
	}
	if s.Thresholds.StaleAllowAfter, err = p.StaleAllowAfterDuration(); err != nil {
		return grab.Settings{}, err
	}
	if s.Thresholds.ForceUpdateGrace, err = p.ForceUpdateGraceDuration(); err != nil {
		return grab.Settings{}, err
	}
	if s.Thresholds.RecheckAfter, err = p.RecheckAfterDuration(); err != nil {
		return grab.Settings{}, err
	}
	return s, nil
}

// Check runs a full version check.
func (a *GrabApp) Check(ctx context.Context) *grab.VersionCheckResult {
	return a.controller.CheckVersionStatus(ctx)
}

// Controller exposes the underlying controller for long-running hosts.
func (a *GrabApp) Controller() *grab.VersionController {
	return a.controller
}

// Logger returns the application logger.
func (a *GrabApp) Logger() *slog.Logger {
	return a.logger
}

// Config returns the configuration the app was built from.
func (a *GrabApp) Config() *config.Config {
	return a.cfg
}

// Close releases the policy store and the log file.
func (a *GrabApp) Close() error {
	var firstErr error

	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			firstErr = fmt.Errorf("closing policy store: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// currentVersion returns the running version or the controller default.
func currentVersion() string {
	v, err := version.Current()
	if err != nil {
		return grab.DefaultAppVersion
	}
	return v
}
