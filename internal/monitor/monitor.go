// Package monitor keeps a long-running host's version status current.
//
// It runs a full check at start, re-checks on a timer only when the cached
// policy is due for a refresh, and watches the cache file so that a policy
// fetched by another instance is picked up without a second fetch.
package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"grab-go/internal/grab"
)

// Checker is the part of grab.VersionController the monitor drives.
type Checker interface {
	CheckVersionStatus(ctx context.Context) *grab.VersionCheckResult
	EvaluateCached() *grab.VersionCheckResult
	ShouldCheckForUpdates() bool
	CachePath() string
}

// Source says what triggered an update.
type Source string

const (
	SourceStartup     Source = "startup"
	SourceTick        Source = "tick"
	SourceCacheChange Source = "cache_change"
)

// Update is one evaluated status delivered to the host.
type Update struct {
	Source Source
	Result *grab.VersionCheckResult
}

// Options configure a Monitor. Zero fields take defaults.
type Options struct {
	Interval   time.Duration
	WatchCache bool
	// Debounce coalesces bursts of file events from one cache write.
	Debounce time.Duration
}

const (
	DefaultInterval = 15 * time.Minute
	DefaultDebounce = 100 * time.Millisecond
)

// Monitor delivers status updates on Updates until Run returns.
type Monitor struct {
	checker Checker
	opts    Options
	logger  grab.Logger
	updates chan Update

	// lastFetched stamps the policy this monitor's own latest online check
	// wrote to the cache. Run owns it.
	lastFetched time.Time
}

// New creates a Monitor. Call Run to start it.
func New(checker Checker, opts Options, logger grab.Logger) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = grab.NewNopLogger()
	}

	return &Monitor{
		checker: checker,
		opts:    opts,
		logger:  logger,
		updates: make(chan Update, 4),
	}
}

// Updates returns the channel of status updates. It is closed when Run returns.
func (m *Monitor) Updates() <-chan Update {
	return m.updates
}

// Run blocks until ctx is done. It returns an error only if the cache
// watcher cannot be started.
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.updates)

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	cachePath := ""

	if m.opts.WatchCache {
		w, path, err := m.watchCache()
		if err != nil {
			return err
		}
		if w != nil {
			defer w.Close()
			events, watchErrs, cachePath = w.Events, w.Errors, path
		}
	}

	m.check(ctx, SourceStartup)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if !m.checker.ShouldCheckForUpdates() {
				continue
			}
			m.check(ctx, SourceTick)

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(event.Name) != cachePath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce = time.After(m.opts.Debounce)

		case <-debounce:
			debounce = nil
			res := m.checker.EvaluateCached()
			if m.ownWrite(res) {
				m.logger.Debug("cache change is our own write, ignoring", "check_id", res.CheckID)
				continue
			}
			m.emit(ctx, SourceCacheChange, res)

		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			m.logger.Warn("cache watcher error", "error", err)
		}
	}
}

// watchCache watches the directory holding the cache file, since atomic
// writes replace the file itself. Stores without a file path are skipped.
func (m *Monitor) watchCache() (*fsnotify.Watcher, string, error) {
	path := m.checker.CachePath()
	if path == "" || !filepath.IsAbs(path) {
		m.logger.Debug("policy cache is not a file, not watching", "location", path)
		return nil, "", nil
	}
	path = filepath.Clean(path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("create cache directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, "", fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, "", fmt.Errorf("watch directory: %w", err)
	}
	return w, path, nil
}

// check runs a full check and remembers the policy it wrote, if any.
func (m *Monitor) check(ctx context.Context, src Source) {
	res := m.checker.CheckVersionStatus(ctx)
	if !res.IsOffline {
		m.lastFetched = res.Config.LastUpdated
	}
	m.emit(ctx, src, res)
}

// ownWrite reports whether res was evaluated from the record written by the
// last online check. Re-evaluating it offline would drop the online-only
// rules, so it must not replace that result.
func (m *Monitor) ownWrite(res *grab.VersionCheckResult) bool {
	return !m.lastFetched.IsZero() && res.Config.LastUpdated.Equal(m.lastFetched)
}

func (m *Monitor) emit(ctx context.Context, src Source, res *grab.VersionCheckResult) {
	m.logger.Debug("status update", "source", string(src), "status", string(res.Status), "check_id", res.CheckID)
	select {
	case m.updates <- Update{Source: src, Result: res}:
	case <-ctx.Done():
	}
}
