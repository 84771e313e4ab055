package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"grab-go/internal/config"
	"grab-go/internal/grab"
)

const policyJSON = `{
  "minimumVersion": "1.0.0",
  "latestVersion": "1.2.0",
  "isKillSwitchActive": false,
  "deprecatedVersions": [],
  "forceUpdateVersions": [],
  "updateMessage": "Please update",
  "downloadUrl": "https://example.com/download"
}`

func newTestConfig(t *testing.T, cacheType string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	policyPath := filepath.Join(dir, "policy.json")
	if err := os.WriteFile(policyPath, []byte(policyJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewConfig("install-1", dir, filepath.Join(dir, "cache"), "file://"+policyPath)
	cfg.Cache.Type = cacheType
	return cfg
}

func TestNewGrabApp_Check(t *testing.T) {
	for _, cacheType := range []string{"file", "sqlite", "memory"} {
		t.Run(cacheType, func(t *testing.T) {
			cfg := newTestConfig(t, cacheType)

			a, err := NewGrabApp(context.Background(), cfg, slog.LevelError)
			if err != nil {
				t.Fatalf("NewGrabApp() error = %v", err)
			}
			defer a.Close()

			res := a.Check(context.Background())
			if res.IsOffline {
				t.Fatalf("IsOffline = true, FailureReason = %q", res.FailureReason)
			}
			if res.Config.LatestVersion != "1.2.0" {
				t.Errorf("LatestVersion = %q, want 1.2.0", res.Config.LatestVersion)
			}

			rec := a.Controller().GetCachedConfig()
			if rec.WasOffline {
				t.Error("cached record missing after online check")
			}

			if _, err := os.Stat(filepath.Join(cfg.LogDir, "grab.log")); err != nil {
				t.Errorf("log file not created: %v", err)
			}
		})
	}
}

func TestNewGrabApp_MissingPolicySource(t *testing.T) {
	cfg := newTestConfig(t, "file")
	cfg.Policy.URL = ""

	a, err := NewGrabApp(context.Background(), cfg, slog.LevelError)
	if err != nil {
		t.Fatalf("NewGrabApp() error = %v", err)
	}
	defer a.Close()

	res := a.Check(context.Background())
	if !res.IsOffline {
		t.Fatal("IsOffline = false without a policy source")
	}
	if res.Config.MinimumVersion != grab.FallbackPolicy().MinimumVersion {
		t.Errorf("Config = %+v, want fallback", res.Config)
	}
	if res.Status != grab.StatusAllowed {
		t.Errorf("Status = %q, want allowed", res.Status)
	}
}

func TestNewGrabApp_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "bad timeout", mutate: func(c *config.Config) { c.Policy.Timeout = "fast" }},
		{name: "bad log level", mutate: func(c *config.Config) { c.LogLevel = "chatty" }},
		{name: "unknown cache type", mutate: func(c *config.Config) { c.Cache.Type = "etcd" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t, "file")
			tt.mutate(cfg)

			if _, err := NewGrabApp(context.Background(), cfg, slog.LevelError); err == nil {
				t.Fatal("NewGrabApp() expected error")
			}
		})
	}
}

func TestSettingsFromConfig(t *testing.T) {
	s, err := SettingsFromConfig(config.PolicyConfig{
		Timeout:          "3s",
		MaxCacheAge:      "48h",
		StaleAllowAfter:  "12h",
		ForceUpdateGrace: "30m",
	})
	if err != nil {
		t.Fatalf("SettingsFromConfig() error = %v", err)
	}

	if s.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v", s.Timeout)
	}
	if s.MaxCacheAge != 48*time.Hour {
		t.Errorf("MaxCacheAge = %v", s.MaxCacheAge)
	}
	if s.Thresholds.StaleAllowAfter != 12*time.Hour || s.Thresholds.ForceUpdateGrace != 30*time.Minute {
		t.Errorf("Thresholds = %+v", s.Thresholds)
	}
	if s.Thresholds.RecheckAfter != 0 {
		t.Errorf("RecheckAfter = %v, want 0 so the controller default applies", s.Thresholds.RecheckAfter)
	}
}
