package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("GRAB_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("GRAB_HOME", "/custom/grab")
		t.Setenv("GRAB_CACHE_DIR", "/custom/cache")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/config.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/config.toml")
		}
		if defaults["base_dir"] != "/custom/grab" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/grab")
		}
		if defaults["log_dir"] != "/custom/grab/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/custom/grab/log")
		}
		if defaults["cache_dir"] != "/custom/cache" {
			t.Errorf("cache_dir = %q, want %q", defaults["cache_dir"], "/custom/cache")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("GRAB_CONFIG_PATH", "")
		t.Setenv("GRAB_HOME", "")
		t.Setenv("GRAB_CACHE_DIR", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "grab.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "grab")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}

		wantLog := filepath.Join(wantBase, "log")
		if defaults["log_dir"] != wantLog {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], wantLog)
		}

		if filepath.Base(defaults["cache_dir"]) != "grab" {
			t.Errorf("cache_dir = %q, want a grab directory", defaults["cache_dir"])
		}
	})
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	data := "GRAB_POLICY_URL=https://example.com/from-env.json\nGRAB_HOME=/from/env\n"
	if err := os.WriteFile(envPath, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GRAB_POLICY_URL", "")
	os.Unsetenv("GRAB_POLICY_URL")
	t.Setenv("GRAB_HOME", "/already/set")

	if err := LoadEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if got := os.Getenv("GRAB_POLICY_URL"); got != "https://example.com/from-env.json" {
		t.Errorf("GRAB_POLICY_URL = %q, want value from .env", got)
	}
	if got := os.Getenv("GRAB_HOME"); got != "/already/set" {
		t.Errorf("GRAB_HOME = %q, existing variable must win", got)
	}
}
