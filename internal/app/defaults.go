package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - GRAB_CONFIG_PATH: config file location (default: ~/.config/grab.toml)
//   - GRAB_HOME: base directory for grab data (default: ~/.local/share/grab)
//   - GRAB_CACHE_DIR: policy cache directory (default: the user cache dir + /grab)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"cache_dir":   getCacheDir(),
	}, nil
}

// LoadEnv loads KEY=value pairs from the given .env files into the process
// environment. Missing files are skipped and existing variables win.
// With no arguments it loads ./.env.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// getConfigPath returns the config file path, checking GRAB_CONFIG_PATH env var first,
// then falling back to the default ~/.config/grab.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("GRAB_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "grab.toml"), nil
}

// getBaseDir returns the base directory for grab data, checking GRAB_HOME env var first,
// then falling back to the XDG default ~/.local/share/grab.
func getBaseDir() (string, error) {
	if path := os.Getenv("GRAB_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "grab"), nil
}

// getCacheDir never fails: without a user cache dir it uses the temp dir.
func getCacheDir() string {
	if path := os.Getenv("GRAB_CACHE_DIR"); path != "" {
		return path
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "grab")
	}
	return filepath.Join(os.TempDir(), "grab")
}
