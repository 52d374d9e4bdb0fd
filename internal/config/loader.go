package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bigsql/pgadmin4/internal/constants"
)

// EnvConfigDir overrides the directory holding config.yaml and report storage.
const EnvConfigDir = "PGPROF_CONFIG"

// Loader handles loading and saving the configuration file.
type Loader struct {
	baseDir string
}

// NewLoader creates a loader rooted at $PGPROF_CONFIG, falling back to
// ~/.pgprof and then a temp directory when no home directory exists.
func NewLoader() *Loader {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return &Loader{baseDir: dir}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return &Loader{baseDir: filepath.Join(home, constants.DefaultDir)}
	}
	return &Loader{baseDir: filepath.Join(os.TempDir(), "pgprof-fallback")}
}

// NewLoaderAt creates a loader rooted at dir.
func NewLoaderAt(dir string) *Loader {
	return &Loader{baseDir: dir}
}

// BaseDir returns the configuration directory.
func (l *Loader) BaseDir() string {
	return l.baseDir
}

// ConfigPath returns the path to config.yaml.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.baseDir, constants.ConfigFile)
}

// Load reads config.yaml, layering it over defaults and applying environment
// overrides. A missing file yields defaults. The result is validated.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	//nolint:gosec // G304: path is under the trusted config directory.
	data, err := os.ReadFile(l.ConfigPath())
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := MergeFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = filepath.Join(l.baseDir, constants.DefaultReportsDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to config.yaml.
func (l *Loader) Save(cfg *Config) error {
	//nolint:gosec // G301: directory needs standard permissions for traversal.
	if err := os.MkdirAll(l.baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The DSN and redis password may be present.
	if err := os.WriteFile(l.ConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// IndexPath returns the path of the saved report index database.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Storage.Dir, constants.DefaultIndexFile)
}
