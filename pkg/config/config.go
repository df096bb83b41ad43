// Package config provides configuration management for bucketd. It handles
// loading, validating, and saving application settings from YAML files and
// provides sensible platform defaults when no file is present.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/bucketd/pkg/errors"
	"github.com/glorpus-work/bucketd/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Catalog configuration
	Catalogs []*CatalogConfig `yaml:"catalogs"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// CatalogConfig points at a single package catalog file.
type CatalogConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Settings represents general application settings.
type Settings struct {
	// Cache settings
	CacheDir string `yaml:"cache_dir,omitempty"`

	// State settings
	StateDir string `yaml:"state_dir,omitempty"`

	// Installation settings
	InstallDir string `yaml:"install_dir,omitempty"`

	// Network settings
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	MaxConcurrent int           `yaml:"max_concurrent_downloads"`

	// Output settings
	LogLevel string `yaml:"log_level"` // error, warn, info, debug
}

// Default configuration values.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultMaxConcurrent is the default maximum number of concurrent downloads.
	DefaultMaxConcurrent = 4
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		cacheDir = "."
	}
	installDir, err := fsutil.GetInstallDir()
	if err != nil {
		installDir = "."
	}
	stateDir, err := fsutil.GetStateDir()
	if err != nil {
		stateDir = "."
	}

	return &Config{
		Catalogs: []*CatalogConfig{},
		Settings: Settings{
			CacheDir:      cacheDir,
			StateDir:      stateDir,
			InstallDir:    installDir,
			HTTPTimeout:   DefaultHTTPTimeout,
			MaxConcurrent: DefaultMaxConcurrent,
			LogLevel:      "info",
		},
	}
}

// DefaultConfigPath returns the path where the config file is expected.
func DefaultConfigPath() (string, error) {
	dataDir, err := fsutil.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "config.yaml"), nil
}

// LoadConfig loads configuration from a file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open config file %s", absPath)
	}
	defer func() { _ = file.Close() }()

	return parseConfig(file)
}

// LoadConfigOrDefault loads the config at path, falling back to defaults when
// the file does not exist.
func LoadConfigOrDefault(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

func parseConfig(reader io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	decoder := yaml.NewDecoder(reader)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Settings.HTTPTimeout < 0 {
		return errors.Wrap(errors.ErrConfigValidation, "http_timeout cannot be negative")
	}
	if c.Settings.MaxConcurrent < 0 {
		return errors.Wrap(errors.ErrConfigValidation, "max_concurrent_downloads cannot be negative")
	}
	for _, cat := range c.Catalogs {
		if cat.Name == "" || cat.Path == "" {
			return errors.Wrap(errors.ErrConfigValidation, "catalog entries need both name and path")
		}
	}
	return nil
}

// SaveConfig writes the configuration to a file, creating parent directories
// as needed.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}
	if err := fsutil.EnsureFileDir(path); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config to YAML")
	}
	if err := os.WriteFile(path, data, fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// InstalledDBPath returns the path of the installed-package database.
func (c *Config) InstalledDBPath() string {
	return filepath.Join(c.Settings.StateDir, "installed.json")
}

// PackageCacheDir returns the directory for downloaded package archives.
func (c *Config) PackageCacheDir() string {
	return filepath.Join(c.Settings.CacheDir, "packages")
}
