package cli

import (
	"fmt"

	"github.com/glorpus-work/bucketd/internal/logger"
	"github.com/glorpus-work/bucketd/pkg/config"
)

// These variables are set by the main package from the root command's
// persistent flags.
var (
	ConfigPath *string
	LogLevel   *string
)

// loadConfig loads the configuration honoring the global flags and
// initializes logging from it.
func loadConfig() (*config.Config, error) {
	path := ""
	if ConfigPath != nil {
		path = *ConfigPath
	}

	cfg, err := config.LoadConfigOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if LogLevel != nil && *LogLevel != "" {
		cfg.Settings.LogLevel = *LogLevel
	}
	logger.InitLogger(cfg.Settings.LogLevel)

	return cfg, nil
}
