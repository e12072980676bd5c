package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string, logger *slog.Logger) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Debug("config file loaded", slog.String("path", path))

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("no config file, using defaults", slog.String("path", path))
		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Config, error) {
	// 1. Config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. File (or defaults)
	cfg, err := LoadOrDefault(cfgPath, logger)
	if err != nil {
		return nil, err
	}

	// 3. Environment
	applyEnv(cfg, env)

	// 4. CLI flags
	applyCLI(cfg, cli)

	// 5. Validate the final result
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config, env EnvOverrides) {
	if env.ClientID != "" {
		cfg.ClientID = env.ClientID
	}

	if env.SaveFile != "" {
		cfg.SaveFile = env.SaveFile
	}

	if env.LogLevel != "" {
		cfg.LogLevel = env.LogLevel
	}
}

func applyCLI(cfg *Config, cli CLIOverrides) {
	if cli.ClientID != "" {
		cfg.ClientID = cli.ClientID
	}

	if cli.Format != "" {
		cfg.Format = cli.Format
	}

	if cli.OpenBrowser != nil {
		cfg.OpenBrowser = *cli.OpenBrowser
	}

	if cli.Resume != nil {
		cfg.Resume = *cli.Resume
	}

	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}

	if cli.Trace != nil {
		cfg.Trace = *cli.Trace
	}

	if cli.SaveFile != nil && *cli.SaveFile != "" {
		cfg.SaveFile = *cli.SaveFile
	}
}
