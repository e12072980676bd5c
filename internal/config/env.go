package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for overrides.
const (
	EnvConfig   = "SAVED_TRANSFER_CONFIG"
	EnvClientID = "SAVED_TRANSFER_CLIENT_ID"
	EnvSaveFile = "SAVED_TRANSFER_SAVE_FILE"
	EnvLogLevel = "SAVED_TRANSFER_LOG_LEVEL"
)

// DotEnvFile is read from the working directory before the environment is
// consulted. Variables already set in the process environment win.
const DotEnvFile = ".env"

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // SAVED_TRANSFER_CONFIG: override config file path
	ClientID   string // SAVED_TRANSFER_CLIENT_ID
	SaveFile   string // SAVED_TRANSFER_SAVE_FILE
	LogLevel   string // SAVED_TRANSFER_LOG_LEVEL
}

// LoadDotEnv loads path into the process environment without overriding
// existing variables. A missing file is not an error.
func LoadDotEnv(path string, logger *slog.Logger) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}

	logger.Debug("loaded environment file", slog.String("path", path))

	return nil
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides(logger *slog.Logger) EnvOverrides {
	env := EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		ClientID:   os.Getenv(EnvClientID),
		SaveFile:   os.Getenv(EnvSaveFile),
		LogLevel:   os.Getenv(EnvLogLevel),
	}

	logger.Debug("environment overrides",
		slog.String("config_path", env.ConfigPath),
		slog.Bool("client_id_set", env.ClientID != ""),
		slog.String("save_file", env.SaveFile),
		slog.String("log_level", env.LogLevel),
	)

	return env
}
