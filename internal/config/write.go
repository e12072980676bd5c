package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// configFilePermissions is the standard permission mode for config files.
// Owner read/write, group and others read-only.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// ErrConfigExists is returned by WriteTemplate when the file is present.
var ErrConfigExists = errors.New("config file already exists")

// configTemplate is the content written by "config init". Every setting is
// present as a commented-out default so users can discover every option
// without reading docs.
const configTemplate = `# saved-transfer configuration
# Uncomment and modify to override defaults.

# ── Authorization ──

# Installed-app client id registered with Reddit
# client_id = "2fINEZ0uC_0jAg"

# Must match the redirect URI of the app registration
# redirect_uri = "http://localhost:5000/callback"

# Listener address; derived from redirect_uri when empty
# listen_addr = ""

# scopes = ["identity", "history", "save", "read"]

# How long to wait for the browser to come back
# auth_timeout = "5m"

# Launch the browser automatically (the URL is always printed)
# open_browser = true

# ── Transfer ──

# Default file for export and import
# save_file = "saved_posts.json"

# auto (by extension), json, or plain (one fullname per line)
# format = "auto"

# Pause between save calls during import (at least 1s)
# save_interval = "1s"

# Skip items an interrupted import already saved
# resume = true
# journal_path = ""

# ── API ──

# api_base_url = "https://oauth.reddit.com"
# user_agent = ""
# requests_per_minute = 60

# ── Logging and network ──

# log_level = "info"
# trace = false
# connect_timeout = "10s"
# data_timeout = "60s"
`

// WriteTemplate creates a commented default config file at path. It never
// overwrites: an existing file yields ErrConfigExists.
func WriteTemplate(path string, logger *slog.Logger) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := atomicWriteFile(path, []byte(configTemplate)); err != nil {
		return err
	}

	logger.Info("created config file", slog.String("path", path))

	return nil
}

// atomicWriteFile writes data to a temp file in the target directory and
// renames it into place. Parent directories are created as needed.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
