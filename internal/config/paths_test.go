package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testHome = "/home/testuser"

func TestDefaultConfigDir_NonEmpty(t *testing.T) {
	dir := DefaultConfigDir()
	assert.NotEmpty(t, dir)
	assert.True(t, strings.Contains(dir, appName))
}

func TestDefaultDataDir_NonEmpty(t *testing.T) {
	dir := DefaultDataDir()
	assert.NotEmpty(t, dir)
	assert.True(t, strings.Contains(dir, appName))
}

func TestDefaultConfigPath_EndsWithConfigToml(t *testing.T) {
	path := DefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, "config.toml"))
}

func TestDefaultConfigDir_MacOS(t *testing.T) {
	if runtime.GOOS != platformDarwin {
		t.Skip("macOS-only test")
	}

	assert.Contains(t, DefaultConfigDir(), "Library/Application Support")
}

func TestXDGDir_Override(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	result := xdgDir("XDG_CONFIG_HOME", filepath.Join(testHome, ".config"))
	assert.Equal(t, filepath.Join("/custom/config", appName), result)
}

func TestXDGDir_DefaultFallback(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	os.Unsetenv("XDG_DATA_HOME")

	result := xdgDir("XDG_DATA_HOME", filepath.Join(testHome, ".local", "share"))
	assert.Equal(t, filepath.Join(testHome, ".local", "share", appName), result)
}

func TestDefaultJournalPath_UsesDataDir(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("XDG layout is Linux-only")
	}

	t.Setenv("XDG_DATA_HOME", "/custom/data")

	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/custom/data", appName, journalFileName), cfg.JournalPath)
}
