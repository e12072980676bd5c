package config

import "path/filepath"

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain. The client id, redirect URI, scopes and
// save file name match the installed-app registration the tool has always
// shipped with, so a zero-config run works.
const (
	defaultClientID          = "2fINEZ0uC_0jAg"
	defaultAuthorizeURL      = "https://www.reddit.com/api/v1/authorize"
	defaultRedirectURI       = "http://localhost:5000/callback"
	defaultAuthTimeout       = "5m"
	defaultSaveFile          = "saved_posts.json"
	defaultFormat            = "auto"
	defaultSaveInterval      = "1s"
	defaultAPIBaseURL        = "https://oauth.reddit.com"
	defaultRequestsPerMinute = 60
	defaultLogLevel          = "info"
	defaultConnectTimeout    = "10s"
	defaultDataTimeout       = "60s"
	journalFileName          = "journal.db"
)

// defaultScopes are the OAuth scopes both commands need: identity to find
// the account, history to list saved items, save to save them, read to see
// the things being saved.
var defaultScopes = []string{"identity", "history", "save", "read"}

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		AuthConfig:     defaultAuthConfig(),
		TransferConfig: defaultTransferConfig(),
		APIConfig:      defaultAPIConfig(),
		LoggingConfig:  LoggingConfig{LogLevel: defaultLogLevel},
		NetworkConfig: NetworkConfig{
			ConnectTimeout: defaultConnectTimeout,
			DataTimeout:    defaultDataTimeout,
		},
	}
}

func defaultAuthConfig() AuthConfig {
	return AuthConfig{
		ClientID:     defaultClientID,
		AuthorizeURL: defaultAuthorizeURL,
		RedirectURI:  defaultRedirectURI,
		Scopes:       append([]string(nil), defaultScopes...),
		AuthTimeout:  defaultAuthTimeout,
		OpenBrowser:  true,
	}
}

func defaultTransferConfig() TransferConfig {
	journal := journalFileName
	if dir := DefaultDataDir(); dir != "" {
		journal = filepath.Join(dir, journalFileName)
	}

	return TransferConfig{
		SaveFile:     defaultSaveFile,
		Format:       defaultFormat,
		SaveInterval: defaultSaveInterval,
		Resume:       true,
		JournalPath:  journal,
	}
}

func defaultAPIConfig() APIConfig {
	return APIConfig{
		APIBaseURL:        defaultAPIBaseURL,
		RequestsPerMinute: defaultRequestsPerMinute,
	}
}
