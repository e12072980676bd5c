// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for saved-transfer. It supports a
// four-layer override chain (defaults -> config file -> environment -> CLI
// flags). All keys are flat top-level keys; the sub-structs below only group
// them in code.
package config

// Config is the top-level configuration structure parsed from a TOML file.
// Once resolved it is treated as immutable and converted into the
// per-component settings (auth.Config, transfer.Options) at construction.
type Config struct {
	AuthConfig
	TransferConfig
	APIConfig
	LoggingConfig
	NetworkConfig
}

// AuthConfig describes the browser authorization flow.
type AuthConfig struct {
	ClientID     string   `toml:"client_id" json:"client_id"`
	AuthorizeURL string   `toml:"authorize_url" json:"authorize_url"`
	RedirectURI  string   `toml:"redirect_uri" json:"redirect_uri"`
	ListenAddr   string   `toml:"listen_addr" json:"listen_addr"`
	Scopes       []string `toml:"scopes" json:"scopes"`
	AuthTimeout  string   `toml:"auth_timeout" json:"auth_timeout"`
	OpenBrowser  bool     `toml:"open_browser" json:"open_browser"`
}

// TransferConfig controls the save file and import pacing.
type TransferConfig struct {
	SaveFile     string `toml:"save_file" json:"save_file"`
	Format       string `toml:"format" json:"format"`
	SaveInterval string `toml:"save_interval" json:"save_interval"`
	Resume       bool   `toml:"resume" json:"resume"`
	JournalPath  string `toml:"journal_path" json:"journal_path"`
}

// APIConfig points the client at the remote API.
type APIConfig struct {
	APIBaseURL        string `toml:"api_base_url" json:"api_base_url"`
	UserAgent         string `toml:"user_agent" json:"user_agent"`
	RequestsPerMinute int    `toml:"requests_per_minute" json:"requests_per_minute"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	LogLevel string `toml:"log_level" json:"log_level"`
	// Trace prints OpenTelemetry spans for transfers and API calls to stderr.
	Trace bool `toml:"trace" json:"trace"`
}

// NetworkConfig controls HTTP client timeouts.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout" json:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout" json:"data_timeout"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value": --no-browser=false differs from
// not passing --no-browser at all.
type CLIOverrides struct {
	ConfigPath  string  // --config flag (empty = use default)
	Format      string  // --format flag (empty = keep)
	ClientID    string  // --client-id flag (empty = keep)
	OpenBrowser *bool   // --no-browser flag
	Resume      *bool   // --no-resume flag
	LogLevel    string  // derived from --verbose / --quiet
	Trace       *bool   // --trace flag
	SaveFile    *string // positional file argument
}
