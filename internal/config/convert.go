package config

import (
	"time"

	"github.com/savedtransfer/saved-transfer/internal/auth"
	"github.com/savedtransfer/saved-transfer/internal/saved"
	"github.com/savedtransfer/saved-transfer/internal/transfer"
)

// userAgentPrefix follows Reddit's "<platform>:<app id>:<version>" format.
const userAgentPrefix = "cli:saved-transfer:"

// Durations are validated before a Config is handed out, so parse errors
// below cannot happen and fall back to the zero value.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}

	return d
}

// Auth returns the authorization flow settings.
func (c *Config) Auth() auth.Config {
	return auth.Config{
		ClientID:     c.ClientID,
		AuthorizeURL: c.AuthorizeURL,
		RedirectURI:  c.RedirectURI,
		Scopes:       append([]string(nil), c.Scopes...),
		ListenAddr:   c.ListenAddr,
		Timeout:      mustDuration(c.AuthTimeout),
	}
}

// TransferOptions returns the engine settings. Journal and progress
// callbacks are attached by the caller.
func (c *Config) TransferOptions() transfer.Options {
	return transfer.Options{MinInterval: mustDuration(c.SaveInterval)}
}

// SaveFormat returns the configured save file encoding.
func (c *Config) SaveFormat() saved.Format {
	f, err := saved.ParseFormat(c.Format)
	if err != nil {
		return saved.FormatAuto
	}

	return f
}

// EffectiveUserAgent returns user_agent, or the default for version.
func (c *Config) EffectiveUserAgent(version string) string {
	if c.UserAgent != "" {
		return c.UserAgent
	}

	return userAgentPrefix + version
}

// Timeouts returns the connect and data timeouts for the HTTP client.
func (c *Config) Timeouts() (connect, data time.Duration) {
	return mustDuration(c.ConnectTimeout), mustDuration(c.DataTimeout)
}
