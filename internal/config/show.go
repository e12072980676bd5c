package config

import (
	"fmt"
	"io"
	"strings"
)

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command, giving
// users visibility into the effective values after all four override layers
// (defaults -> file -> env -> CLI) have been applied.
func RenderEffective(cfg *Config, version string, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration\n\n")

	renderAuthSection(ew, &cfg.AuthConfig)
	renderTransferSection(ew, &cfg.TransferConfig)
	renderAPISection(ew, cfg, version)
	renderLoggingSection(ew, &cfg.LoggingConfig)
	renderNetworkSection(ew, &cfg.NetworkConfig)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderAuthSection(ew *errWriter, a *AuthConfig) {
	ew.printf("# auth\n")
	ew.printf("client_id     = %q\n", a.ClientID)
	ew.printf("authorize_url = %q\n", a.AuthorizeURL)
	ew.printf("redirect_uri  = %q\n", a.RedirectURI)

	if a.ListenAddr != "" {
		ew.printf("listen_addr   = %q\n", a.ListenAddr)
	}

	ew.printf("scopes        = [%s]\n", joinQuoted(a.Scopes))
	ew.printf("auth_timeout  = %q\n", a.AuthTimeout)
	ew.printf("open_browser  = %t\n", a.OpenBrowser)
	ew.printf("\n")
}

func renderTransferSection(ew *errWriter, t *TransferConfig) {
	ew.printf("# transfer\n")
	ew.printf("save_file     = %q\n", t.SaveFile)
	ew.printf("format        = %q\n", t.Format)
	ew.printf("save_interval = %q\n", t.SaveInterval)
	ew.printf("resume        = %t\n", t.Resume)
	ew.printf("journal_path  = %q\n", t.JournalPath)
	ew.printf("\n")
}

func renderAPISection(ew *errWriter, cfg *Config, version string) {
	ew.printf("# api\n")
	ew.printf("api_base_url        = %q\n", cfg.APIBaseURL)
	ew.printf("user_agent          = %q\n", cfg.EffectiveUserAgent(version))
	ew.printf("requests_per_minute = %d\n", cfg.RequestsPerMinute)
	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("# logging\n")
	ew.printf("log_level = %q\n", l.LogLevel)
	ew.printf("trace     = %t\n", l.Trace)
	ew.printf("\n")
}

func renderNetworkSection(ew *errWriter, n *NetworkConfig) {
	ew.printf("# network\n")
	ew.printf("connect_timeout = %q\n", n.ConnectTimeout)
	ew.printf("data_timeout    = %q\n", n.DataTimeout)
}

// joinQuoted formats a string slice as comma-separated quoted values.
func joinQuoted(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}

	return strings.Join(quoted, ", ")
}
