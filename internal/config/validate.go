package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/savedtransfer/saved-transfer/internal/auth"
)

// Validation range constants.
const (
	minSaveInterval      = 1 * time.Second
	minAuthTimeout       = 10 * time.Second
	minConnectTimeout    = 1 * time.Second
	minDataTimeout       = 5 * time.Second
	maxRequestsPerMinute = 600
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAuth(&cfg.AuthConfig)...)
	errs = append(errs, validateTransfer(&cfg.TransferConfig)...)
	errs = append(errs, validateAPI(&cfg.APIConfig)...)
	errs = append(errs, validateLogLevel(cfg.LogLevel)...)
	errs = append(errs, validateDurationMin("connect_timeout", cfg.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDurationMin("data_timeout", cfg.DataTimeout, minDataTimeout)...)

	return errors.Join(errs...)
}

func validateAuth(a *AuthConfig) []error {
	var errs []error

	if a.ClientID == "" {
		errs = append(errs, errors.New("client_id: must not be empty"))
	}

	if u, err := url.Parse(a.AuthorizeURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("authorize_url: must be an absolute URL, got %q", a.AuthorizeURL))
	}

	errs = append(errs, validateRedirectURI(a.RedirectURI)...)

	if a.ListenAddr != "" {
		if host, _, err := net.SplitHostPort(a.ListenAddr); err != nil {
			errs = append(errs, fmt.Errorf("listen_addr: %w", err))
		} else if !auth.IsLoopbackHost(host) {
			errs = append(errs, fmt.Errorf("listen_addr: must be a loopback address, got %q", a.ListenAddr))
		}
	}

	if len(a.Scopes) == 0 {
		errs = append(errs, errors.New("scopes: at least one scope is required"))
	}

	errs = append(errs, validateDurationMin("auth_timeout", a.AuthTimeout, minAuthTimeout)...)

	return errs
}

// validateRedirectURI requires a plain-http loopback URI with an explicit
// port, since that is where the callback listener binds.
func validateRedirectURI(raw string) []error {
	u, err := url.Parse(raw)
	if err != nil {
		return []error{fmt.Errorf("redirect_uri: %w", err)}
	}

	var errs []error

	if u.Scheme != "http" {
		errs = append(errs, fmt.Errorf("redirect_uri: scheme must be http, got %q", u.Scheme))
	}

	if !auth.IsLoopbackHost(u.Hostname()) {
		errs = append(errs, fmt.Errorf("redirect_uri: host must be a loopback address, got %q", u.Hostname()))
	}

	if u.Port() == "" {
		errs = append(errs, fmt.Errorf("redirect_uri: must include a port, got %q", raw))
	}

	if u.Fragment != "" {
		errs = append(errs, fmt.Errorf("redirect_uri: must not contain a fragment, got %q", raw))
	}

	return errs
}

var validFormats = map[string]bool{
	"auto": true, "json": true, "plain": true,
}

func validateTransfer(t *TransferConfig) []error {
	var errs []error

	if t.SaveFile == "" {
		errs = append(errs, errors.New("save_file: must not be empty"))
	}

	if !validFormats[t.Format] {
		errs = append(errs, fmt.Errorf("format: must be one of auto, json, plain; got %q", t.Format))
	}

	errs = append(errs, validateDurationMin("save_interval", t.SaveInterval, minSaveInterval)...)

	if t.Resume && t.JournalPath == "" {
		errs = append(errs, errors.New("journal_path: required when resume is enabled"))
	}

	return errs
}

func validateAPI(a *APIConfig) []error {
	var errs []error

	if u, err := url.Parse(a.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_base_url: must be an absolute URL, got %q", a.APIBaseURL))
	}

	if a.RequestsPerMinute < 0 || a.RequestsPerMinute > maxRequestsPerMinute {
		errs = append(errs, fmt.Errorf("requests_per_minute: must be between 0 and %d, got %d",
			maxRequestsPerMinute, a.RequestsPerMinute))
	}

	return errs
}

// validateDuration checks that a duration string is valid and meets a minimum.
func validateDuration(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be at least %s, got %s", field, minimum, value)
	}

	return nil
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	if err := validateDuration(field, value, minimum); err != nil {
		return []error{err}
	}

	return nil
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}
