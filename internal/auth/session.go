package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// DefaultCallbackTimeout bounds how long the listener waits for the browser.
const DefaultCallbackTimeout = 5 * time.Minute

// Config is the immutable description of one authorization flow.
type Config struct {
	ClientID     string
	AuthorizeURL string
	RedirectURI  string
	Scopes       []string

	// ListenAddr overrides the listener address. Empty derives it from
	// RedirectURI, mapping "localhost" to 127.0.0.1.
	ListenAddr string

	// Timeout bounds the wait for the callback. Zero means
	// DefaultCallbackTimeout.
	Timeout time.Duration
}

// Session is one authorization attempt: the URL the user visits and the
// CSRF nonce the callback must echo. Sessions are never persisted.
type Session struct {
	AuthorizationURL string
	State            string
	Scopes           []string
	RedirectURI      string
}

// NewSession generates a fresh state value and builds the authorization URL
// for the implicit grant (response_type=token).
func NewSession(cfg Config) (*Session, error) {
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("auth: generating state token: %w", err)
	}

	return newSessionWithState(cfg, state), nil
}

func newSessionWithState(cfg Config, state string) *Session {
	oc := &oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: cfg.RedirectURI,
		Scopes:      cfg.Scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: cfg.AuthorizeURL},
	}

	return &Session{
		AuthorizationURL: oc.AuthCodeURL(state, oauth2.SetAuthURLParam("response_type", "token")),
		State:            state,
		Scopes:           slices.Clone(cfg.Scopes),
		RedirectURI:      cfg.RedirectURI,
	}
}

// generateState produces a cryptographically random hex string for the OAuth2
// state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// captureConfig derives the listener address and callback path from the
// redirect URI.
func (cfg Config) captureConfig() (CaptureConfig, error) {
	u, err := url.Parse(cfg.RedirectURI)
	if err != nil {
		return CaptureConfig{}, fmt.Errorf("auth: parsing redirect URI %q: %w", cfg.RedirectURI, err)
	}

	if u.Scheme != "http" || u.Port() == "" {
		return CaptureConfig{}, fmt.Errorf("auth: redirect URI %q must be http with an explicit port", cfg.RedirectURI)
	}

	if !IsLoopbackHost(u.Hostname()) {
		return CaptureConfig{}, fmt.Errorf("auth: redirect URI host %q is not a loopback address", u.Hostname())
	}

	addr := cfg.ListenAddr
	if addr == "" {
		addr = loopbackAddr(u)
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return CaptureConfig{}, fmt.Errorf("auth: listen address %q: %w", addr, err)
	}

	if !IsLoopbackHost(host) {
		return CaptureConfig{}, fmt.Errorf("auth: listen address %q is not a loopback address", addr)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}

	path := strings.TrimSuffix(u.Path, "/")
	if path == "" {
		path = DefaultCallbackPath
	}

	return CaptureConfig{Addr: addr, CallbackPath: path, Timeout: timeout}, nil
}

// IsLoopbackHost reports whether host is "localhost" or a loopback IP.
// An empty host would bind every interface and is rejected.
func IsLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}

	ip := net.ParseIP(host)

	return ip != nil && ip.IsLoopback()
}

// loopbackAddr maps the redirect host to a loopback bind address.
func loopbackAddr(u *url.URL) string {
	host := u.Hostname()
	if host == "localhost" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, u.Port())
}

// withPort rewrites the port of a redirect URI. Used when the configured
// port is 0 and the listener picked a free one.
func withPort(redirectURI, hostport string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}

	_, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", err
	}

	u.Host = net.JoinHostPort(u.Hostname(), port)

	return u.String(), nil
}
