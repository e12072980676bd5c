package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// FlowState is a position in the flow's state machine:
// Idle -> AwaitingBrowser -> AwaitingCallback -> TokenReady | Failed.
type FlowState int32

const (
	StateIdle FlowState = iota
	StateAwaitingBrowser
	StateAwaitingCallback
	StateTokenReady
	StateFailed
)

func (s FlowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingBrowser:
		return "awaiting-browser"
	case StateAwaitingCallback:
		return "awaiting-callback"
	case StateTokenReady:
		return "token-ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("FlowState(%d)", int32(s))
	}
}

// Flow drives one browser login. It is not safe for concurrent Start calls;
// State may be read from any goroutine.
type Flow struct {
	cfg     Config
	openURL func(string) error
	display func(string)
	logger  *slog.Logger
	now     func() time.Time

	state atomic.Int32
}

// NewFlow creates a flow in the Idle state.
//
// display is always called with the authorization URL so the user can open
// it by hand; openURL then tries to launch the default browser. A failing
// openURL is logged and otherwise ignored.
func NewFlow(cfg Config, openURL func(string) error, display func(string), logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}

	if display == nil {
		display = func(string) {}
	}

	return &Flow{
		cfg:     cfg,
		openURL: openURL,
		display: display,
		logger:  logger,
		now:     time.Now,
	}
}

// State reports the current state.
func (f *Flow) State() FlowState {
	return FlowState(f.state.Load())
}

func (f *Flow) setState(s FlowState) {
	prev := FlowState(f.state.Swap(int32(s)))
	f.logger.Debug("auth flow state change",
		slog.String("from", prev.String()),
		slog.String("to", s.String()),
	)
}

// Start runs the flow to completion and returns the captured token. It
// blocks until the callback arrives, the capture times out, or ctx is
// canceled. A Failed flow may be started again; a TokenReady flow may not.
func (f *Flow) Start(ctx context.Context) (*AccessToken, error) {
	switch f.State() {
	case StateTokenReady:
		return nil, ErrFlowDone
	case StateFailed:
		f.setState(StateIdle)
	case StateIdle:
	default:
		return nil, fmt.Errorf("auth: flow already running (%s)", f.State())
	}

	tok, err := f.run(ctx)
	if err != nil {
		f.setState(StateFailed)
		f.logger.Warn("browser login failed", slog.String("error", err.Error()))

		return nil, err
	}

	f.setState(StateTokenReady)

	return tok, nil
}

func (f *Flow) run(ctx context.Context) (*AccessToken, error) {
	f.setState(StateAwaitingBrowser)

	capCfg, err := f.cfg.captureConfig()
	if err != nil {
		return nil, err
	}

	// Bind before anything is shown so a busy port fails fast.
	capture, err := StartCapture(ctx, capCfg, f.logger)
	if err != nil {
		return nil, err
	}

	cfg := f.cfg
	if portIsZero(cfg.RedirectURI) {
		rewritten, rwErr := withPort(cfg.RedirectURI, capture.Addr())
		if rwErr != nil {
			capture.Close()
			return nil, fmt.Errorf("auth: rewriting redirect URI: %w", rwErr)
		}

		cfg.RedirectURI = rewritten
	}

	session, err := NewSession(cfg)
	if err != nil {
		capture.Close()
		return nil, err
	}

	f.logger.Info("starting browser login (implicit grant)",
		slog.String("redirect_uri", session.RedirectURI),
		slog.String("scopes", strings.Join(session.Scopes, " ")),
	)

	f.display(session.AuthorizationURL)
	f.launchBrowser(session.AuthorizationURL)

	f.setState(StateAwaitingCallback)

	grant, err := capture.Wait(ctx)
	if err != nil {
		return nil, err
	}

	return f.validate(session, grant)
}

// launchBrowser attempts to open the authorization URL. Failure is not fatal
// because display already showed the URL.
func (f *Flow) launchBrowser(authURL string) {
	if f.openURL == nil {
		return
	}

	f.logger.Info("opening browser for authorization")

	if err := f.openURL(authURL); err != nil {
		f.logger.Warn("failed to open browser, open the URL manually",
			slog.String("error", err.Error()),
		)
	}
}

// validate checks the grant against the session and builds the token.
// The state must come back unchanged; a callback without one is rejected.
func (f *Flow) validate(session *Session, grant *Grant) (*AccessToken, error) {
	if grant.State == "" {
		return nil, fmt.Errorf("%w: callback carried no state", ErrStateMismatch)
	}

	if grant.State != session.State {
		return nil, ErrStateMismatch
	}

	if missing := missingScopes(session.Scopes, grant.Scope); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrScopeMismatch, strings.Join(missing, ", "))
	}

	tok := tokenFromGrant(grant, session.Scopes, f.now())

	f.logger.Info("access token received",
		slog.Duration("ttl", tok.TTL),
		slog.String("scopes", strings.Join(tok.Scopes, " ")),
	)

	return tok, nil
}

// portIsZero reports whether the redirect URI asks for an ephemeral port.
func portIsZero(redirectURI string) bool {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return false
	}

	_, port, err := net.SplitHostPort(u.Host)

	return err == nil && port == "0"
}
