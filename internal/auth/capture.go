package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCallbackPath is the page the provider redirects to.
const DefaultCallbackPath = "/callback"

// actualSuffix is appended to the callback path for the second request,
// the one that carries the token as a query parameter.
const actualSuffix = "/actual"

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// CaptureConfig configures a Capture listener.
type CaptureConfig struct {
	Addr         string
	CallbackPath string
	Timeout      time.Duration
}

// Grant is what the browser forwarded from the redirect fragment. The
// access token is kept verbatim.
type Grant struct {
	AccessToken string
	State       string
	Scope       string
	ExpiresIn   string
}

// captureResult carries the grant or error from the handler to Wait.
type captureResult struct {
	grant *Grant
	err   error
}

// Capture is a single-shot loopback HTTP listener. The first request to the
// actual-callback route claims the only result slot; the run loop in Wait
// owns the socket teardown.
type Capture struct {
	cfg      CaptureConfig
	listener net.Listener
	srv      *http.Server
	group    *errgroup.Group
	groupCtx context.Context
	resultCh chan captureResult
	claimed  atomic.Bool
	waited   atomic.Bool
	logger   *slog.Logger
}

// StartCapture binds cfg.Addr and starts serving. Bind failures wrap ErrBind
// and are never retried.
func StartCapture(ctx context.Context, cfg CaptureConfig, logger *slog.Logger) (*Capture, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.CallbackPath == "" {
		cfg.CallbackPath = DefaultCallbackPath
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCallbackTimeout
	}

	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("auth: binding %s: %w: %w", cfg.Addr, ErrBind, err)
	}

	c := &Capture{
		cfg:      cfg,
		listener: listener,
		resultCh: make(chan captureResult, 1),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+cfg.CallbackPath, c.handlePage)
	mux.HandleFunc("GET "+cfg.CallbackPath+actualSuffix, c.handleActual)

	c.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	c.group, c.groupCtx = errgroup.WithContext(context.Background())
	c.group.Go(func() error {
		if serveErr := c.srv.Serve(listener); !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("auth: callback server error: %w", serveErr)
		}

		return nil
	})

	logger.Info("callback server listening",
		slog.String("addr", listener.Addr().String()),
		slog.String("path", cfg.CallbackPath),
	)

	return c, nil
}

// Addr is the bound host:port.
func (c *Capture) Addr() string {
	return c.listener.Addr().String()
}

// Wait blocks until the first callback, the timeout, ctx cancellation, or a
// serve failure, then shuts the server down. Once Wait returns the listener
// accepts no more connections. Wait may only be called once.
func (c *Capture) Wait(ctx context.Context) (*Grant, error) {
	if !c.waited.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("auth: capture already waited on")
	}

	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	var res captureResult

	select {
	case res = <-c.resultCh:
	case <-timer.C:
		res.err = fmt.Errorf("auth: no callback within %s: %w", c.cfg.Timeout, ErrTimeout)
	case <-ctx.Done():
		res.err = fmt.Errorf("auth: browser login canceled: %w", ctx.Err())
	case <-c.groupCtx.Done():
		// Serve failed; the group error is reported below.
	}

	// Close the slot before teardown so a request racing the shutdown cannot
	// produce a second result.
	c.claimed.Store(true)
	c.shutdown()

	if serveErr := c.group.Wait(); serveErr != nil && res.err == nil && res.grant == nil {
		res.err = serveErr
	}

	if res.err != nil {
		return nil, res.err
	}

	return res.grant, nil
}

// shutdown gracefully stops the server, letting the in-flight response
// finish.
func (c *Capture) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := c.srv.Shutdown(shutdownCtx); err != nil {
		c.logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
		_ = c.srv.Close()
	}

	c.logger.Debug("callback server stopped")
}

// handlePage serves the fragment-forwarding page.
func (c *Capture) handlePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")

	if err := renderCallbackPage(w, c.cfg.CallbackPath+actualSuffix); err != nil {
		c.logger.Warn("rendering callback page", slog.String("error", err.Error()))
	}
}

// handleActual receives the forwarded fragment parameters. Only the first
// request counts; it always produces a result, success or failure, so the
// flow can never hang on a bad redirect.
func (c *Capture) handleActual(w http.ResponseWriter, r *http.Request) {
	if !c.claimed.CompareAndSwap(false, true) {
		http.Error(w, "Login already completed.", http.StatusGone)
		return
	}

	w.Header().Set("Cache-Control", "no-store")

	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		http.Error(w, "Authorization failed: "+errParam+". Return to the terminal.", http.StatusBadRequest)
		c.resultCh <- captureResult{err: fmt.Errorf("%w: %s", ErrAccessDenied, errParam)}

		return
	}

	token := q.Get("access_token")
	if token == "" {
		http.Error(w, "No access token received. Return to the terminal and try again.", http.StatusBadRequest)
		c.resultCh <- captureResult{err: ErrMissingToken}

		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "Login complete. Return to the terminal.")

	c.resultCh <- captureResult{grant: &Grant{
		AccessToken: token,
		State:       q.Get("state"),
		Scope:       q.Get("scope"),
		ExpiresIn:   q.Get("expires_in"),
	}}
}

// Close stops a capture that will not be waited on. It is a no-op after Wait.
func (c *Capture) Close() {
	if !c.waited.CompareAndSwap(false, true) {
		return
	}

	c.claimed.Store(true)
	c.shutdown()
	_ = c.group.Wait()
}
