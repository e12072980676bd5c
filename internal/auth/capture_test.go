package auth

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// noKeepAlive returns a client whose connections are closed after each
// request so a stopped listener is observable.
func noKeepAlive() *http.Client {
	return &http.Client{
		Transport: &http.Transport{DisableKeepAlives: true},
		Timeout:   5 * time.Second,
	}
}

func startTestCapture(t *testing.T, timeout time.Duration) *Capture {
	t.Helper()

	c, err := StartCapture(context.Background(), CaptureConfig{
		Addr:    "127.0.0.1:0",
		Timeout: timeout,
	}, testLogger(t))
	require.NoError(t, err)

	t.Cleanup(c.Close)

	return c
}

func actualURL(c *Capture, params url.Values) string {
	return "http://" + c.Addr() + DefaultCallbackPath + actualSuffix + "?" + params.Encode()
}

func getStatus(t *testing.T, rawURL string) (int, string) {
	t.Helper()

	resp, err := noKeepAlive().Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestCapture_DeliversTokenVerbatim(t *testing.T) {
	c := startTestCapture(t, 5*time.Second)

	// Characters that must survive query decoding untouched.
	const token = "abc-123_XYZ.~tok"

	status, body := getStatus(t, actualURL(c, url.Values{
		"access_token": {token},
		"state":        {"st"},
		"scope":        {"identity save"},
		"expires_in":   {"3600"},
	}))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Login complete")

	grant, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, grant.AccessToken)
	assert.Equal(t, "st", grant.State)
	assert.Equal(t, "identity save", grant.Scope)
	assert.Equal(t, "3600", grant.ExpiresIn)
}

func TestCapture_ListenerClosedAfterWait(t *testing.T) {
	c := startTestCapture(t, 5*time.Second)
	addr := c.Addr()

	getStatus(t, actualURL(c, url.Values{"access_token": {"tok"}}))

	_, err := c.Wait(context.Background())
	require.NoError(t, err)

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err == nil {
		conn.Close()
	}

	assert.Error(t, err, "listener should not accept connections after Wait")
}

func TestCapture_MissingToken(t *testing.T) {
	c := startTestCapture(t, 5*time.Second)
	addr := c.Addr()

	status, _ := getStatus(t, actualURL(c, url.Values{"state": {"st"}}))
	assert.Equal(t, http.StatusBadRequest, status)

	_, err := c.Wait(context.Background())
	require.ErrorIs(t, err, ErrMissingToken)

	_, dialErr := net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, dialErr)
}

func TestCapture_AccessDenied(t *testing.T) {
	c := startTestCapture(t, 5*time.Second)

	status, _ := getStatus(t, actualURL(c, url.Values{"error": {"access_denied"}}))
	assert.Equal(t, http.StatusBadRequest, status)

	_, err := c.Wait(context.Background())
	require.ErrorIs(t, err, ErrAccessDenied)
	assert.Contains(t, err.Error(), "access_denied")
}

func TestCapture_OnlyFirstCallbackCounts(t *testing.T) {
	c := startTestCapture(t, 5*time.Second)

	status, _ := getStatus(t, actualURL(c, url.Values{"access_token": {"first"}}))
	assert.Equal(t, http.StatusOK, status)

	status, _ = getStatus(t, actualURL(c, url.Values{"access_token": {"second"}}))
	assert.Equal(t, http.StatusGone, status)

	grant, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", grant.AccessToken)
}

func TestCapture_Timeout(t *testing.T) {
	c := startTestCapture(t, 50*time.Millisecond)

	start := time.Now()
	_, err := c.Wait(context.Background())

	require.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestCapture_ContextCanceled(t *testing.T) {
	c := startTestCapture(t, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCapture_BindFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	_, err = StartCapture(context.Background(), CaptureConfig{Addr: occupied.Addr().String()}, testLogger(t))
	require.ErrorIs(t, err, ErrBind)
}

func TestCapture_ServesForwardingPage(t *testing.T) {
	c := startTestCapture(t, 5*time.Second)

	resp, err := noKeepAlive().Get("http://" + c.Addr() + DefaultCallbackPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "replace('#', '?')")
	assert.Contains(t, string(body), "actual")
}

func TestCapture_UnknownPath(t *testing.T) {
	c := startTestCapture(t, 5*time.Second)

	status, _ := getStatus(t, "http://"+c.Addr()+"/favicon.ico")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCapture_WaitTwice(t *testing.T) {
	c := startTestCapture(t, 20*time.Millisecond)

	_, err := c.Wait(context.Background())
	require.ErrorIs(t, err, ErrTimeout)

	_, err = c.Wait(context.Background())
	assert.Error(t, err)
}
