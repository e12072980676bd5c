// Package auth runs the OAuth2 implicit-grant flow against a browser: it
// builds the authorization URL, opens it, and captures the access token on a
// short-lived loopback HTTP listener.
//
// Implicit grants return the token in the URL fragment, which browsers never
// send to servers. The listener therefore serves a small page whose script
// copies the fragment into a query string and calls back a second time.
package auth

import "errors"

// Flow failures. All of them end the flow in the Failed state; none are
// retried automatically.
var (
	// ErrBind means the loopback listener could not bind its address.
	ErrBind = errors.New("auth: callback listener unavailable")

	// ErrTimeout means no callback arrived before the capture timeout.
	ErrTimeout = errors.New("auth: timed out waiting for browser callback")

	// ErrMissingToken means the callback arrived without an access token.
	ErrMissingToken = errors.New("auth: callback carried no access token")

	// ErrAccessDenied means the provider redirected back with an error,
	// typically because the user declined.
	ErrAccessDenied = errors.New("auth: authorization denied")

	// ErrStateMismatch means the callback state did not match the session's
	// CSRF nonce.
	ErrStateMismatch = errors.New("auth: OAuth2 state mismatch (possible CSRF)")

	// ErrScopeMismatch means the provider granted fewer scopes than requested.
	ErrScopeMismatch = errors.New("auth: granted scopes do not cover requested scopes")

	// ErrFlowDone is returned when Start is called on a flow that already
	// produced a token.
	ErrFlowDone = errors.New("auth: flow already completed")
)
