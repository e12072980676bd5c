package auth

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// defaultTokenTTL applies when the provider does not echo expires_in.
// Reddit's implicit-grant tokens live for one hour.
const defaultTokenTTL = time.Hour

// AccessToken is the result of a successful flow. It is held in memory for
// one run and never written to disk.
type AccessToken struct {
	Value    string
	Scopes   []string
	TTL      time.Duration
	IssuedAt time.Time
}

// Expiry is when the token stops working.
func (t *AccessToken) Expiry() time.Time {
	return t.IssuedAt.Add(t.TTL)
}

// OAuth2 converts the token for use with golang.org/x/oauth2 token sources.
func (t *AccessToken) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.Value,
		TokenType:   "Bearer",
		Expiry:      t.Expiry(),
	}
}

// tokenFromGrant builds the AccessToken for a validated grant.
func tokenFromGrant(g *Grant, requested []string, now time.Time) *AccessToken {
	scopes := parseScopes(g.Scope)
	if len(scopes) == 0 {
		scopes = slices.Clone(requested)
	}

	return &AccessToken{
		Value:    g.AccessToken,
		Scopes:   scopes,
		TTL:      parseTTL(g.ExpiresIn),
		IssuedAt: now,
	}
}

// parseScopes splits an echoed scope string. Providers use spaces; some use
// commas.
func parseScopes(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ','
	})
}

// parseTTL reads expires_in seconds, falling back to defaultTokenTTL.
func parseTTL(s string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || secs <= 0 {
		return defaultTokenTTL
	}

	return time.Duration(secs) * time.Second
}

// missingScopes returns the requested scopes absent from granted. An empty
// granted list means the provider did not echo scopes, so nothing is missing.
func missingScopes(requested []string, granted string) []string {
	got := parseScopes(granted)
	if len(got) == 0 {
		return nil
	}

	var missing []string

	for _, s := range requested {
		if !slices.Contains(got, s) && !slices.Contains(got, "*") {
			missing = append(missing, s)
		}
	}

	return missing
}
