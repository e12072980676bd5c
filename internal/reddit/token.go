package reddit

import (
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
)

// StaticTokenSource serves a single implicit-grant token for its lifetime.
// There is no refresh: once the token expires every call fails with
// ErrTokenExpired and the caller must authorize again.
func StaticTokenSource(tok *oauth2.Token, logger *slog.Logger) TokenSource {
	if logger == nil {
		logger = slog.Default()
	}

	return &tokenBridge{src: oauth2.StaticTokenSource(tok), logger: logger}
}

// tokenBridge adapts oauth2.TokenSource to reddit.TokenSource.
type tokenBridge struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

func (b *tokenBridge) Token() (string, error) {
	t, err := b.src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("reddit: obtaining token: %w", err)
	}

	if !t.Valid() {
		b.logger.Warn("access token expired", slog.Time("expiry", t.Expiry))
		return "", ErrTokenExpired
	}

	return t.AccessToken, nil
}
