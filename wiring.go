package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/browser"

	"github.com/savedtransfer/saved-transfer/internal/auth"
	"github.com/savedtransfer/saved-transfer/internal/config"
	"github.com/savedtransfer/saved-transfer/internal/journal"
	"github.com/savedtransfer/saved-transfer/internal/reddit"
	"github.com/savedtransfer/saved-transfer/internal/transfer"
)

// collaborators are the pieces a command talks to outside the process.
// Tests replace them with fakes.
type collaborators struct {
	authorize   func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*auth.AccessToken, error)
	newRemote   func(cfg *config.Config, tok *auth.AccessToken, logger *slog.Logger) transfer.Remote
	openJournal func(ctx context.Context, path string, logger *slog.Logger) (journalHandle, error)
	stderr      io.Writer
	stderrTTY   bool
}

// journalHandle is a Journal that must be closed.
type journalHandle interface {
	transfer.Journal
	io.Closer
}

var deps collaborators

func init() {
	deps = defaultCollaborators()
}

func defaultCollaborators() collaborators {
	return collaborators{
		authorize:   browserAuthorize,
		newRemote:   redditRemote,
		openJournal: openJournalStore,
		stderr:      os.Stderr,
		stderrTTY:   isTerminal(os.Stderr),
	}
}

// browserAuthorize runs the implicit-grant flow. The URL is always printed
// so the user can finish the login when no browser can be launched.
func browserAuthorize(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*auth.AccessToken, error) {
	var open func(string) error
	if cfg.OpenBrowser {
		open = openBrowser
	}

	display := func(authURL string) {
		fmt.Fprintf(deps.stderr, "Authorize saved-transfer in your browser:\n\n  %s\n\n", authURL)
	}

	return auth.NewFlow(cfg.Auth(), open, display, logger).Start(ctx)
}

// openBrowser launches the default browser without letting the launcher's
// own output reach the terminal.
func openBrowser(url string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard

	return browser.OpenURL(url)
}

func redditRemote(cfg *config.Config, tok *auth.AccessToken, logger *slog.Logger) transfer.Remote {
	client := reddit.NewClient(
		cfg.APIBaseURL,
		newHTTPClient(cfg),
		reddit.StaticTokenSource(tok.OAuth2(), logger),
		logger,
		cfg.EffectiveUserAgent(version),
	)
	client.LimitRequests(cfg.RequestsPerMinute)

	return client
}

func openJournalStore(ctx context.Context, path string, logger *slog.Logger) (journalHandle, error) {
	store, err := journal.Open(ctx, path, logger)
	if err != nil {
		return nil, err
	}

	return store, nil
}
