package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/savedtransfer/saved-transfer/internal/auth"
	"github.com/savedtransfer/saved-transfer/internal/config"
	"github.com/savedtransfer/saved-transfer/internal/reddit"
	"github.com/savedtransfer/saved-transfer/internal/transfer"
)

// fakeRemote is an in-memory account.
type fakeRemote struct {
	mu sync.Mutex

	account  string
	things   []reddit.Thing
	meErr    error
	saveErrs map[string]error
	saves    []string

	// after is returned as the cursor of every page.
	after string

	// onPage and onSave run inside the remote call.
	onPage func(ctx context.Context)
	onSave func(ctx context.Context, n int)
}

func (f *fakeRemote) Me(context.Context) (*reddit.Account, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}

	return &reddit.Account{Name: f.account}, nil
}

func (f *fakeRemote) SavedPage(ctx context.Context, _, _ string) (*reddit.Page, error) {
	if f.onPage != nil {
		f.onPage(ctx)
	}

	return &reddit.Page{Things: f.things, After: f.after}, nil
}

func (f *fakeRemote) Save(ctx context.Context, fullname string) error {
	f.mu.Lock()
	f.saves = append(f.saves, fullname)
	n := len(f.saves)
	f.mu.Unlock()

	if f.onSave != nil {
		f.onSave(ctx, n)
	}

	return f.saveErrs[fullname]
}

// cliCalls records what a command did with its collaborators.
type cliCalls struct {
	authorize int
	remote    int
	stderr    bytes.Buffer
}

// withFakes swaps the collaborators for the duration of the test.
// authErr, when set, makes authorization fail.
func withFakes(t *testing.T, remote *fakeRemote, authErr error) *cliCalls {
	t.Helper()

	old := deps
	t.Cleanup(func() { deps = old })

	calls := &cliCalls{}

	deps = collaborators{
		authorize: func(context.Context, *config.Config, *slog.Logger) (*auth.AccessToken, error) {
			calls.authorize++
			if authErr != nil {
				return nil, authErr
			}

			return &auth.AccessToken{Value: "tok", TTL: time.Hour, IssuedAt: time.Now()}, nil
		},
		newRemote: func(*config.Config, *auth.AccessToken, *slog.Logger) transfer.Remote {
			calls.remote++
			return remote
		},
		openJournal: openJournalStore,
		stderr:      &calls.stderr,
	}

	return calls
}

// runCLI executes the root command against a throwaway config whose journal
// lives in a temp dir.
func runCLI(t *testing.T, args ...string) error {
	t.Helper()

	for _, env := range []string{config.EnvConfig, config.EnvClientID, config.EnvSaveFile, config.EnvLogLevel} {
		t.Setenv(env, "")
	}

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("journal_path = %q\nlog_level = \"error\"\n", filepath.Join(dir, "journal.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	return cmd.Execute()
}

func link(id string) reddit.Thing {
	return reddit.Thing{Kind: reddit.KindLink, Data: reddit.ThingData{ID: id, Subreddit: "golang", Title: "t " + id}}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func tempEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string

	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			names = append(names, e.Name())
		}
	}

	return names
}

var errBrowserClosed = errors.New("browser closed")
