// Package journal records which saves of an import batch already succeeded,
// so a rerun of the same file against the same account can skip them. State
// lives in a small SQLite database next to the other application data.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // database/sql driver "sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dirPerms is the mode for the journal's parent directory.
const dirPerms = 0o700

const (
	sqlCompleted = `SELECT fullname FROM saves WHERE batch = ?`

	sqlRecord = `INSERT INTO saves (batch, fullname, run_id, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(batch, fullname) DO UPDATE SET
		 run_id = excluded.run_id,
		 saved_at = excluded.saved_at`

	sqlForget = `DELETE FROM saves WHERE batch = ?`
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("journal: store is closed")

// Store is the import journal. It is the only writer to its database.
type Store struct {
	db      *sql.DB
	runID   string
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Open opens or creates the journal at path and applies pending migrations.
// Each Store gets a fresh run id that tags the rows it writes.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return nil, fmt.Errorf("journal: creating directory for %s: %w", path, err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: opening database %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:      db,
		runID:   uuid.NewString(),
		logger:  logger,
		nowFunc: time.Now,
	}

	logger.Debug("journal opened",
		slog.String("path", path),
		slog.String("run_id", s.runID),
	)

	return s, nil
}

func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("journal: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("journal: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("journal: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// RunID identifies this Store's session in the rows it writes.
func (s *Store) RunID() string { return s.runID }

// Completed returns the fullnames already saved for batch.
func (s *Store) Completed(ctx context.Context, batch string) (map[string]bool, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, sqlCompleted, batch)
	if err != nil {
		return nil, fmt.Errorf("journal: loading batch: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)

	for rows.Next() {
		var fullname string
		if err := rows.Scan(&fullname); err != nil {
			return nil, fmt.Errorf("journal: scanning row: %w", err)
		}

		done[fullname] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterating rows: %w", err)
	}

	return done, nil
}

// Record marks fullname as saved in batch.
func (s *Store) Record(ctx context.Context, batch, fullname string) error {
	if s.db == nil {
		return ErrClosed
	}

	_, err := s.db.ExecContext(ctx, sqlRecord, batch, fullname, s.runID, s.nowFunc().Unix())
	if err != nil {
		return fmt.Errorf("journal: recording %s: %w", fullname, err)
	}

	return nil
}

// Forget drops every row of batch. Used once a batch finished cleanly.
func (s *Store) Forget(ctx context.Context, batch string) error {
	if s.db == nil {
		return ErrClosed
	}

	res, err := s.db.ExecContext(ctx, sqlForget, batch)
	if err != nil {
		return fmt.Errorf("journal: forgetting batch: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		s.logger.Debug("journal batch forgotten", slog.Int64("rows", n))
	}

	return nil
}

// Close closes the database. Further calls return ErrClosed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	if err != nil {
		return fmt.Errorf("journal: closing database: %w", err)
	}

	return nil
}
