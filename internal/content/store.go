// Package content persists downloaded media blobs and owns their
// lifecycle: every blob is recorded in a SQLite ledger and reclaimed by a
// time-based sweep once its retention window passes. The web layer serves
// the directory under /downloaded/.
package content

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sinkbot/internal/domain"
	"sinkbot/internal/metrics"
)

const (
	defaultRetention     = 24 * time.Hour
	defaultSweepInterval = 15 * time.Minute
)

type Config struct {
	Dir           string // blob directory
	BaseURL       string // external base URL, e.g. "https://bot.example.com"
	LedgerPath    string // SQLite database path; empty disables the ledger
	Retention     time.Duration
	SweepInterval time.Duration
	Logger        *slog.Logger
}

// Store writes blobs to a flat directory with collision-resistant names
// and hands back a locator plus the URL they are served under. Saves from
// concurrent pipelines need no coordination: names never collide.
type Store struct {
	dir           string
	baseURL       string
	db            *sql.DB
	retention     time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger
}

func NewStore(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create content directory: %w", err)
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	s := &Store{
		dir:           cfg.Dir,
		baseURL:       cfg.BaseURL,
		retention:     cfg.Retention,
		sweepInterval: cfg.SweepInterval,
		logger:        cfg.Logger,
	}

	if cfg.LedgerPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LedgerPath), 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
		db, err := sql.Open("sqlite", cfg.LedgerPath+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := migrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger migration: %w", err)
		}
		s.db = db
	}

	return s, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS blobs (
		name        TEXT PRIMARY KEY,
		path        TEXT NOT NULL,
		uri         TEXT NOT NULL,
		size        INTEGER DEFAULT 0,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_blobs_created ON blobs(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Close releases the ledger database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save writes the full stream to a new blob and returns its locator and
// URL. The write is synchronous; any I/O failure aborts the caller's
// pipeline step with a StorageError.
func (s *Store) Save(ctx context.Context, ext string, r io.Reader) (domain.DownloadedContent, error) {
	dc, name := s.newBlob(ext)

	f, err := os.Create(dc.Path)
	if err != nil {
		return domain.DownloadedContent{}, &domain.StorageError{Op: "create " + name, Err: err}
	}
	written, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(dc.Path)
		return domain.DownloadedContent{}, &domain.StorageError{Op: "write " + name, Err: err}
	}
	// A close-time flush failure would leave a truncated blob behind a
	// URI that is about to be sent in a reply.
	if err := f.Close(); err != nil {
		os.Remove(dc.Path)
		return domain.DownloadedContent{}, &domain.StorageError{Op: "close " + name, Err: err}
	}

	s.record(ctx, name, dc, written)
	metrics.ContentBytesTotal.Add(written)
	s.logger.Info("content saved", "name", name, "bytes", written)
	return dc, nil
}

// Allocate reserves a blob name for a derived artifact (e.g. a transform
// output) without writing anything. The external tool writes the file; the
// ledger still tracks it for the retention sweep.
func (s *Store) Allocate(ctx context.Context, ext string) (domain.DownloadedContent, error) {
	dc, name := s.newBlob(ext)
	s.record(ctx, name, dc, 0)
	return dc, nil
}

func (s *Store) newBlob(ext string) (domain.DownloadedContent, string) {
	name := time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString() + "." + ext
	return domain.DownloadedContent{
		Path: filepath.Join(s.dir, name),
		URI:  s.baseURL + "/downloaded/" + name,
	}, name
}

func (s *Store) record(ctx context.Context, name string, dc domain.DownloadedContent, size int64) {
	if s.db == nil {
		return
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (name, path, uri, size) VALUES (?, ?, ?, ?)`,
		name, dc.Path, dc.URI, size,
	)
	if err != nil {
		s.logger.Warn("failed to record blob in ledger", "name", name, "err", err)
	}
}

// RunSweeper periodically reclaims blobs older than the retention window.
// Blocks until ctx is done.
func (s *Store) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Warn("content sweep failed", "err", err)
			} else if removed > 0 {
				s.logger.Info("content sweep reclaimed blobs", "count", removed)
			}
		}
	}
}

// SweepOnce removes all blobs older than the retention window and returns
// how many were reclaimed. Uses the ledger when available, otherwise falls
// back to directory modification times.
func (s *Store) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.retention)
	if s.db != nil {
		return s.sweepLedger(ctx, cutoff)
	}
	return s.sweepDir(cutoff)
}

func (s *Store) sweepLedger(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, path FROM blobs WHERE created_at < ?`, cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	type victim struct{ name, path string }
	var victims []victim
	for rows.Next() {
		var v victim
		if err := rows.Scan(&v.name, &v.path); err != nil {
			continue
		}
		victims = append(victims, v)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	removed := 0
	for _, v := range victims {
		if err := os.Remove(v.path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove expired blob", "path", v.path, "err", err)
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE name = ?`, v.name); err != nil {
			s.logger.Warn("failed to delete ledger row", "name", v.name, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Store) sweepDir(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
