package content

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sinkbot/internal/domain"
)

func testStoreLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T, withLedger bool) *Store {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		Dir:     filepath.Join(dir, "downloaded"),
		BaseURL: "https://bot.example.com",
		Logger:  testStoreLogger(),
	}
	if withLedger {
		cfg.LedgerPath = filepath.Join(dir, "ledger.db")
	}
	s, err := NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSave_WritesFileAndURI(t *testing.T) {
	s := newTestStore(t, true)

	dc, err := s.Save(context.Background(), "jpg", strings.NewReader("fake image bytes"))
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(dc.Path)
	if err != nil {
		t.Fatalf("blob not written: %v", err)
	}
	if string(data) != "fake image bytes" {
		t.Errorf("blob content mismatch: %q", data)
	}
	if !strings.HasSuffix(dc.Path, ".jpg") {
		t.Errorf("expected .jpg path, got %s", dc.Path)
	}
	if !strings.HasPrefix(dc.URI, "https://bot.example.com/downloaded/") {
		t.Errorf("unexpected URI: %s", dc.URI)
	}
	if !strings.HasSuffix(dc.URI, filepath.Base(dc.Path)) {
		t.Errorf("URI does not reference the stored blob: %s", dc.URI)
	}
}

func TestSave_UniqueNames(t *testing.T) {
	s := newTestStore(t, false)

	a, err := s.Save(context.Background(), "mp4", strings.NewReader("a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Save(context.Background(), "mp4", strings.NewReader("b"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Path == b.Path {
		t.Error("expected collision-resistant names")
	}
}

func TestSave_LedgerRecordsBlob(t *testing.T) {
	s := newTestStore(t, true)

	dc, err := s.Save(context.Background(), "jpg", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM blobs WHERE path = ?`, dc.Path).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 ledger row, got %d", count)
	}
}

func TestSave_StorageError(t *testing.T) {
	s := newTestStore(t, false)
	s.dir = filepath.Join(s.dir, "missing-subdir")

	_, err := s.Save(context.Background(), "jpg", strings.NewReader("x"))
	var serr *domain.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, errors.New("stream reset")
}

func TestSave_AbortedStreamLeavesNoBlob(t *testing.T) {
	s := newTestStore(t, false)

	_, err := s.Save(context.Background(), "jpg", brokenReader{})
	var serr *domain.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("truncated blob left behind: %v", entries)
	}
}

func TestAllocate_NoFileWritten(t *testing.T) {
	s := newTestStore(t, true)

	dc, err := s.Allocate(context.Background(), "jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dc.Path); !os.IsNotExist(err) {
		t.Error("Allocate must not create the file")
	}
	if !strings.Contains(dc.URI, "/downloaded/") {
		t.Errorf("unexpected URI: %s", dc.URI)
	}
}

func TestSweepOnce_Ledger(t *testing.T) {
	s := newTestStore(t, true)
	s.retention = time.Hour

	dc, err := s.Save(context.Background(), "jpg", strings.NewReader("old"))
	if err != nil {
		t.Fatal(err)
	}
	// Age the ledger row past the retention window.
	if _, err := s.db.Exec(
		`UPDATE blobs SET created_at = ? WHERE path = ?`,
		time.Now().Add(-2*time.Hour).UTC(), dc.Path,
	); err != nil {
		t.Fatal(err)
	}

	removed, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 reclaimed blob, got %d", removed)
	}
	if _, err := os.Stat(dc.Path); !os.IsNotExist(err) {
		t.Error("expired blob still on disk")
	}
}

func TestSweepOnce_KeepsFreshBlobs(t *testing.T) {
	s := newTestStore(t, true)
	s.retention = time.Hour

	dc, err := s.Save(context.Background(), "jpg", strings.NewReader("fresh"))
	if err != nil {
		t.Fatal(err)
	}

	removed, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Fatalf("expected 0 reclaimed blobs, got %d", removed)
	}
	if _, err := os.Stat(dc.Path); err != nil {
		t.Error("fresh blob should survive the sweep")
	}
}

func TestSweepOnce_DirFallback(t *testing.T) {
	s := newTestStore(t, false)
	s.retention = time.Hour

	dc, err := s.Save(context.Background(), "mp4", strings.NewReader("old"))
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(dc.Path, old, old); err != nil {
		t.Fatal(err)
	}

	removed, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 reclaimed blob, got %d", removed)
	}
}
