package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Upload statuses.
const (
	StatusLoaded = "loaded"
	StatusFailed = "failed"
)

// Upload sources.
const (
	SourceUpload = "upload"
	SourceDrop   = "drop"
)

// Store keeps the history of load attempts in SQLite. Tables themselves are
// never written here.
type Store struct {
	db *sqlx.DB
}

// Upload is one load attempt.
type Upload struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Source    string    `db:"source" json:"source"`
	Filename  string    `db:"filename" json:"filename"`
	Format    string    `db:"format" json:"format"`
	Status    string    `db:"status" json:"status"`
	RowCount  int       `db:"row_count" json:"row_count"`
	SizeBytes int64     `db:"size_bytes" json:"size_bytes"`
	LastError *string   `db:"last_error" json:"last_error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Open connects to the database at path and creates the schema.
func Open(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
	}
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS uploads (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			source TEXT NOT NULL,
			filename TEXT,
			format TEXT,
			status TEXT NOT NULL,
			row_count INTEGER NOT NULL DEFAULT 0,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_created ON uploads(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_session ON uploads(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordUpload inserts one attempt.
func (s *Store) RecordUpload(ctx context.Context, u Upload) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.CreatedAt = u.CreatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO uploads(id, session_id, source, filename, format, status, row_count, size_bytes, last_error, created_at)
		VALUES(:id, :session_id, :source, :filename, :format, :status, :row_count, :size_bytes, :last_error, :created_at)`, u)
	if err != nil {
		return fmt.Errorf("record upload %s: %w", u.ID, err)
	}
	return nil
}

// ListUploads returns the most recent attempts first. A non-empty sessionID
// restricts the list to that session.
func (s *Store) ListUploads(ctx context.Context, sessionID string, limit int) ([]Upload, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		uploads []Upload
		err     error
	)
	const cols = `id, session_id, source, filename, format, status, row_count, size_bytes, last_error, created_at`
	if sessionID == "" {
		err = s.db.SelectContext(ctx, &uploads, `SELECT `+cols+` FROM uploads ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	} else {
		err = s.db.SelectContext(ctx, &uploads, `SELECT `+cols+` FROM uploads WHERE session_id=? ORDER BY created_at DESC, rowid DESC LIMIT ?`, sessionID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return uploads, nil
}

// CountByStatus tallies attempts per status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS n FROM uploads GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count uploads: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// Prune deletes attempts older than cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM uploads WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune uploads: %w", err)
	}
	return res.RowsAffected()
}

// Health returns err if DB not reachable.
func (s *Store) Health(ctx context.Context) error {
	var v int
	if err := s.db.GetContext(ctx, &v, `SELECT 1`); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}
