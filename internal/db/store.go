package db

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/michaelscutari/dupscan/internal/entry"
)

const upsertFileSQL = `
INSERT INTO files (filename, path, size, created_at, prefix_sample_hex, exact_fingerprint, potential_fingerprint)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
    filename = excluded.filename,
    size = excluded.size,
    created_at = excluded.created_at,
    prefix_sample_hex = excluded.prefix_sample_hex,
    exact_fingerprint = excluded.exact_fingerprint,
    potential_fingerprint = excluded.potential_fingerprint
`

const selectFileColumns = `id, filename, path, size, created_at, prefix_sample_hex, exact_fingerprint, potential_fingerprint`

// Store is the file record store. All writes go through one connection.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database.
func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Upsert inserts rec or overwrites every non-key field of the record with
// the same path. It is a single statement, so it is atomic.
func (s *Store) Upsert(ctx context.Context, rec entry.FileRecord) error {
	if _, err := s.db.ExecContext(ctx, upsertFileSQL, upsertArgs(rec)...); err != nil {
		return fmt.Errorf("failed to upsert %q: %w", rec.Path, err)
	}
	return nil
}

func upsertArgs(rec entry.FileRecord) []any {
	return []any{
		rec.Filename,
		rec.Path,
		rec.Size,
		rec.CreatedAt,
		hex.EncodeToString(rec.PrefixSample),
		rec.ExactFingerprint,
		rec.PotentialFingerprint,
	}
}

// Records returns every stored record ordered by path.
func (s *Store) Records(ctx context.Context) ([]entry.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectFileColumns+` FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []entry.FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Record looks up one record by path. It returns nil when absent.
func (s *Store) Record(ctx context.Context, path string) (*entry.FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectFileColumns+` FROM files WHERE path = ?`, path)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

// Reset removes all records and scan history.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, table := range []string{"files", "scan_errors", "scans"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	return nil
}

// BeginScan records the start of a scan pass.
func (s *Store) BeginScan(ctx context.Context, meta entry.ScanMeta) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, root_path, recursive, start_time) VALUES (?, ?, ?, ?)`,
		meta.ID, meta.RootPath, meta.Recursive, meta.StartTime.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record scan start: %w", err)
	}
	return nil
}

// FinishScan records the end time and counters of a scan pass.
func (s *Store) FinishScan(ctx context.Context, meta entry.ScanMeta) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scans SET end_time = ?, file_count = ?, skipped_count = ?, error_count = ? WHERE id = ?`,
		meta.EndTime.Unix(), meta.FileCount, meta.SkippedCount, meta.ErrorCount, meta.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to record scan end: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(r rowScanner) (entry.FileRecord, error) {
	var rec entry.FileRecord
	var sampleHex string
	err := r.Scan(&rec.ID, &rec.Filename, &rec.Path, &rec.Size, &rec.CreatedAt,
		&sampleHex, &rec.ExactFingerprint, &rec.PotentialFingerprint)
	if err != nil {
		if err == sql.ErrNoRows {
			return rec, err
		}
		return rec, fmt.Errorf("scan failed: %w", err)
	}
	rec.PrefixSample, err = hex.DecodeString(sampleHex)
	if err != nil {
		return rec, fmt.Errorf("corrupt prefix sample for %q: %w", rec.Path, err)
	}
	return rec, nil
}

func unixOrZero(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}
