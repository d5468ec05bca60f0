package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/michaelscutari/dupscan/internal/entry"
)

// fingerprintColumn maps a match kind to the column it groups on.
func fingerprintColumn(kind entry.MatchKind) (string, error) {
	switch kind {
	case entry.MatchExact:
		return "exact_fingerprint", nil
	case entry.MatchPotential:
		return "potential_fingerprint", nil
	default:
		return "", fmt.Errorf("unknown match kind %q", kind)
	}
}

// ExactDuplicateGroups returns every exact-fingerprint group with two or more members.
func (s *Store) ExactDuplicateGroups(ctx context.Context) ([]entry.Group, error) {
	return s.DuplicateGroups(ctx, entry.MatchExact)
}

// PotentialDuplicateGroups returns every potential-fingerprint group with two or more members.
func (s *Store) PotentialDuplicateGroups(ctx context.Context) ([]entry.Group, error) {
	return s.DuplicateGroups(ctx, entry.MatchPotential)
}

// DuplicateGroups runs one grouped query for kind. Groups are ordered by
// fingerprint and members by path.
func (s *Store) DuplicateGroups(ctx context.Context, kind entry.MatchKind) ([]entry.Group, error) {
	col, err := fingerprintColumn(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %[2]s
		FROM files
		WHERE %[1]s IN (
			SELECT %[1]s FROM files GROUP BY %[1]s HAVING COUNT(*) > 1
		)
		ORDER BY %[1]s, path
	`, col, selectFileColumns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var groups []entry.Group
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		fp := rec.ExactFingerprint
		if kind == entry.MatchPotential {
			fp = rec.PotentialFingerprint
		}
		if n := len(groups); n == 0 || groups[n-1].Fingerprint != fp {
			groups = append(groups, entry.Group{Kind: kind, Fingerprint: fp})
		}
		g := &groups[len(groups)-1]
		g.Members = append(g.Members, rec)
	}

	return groups, rows.Err()
}

// LatestScan retrieves metadata for the most recent scan. It returns nil
// when the store has never been scanned.
func (s *Store) LatestScan(ctx context.Context) (*entry.ScanMeta, error) {
	var m entry.ScanMeta
	var startTime, endTime int64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, root_path, recursive, start_time, COALESCE(end_time, 0), file_count, skipped_count, error_count
		FROM scans ORDER BY start_time DESC, rowid DESC LIMIT 1
	`).Scan(&m.ID, &m.RootPath, &m.Recursive, &startTime, &endTime, &m.FileCount, &m.SkippedCount, &m.ErrorCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scan metadata: %w", err)
	}

	m.StartTime = unixOrZero(startTime)
	m.EndTime = unixOrZero(endTime)
	return &m, nil
}

// ScanErrors returns up to limit sampled errors for a scan.
func (s *Store) ScanErrors(ctx context.Context, scanID string, limit int) ([]entry.ScanError, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, message FROM scan_errors WHERE scan_id = ? ORDER BY id LIMIT ?`,
		scanID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var errs []entry.ScanError
	for rows.Next() {
		var e entry.ScanError
		if err := rows.Scan(&e.Path, &e.Message); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

// SchemaVersion reads the applied migration version without running migrations.
func (s *Store) SchemaVersion(ctx context.Context) (uint, bool, error) {
	var version uint
	var dirty bool
	err := s.db.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, dirty, nil
}
