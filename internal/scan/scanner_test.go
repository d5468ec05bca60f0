package scan

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/michaelscutari/dupscan/internal/db"
	"github.com/michaelscutari/dupscan/internal/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(t *testing.T, opts *ScanOptions) (*Scanner, *db.Store) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	eng, err := fingerprint.NewEngine(fingerprint.AlgoSHA256, fingerprint.DefaultSampleSize)
	require.NoError(t, err)
	return NewScanner(opts, eng, nil), db.NewStore(database)
}

func TestScannerStoresRecords(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/same.txt":  "identical content",
		"b/same.txt":  "identical content",
		"c/other.txt": "something else",
		"skip.tmp":    "x",
	})

	opts := DefaultOptions().WithWorkers(3).WithBatchSize(2).ExcludeName("skip.tmp")
	s, store := newTestScanner(t, opts)

	p, err := s.Run(context.Background(), root, store.DB(), "scan-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.Files)
	assert.Equal(t, int64(1), p.Skipped)
	assert.Zero(t, p.Errors)

	records, err := store.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a/same.txt", records[0].Path)
	assert.Equal(t, []byte("identical "), records[0].PrefixSample)

	potential, err := store.PotentialDuplicateGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, potential, 1)
	assert.Len(t, potential[0].Members, 2)
}

func TestScannerIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"x.txt":     "one",
		"y/x.txt":   "one",
		"y/z/w.bin": "two",
	})

	s, store := newTestScanner(t, DefaultOptions())
	ctx := context.Background()

	_, err := s.Run(ctx, root, store.DB(), "scan-1")
	require.NoError(t, err)
	first, err := store.Records(ctx)
	require.NoError(t, err)

	_, err = s.Run(ctx, root, store.DB(), "scan-2")
	require.NoError(t, err)
	second, err := store.Records(ctx)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Path, second[i].Path)
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].ExactFingerprint, second[i].ExactFingerprint)
		assert.Equal(t, first[i].PotentialFingerprint, second[i].PotentialFingerprint)
	}
}

func TestScannerRejectsMissingRoot(t *testing.T) {
	s, store := newTestScanner(t, nil)
	_, err := s.Run(context.Background(), filepath.Join(t.TempDir(), "nope"), store.DB(), "scan-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRoot)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScannerHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a": "1", "b": "2"})

	s, store := newTestScanner(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, root, store.DB(), "scan-1")
	require.ErrorIs(t, err, context.Canceled)

	// The store stays usable after an aborted pass.
	_, err = store.Count(context.Background())
	require.NoError(t, err)
}
