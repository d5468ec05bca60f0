package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/michaelscutari/dupscan/internal/config"
	"github.com/michaelscutari/dupscan/internal/db"
	"github.com/michaelscutari/dupscan/internal/entry"
	"github.com/michaelscutari/dupscan/internal/fingerprint"
	"github.com/michaelscutari/dupscan/internal/report"
	"github.com/michaelscutari/dupscan/internal/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, root, rel string, data []byte) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func padded(prefix string, size int) []byte {
	b := bytes.Repeat([]byte("."), size)
	copy(b, prefix)
	return b
}

func newTestApp(t *testing.T, root string) *App {
	t.Helper()
	work := t.TempDir()
	cfg := config.Default()
	cfg.TargetFolder = root
	cfg.Database = filepath.Join(work, "db", "index.db")
	cfg.ReportPath = filepath.Join(work, "report.csv")
	cfg.ExcludeFiles = []string{"ignore_me.txt"}

	a, err := New(cfg, &bytes.Buffer{}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func readReport(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestScanAndReport(t *testing.T) {
	root := t.TempDir()
	write(t, root, "2024/report_jan.txt", padded("# Report h", 500))
	write(t, root, "archive/report_copy.txt", padded("# Report h", 500))
	write(t, root, "unique.bin", padded("UNIQUEDATA", 777))
	write(t, root, "sub/ignore_me.txt", padded("# Report h", 500))
	write(t, root, "a/doc.gdoc", []byte(`{"doc_id":"aaaa"}`))
	write(t, root, "b/doc.gdoc", []byte(`{"doc_id":"bbbb"}`))

	a := newTestApp(t, root)
	ctx := context.Background()

	mgr, err := a.NewSession()
	require.NoError(t, err)
	meta, err := a.Scan(ctx, mgr)
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.FileCount)
	assert.Equal(t, int64(1), meta.SkippedCount)
	assert.Equal(t, a.RunID(), meta.ID)

	summary, err := a.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Potential.Groups)

	rows := readReport(t, a.Config().ReportPath)
	require.NotEmpty(t, rows)
	assert.Equal(t, report.Header, rows[0])

	pairs := map[string]string{}
	for _, r := range rows[1:] {
		require.Len(t, r, 5)
		assert.NotContains(t, r[0], "unique.bin")
		assert.NotContains(t, r[3], "unique.bin")
		assert.NotContains(t, r[0], "ignore_me.txt")
		assert.NotContains(t, r[3], "ignore_me.txt")
		pairs[r[0]+"->"+r[3]] = r[2]
	}
	assert.Equal(t, "POTENTIAL", pairs["2024/report_jan.txt->archive/report_copy.txt"])
	assert.Equal(t, "POTENTIAL", pairs["archive/report_copy.txt->2024/report_jan.txt"])
	// Placeholder files collide on their name-derived sample despite different content.
	assert.Equal(t, "POTENTIAL", pairs["a/doc.gdoc->b/doc.gdoc"])
	assert.Equal(t, "POTENTIAL", pairs["b/doc.gdoc->a/doc.gdoc"])

	store, err := a.OpenStore()
	require.NoError(t, err)
	defer store.Close()
	rec, err := store.Record(ctx, "a/doc.gdoc")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []byte("doc.gdoc"), rec.PrefixSample)
}

func TestRescanProducesIdenticalReport(t *testing.T) {
	root := t.TempDir()
	write(t, root, "x/one.txt", padded("SAMEPREFIX", 64))
	write(t, root, "y/two.txt", padded("SAMEPREFIX", 64))

	a := newTestApp(t, root)
	ctx := context.Background()

	scanAndReport := func() ([]byte, []entry.FileRecord) {
		mgr, err := a.NewSession()
		require.NoError(t, err)
		_, err = a.Scan(ctx, mgr)
		require.NoError(t, err)
		_, err = a.Report(ctx)
		require.NoError(t, err)

		data, err := os.ReadFile(a.Config().ReportPath)
		require.NoError(t, err)
		store, err := a.OpenStore()
		require.NoError(t, err)
		defer store.Close()
		records, err := store.Records(ctx)
		require.NoError(t, err)
		return data, records
	}

	firstReport, firstRecords := scanAndReport()
	secondReport, secondRecords := scanAndReport()
	assert.Equal(t, firstReport, secondReport)
	assert.Equal(t, firstRecords, secondRecords)
	assert.Len(t, secondRecords, 2)
}

func TestScanRejectsMissingTarget(t *testing.T) {
	a := newTestApp(t, "")
	mgr, err := a.NewSession()
	require.NoError(t, err)
	_, err = a.Scan(context.Background(), mgr)
	require.ErrorIs(t, err, scan.ErrInvalidRoot)
	_, statErr := os.Stat(a.Config().Database)
	assert.True(t, os.IsNotExist(statErr))
}

// Two copies with identical name, size, creation stamp and prefix are exact
// duplicates regardless of the order records reach the store.
func TestExactMatchIsOrderIndependent(t *testing.T) {
	root := t.TempDir()
	eng, err := fingerprint.NewEngine(fingerprint.AlgoSHA256, fingerprint.DefaultSampleSize)
	require.NoError(t, err)

	var entries []entry.Entry
	for _, rel := range []string{"a/invoice.txt", "b/invoice.txt", "c/report_jan.txt", "d/report_copy.txt", "e/lonely.dat"} {
		var data []byte
		switch {
		case strings.HasSuffix(rel, "invoice.txt"):
			data = padded("INVOICE001", 1024)
		case strings.HasSuffix(rel, "lonely.dat"):
			data = padded("LONELY", 33)
		default:
			data = padded("# Report h", 500)
		}
		abs := write(t, root, rel, data)
		entries = append(entries, entry.Entry{
			Path:      rel,
			AbsPath:   abs,
			Name:      filepath.Base(rel),
			Kind:      entry.KindFile,
			Size:      int64(len(data)),
			CreatedAt: "1700000000.000000000",
		})
	}

	groupsFor := func(order []int) report.Groups {
		database, err := db.Open(filepath.Join(t.TempDir(), "index.db"))
		require.NoError(t, err)
		defer database.Close()
		store := db.NewStore(database)
		for _, i := range order {
			rec, err := eng.Record(entries[i])
			require.NoError(t, err)
			require.NoError(t, store.Upsert(context.Background(), rec))
		}
		g, err := report.NewBuilder(store).Load(context.Background())
		require.NoError(t, err)
		return g
	}

	base := groupsFor([]int{0, 1, 2, 3, 4})
	require.Len(t, base.Exact, 1)
	assert.Equal(t, []string{"a/invoice.txt", "b/invoice.txt"}, memberPaths(base.Exact[0]))
	require.Len(t, base.Potential, 2)

	rows := report.Rows(base)
	var exact int
	for _, r := range rows {
		if r.Kind == entry.MatchExact {
			exact++
		}
	}
	assert.Equal(t, 2, exact)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5; i++ {
		order := rng.Perm(len(entries))
		got := groupsFor(order)
		assert.Equal(t, groupPaths(base), groupPaths(got), "order %v", order)
	}
}

func memberPaths(g entry.Group) []string {
	var out []string
	for _, m := range g.Members {
		out = append(out, m.Path)
	}
	return out
}

func groupPaths(g report.Groups) [][]string {
	var out [][]string
	for _, grp := range append(append([]entry.Group{}, g.Exact...), g.Potential...) {
		out = append(out, append([]string{string(grp.Kind), grp.Fingerprint}, memberPaths(grp)...))
	}
	return out
}
