package db

import (
	"context"
	"testing"
	"time"

	"github.com/michaelscutari/dupscan/internal/entry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(path, exact, potential string, sample []byte) entry.FileRecord {
	return entry.FileRecord{
		Filename:             path,
		Path:                 path,
		Size:                 int64(len(sample)),
		CreatedAt:            "100.000000000",
		PrefixSample:         sample,
		ExactFingerprint:     exact,
		PotentialFingerprint: potential,
	}
}

func TestUpsertOverwritesByPath(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, rec("a.txt", "e1", "p1", []byte("old"))))
	require.NoError(t, store.Upsert(ctx, rec("a.txt", "e2", "p2", []byte("newer"))))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := store.Record(ctx, "a.txt")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "e2", got.ExactFingerprint)
	assert.Equal(t, "p2", got.PotentialFingerprint)
	assert.Equal(t, int64(5), got.Size)
	assert.Equal(t, []byte("newer"), got.PrefixSample)

	missing, err := store.Record(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPrefixSampleRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	samples := [][]byte{
		{},
		{0x00, 0xff, 0x10, 0x80},
		[]byte("0123456789"),
		[]byte("plan.gdoc"),
	}
	for i, s := range samples {
		r := rec(string(rune('a'+i)), "e", "p", s)
		require.NoError(t, store.Upsert(ctx, r))
	}

	records, err := store.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, len(samples))
	for i, r := range records {
		assert.Equal(t, samples[i], r.PrefixSample, "record %s", r.Path)
	}
}

func TestDuplicateGroups(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, r := range []entry.FileRecord{
		rec("z/copy.txt", "E1", "P1", []byte("x")),
		rec("a/copy.txt", "E1", "P1", []byte("x")),
		rec("b/other.txt", "E2", "P1", []byte("x")),
		rec("c/alone.txt", "E3", "P9", []byte("y")),
		rec("d/pair1", "E4", "P0", []byte("w")),
		rec("d/pair2", "E5", "P0", []byte("w")),
	} {
		require.NoError(t, store.Upsert(ctx, r))
	}

	exact, err := store.ExactDuplicateGroups(ctx)
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, entry.MatchExact, exact[0].Kind)
	assert.Equal(t, "E1", exact[0].Fingerprint)
	require.Len(t, exact[0].Members, 2)
	assert.Equal(t, "a/copy.txt", exact[0].Members[0].Path)
	assert.Equal(t, "z/copy.txt", exact[0].Members[1].Path)

	potential, err := store.PotentialDuplicateGroups(ctx)
	require.NoError(t, err)
	require.Len(t, potential, 2)
	assert.Equal(t, "P0", potential[0].Fingerprint)
	assert.Equal(t, "P1", potential[1].Fingerprint)
	assert.Len(t, potential[0].Members, 2)
	require.Len(t, potential[1].Members, 3)
	assert.Equal(t, []string{"a/copy.txt", "b/other.txt", "z/copy.txt"}, paths(potential[1].Members))

	for _, g := range append(exact, potential...) {
		for _, m := range g.Members {
			assert.NotEqual(t, "c/alone.txt", m.Path)
		}
	}
}

func TestDuplicateGroupsUnknownKind(t *testing.T) {
	store := openTestStore(t)
	_, err := store.DuplicateGroups(context.Background(), entry.MatchKind("FUZZY"))
	require.Error(t, err)
}

func TestResetClearsStore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, rec("a", "e", "p", nil)))
	require.NoError(t, store.BeginScan(ctx, entry.ScanMeta{ID: "s1", RootPath: "/r", StartTime: time.Now()}))
	require.NoError(t, store.Reset(ctx))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	meta, err := store.LatestScan(ctx)
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestScanMetaLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	start := time.Unix(1700000000, 0)
	meta := entry.ScanMeta{ID: "s1", RootPath: "/data", Recursive: true, StartTime: start}
	require.NoError(t, store.BeginScan(ctx, meta))

	meta.EndTime = start.Add(3 * time.Second)
	meta.FileCount = 12
	meta.SkippedCount = 2
	meta.ErrorCount = 1
	require.NoError(t, store.FinishScan(ctx, meta))

	got, err := store.LatestScan(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, "/data", got.RootPath)
	assert.True(t, got.Recursive)
	assert.Equal(t, start, got.StartTime)
	assert.Equal(t, start.Add(3*time.Second), got.EndTime)
	assert.Equal(t, int64(12), got.FileCount)
	assert.Equal(t, int64(2), got.SkippedCount)
	assert.Equal(t, int64(1), got.ErrorCount)
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, rec("keep", "e", "p", []byte("k"))))

	require.NoError(t, InitSchema(store.DB()))

	version, dirty, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func paths(records []entry.FileRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Path
	}
	return out
}
