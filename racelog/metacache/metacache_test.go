package metacache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racelog/racelog/racelog"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func sampleMeta() *racelog.LogMeta {
	return &racelog.LogMeta{
		ModelName: "fast-model",
		WorldName: "reInvent2019_track",
		JobType:   "TRAINING",
		Hyperparameters: racelog.Hyperparameters{
			BatchSize: 64, LearningRate: 0.0003, EpisodesPerIteration: 20,
		},
		ActionSpace: []racelog.Action{{Index: 0, Speed: 1, SteeringAngle: -30}},
		Stats:       racelog.EpisodeStats{EpisodeCount: 40, SuccessCount: 3},
	}
}

func TestStore_PutGet(t *testing.T) {
	// GIVEN a cached log
	s := openStore(t)
	path := writeLog(t, t.TempDir(), "training.log", "log text")
	require.NoError(t, s.Put(path, sampleMeta()))

	// WHEN read back
	got, ok, err := s.Get(path)

	// THEN the metadata comes back intact
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(sampleMeta(), got); diff != "" {
		t.Errorf("meta mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_MissWhenNotCached(t *testing.T) {
	s := openStore(t)
	path := writeLog(t, t.TempDir(), "training.log", "log text")

	got, ok, err := s.Get(path)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStore_MissWhenFileChanged(t *testing.T) {
	// GIVEN a cached log that is then rewritten
	s := openStore(t)
	dir := t.TempDir()
	path := writeLog(t, dir, "training.log", "log text")
	require.NoError(t, s.Put(path, sampleMeta()))
	writeLog(t, dir, "training.log", "longer log text")

	// WHEN looked up
	_, ok, err := s.Get(path)

	// THEN the stale fingerprint misses
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PutReplacesAndKeepsID(t *testing.T) {
	s := openStore(t)
	path := writeLog(t, t.TempDir(), "training.log", "log text")
	require.NoError(t, s.Put(path, sampleMeta()))
	before, err := s.List()
	require.NoError(t, err)
	require.Len(t, before, 1)

	updated := sampleMeta()
	updated.ModelName = "slow-model"
	require.NoError(t, s.Put(path, updated))

	after, err := s.List()
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, "slow-model", after[0].Meta.ModelName)
}

func TestStore_ListFlagsStaleAndPrunes(t *testing.T) {
	// GIVEN two cached logs, one of which is deleted
	s := openStore(t)
	dir := t.TempDir()
	keep := writeLog(t, dir, "a.log", "a")
	gone := writeLog(t, dir, "b.log", "b")
	require.NoError(t, s.Put(keep, sampleMeta()))
	require.NoError(t, s.Put(gone, sampleMeta()))
	require.NoError(t, os.Remove(gone))

	// WHEN listed
	entries, err := s.List()
	require.NoError(t, err)

	// THEN both are listed in path order with the deleted one stale
	require.Len(t, entries, 2)
	assert.Equal(t, keep, entries[0].Path)
	assert.False(t, entries[0].Stale)
	assert.True(t, entries[1].Stale)
	assert.NotEmpty(t, entries[0].ID)
	assert.WithinDuration(t, time.Now(), time.Unix(0, entries[0].CachedAtNs), time.Minute)

	// AND pruning removes only the stale entry
	n, err := s.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	entries, err = s.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_Delete(t *testing.T) {
	s := openStore(t)
	path := writeLog(t, t.TempDir(), "training.log", "x")
	require.NoError(t, s.Put(path, sampleMeta()))

	require.NoError(t, s.Delete(path))

	_, ok, err := s.Get(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_GetMissingFile(t *testing.T) {
	s := openStore(t)
	_, _, err := s.Get(filepath.Join(t.TempDir(), "nope.log"))
	assert.Error(t, err)
}

func TestStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "meta.db")
	path := writeLog(t, t.TempDir(), "training.log", "x")

	s, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Put(path, sampleMeta()))
	require.NoError(t, s.Close())

	s, err = Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	_, ok, err := s.Get(path)
	require.NoError(t, err)
	assert.True(t, ok)
}
