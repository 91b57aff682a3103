package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/config"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/features"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/lattice"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/motif"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func threadFeatures(id string, fp uint64) features.ThreadFeatures {
	r := lattice.NewResult()
	r.Counts[motif.Dyadic] = 2
	r.Transitions[lattice.Transition{Parent: motif.SingleEdge, Child: motif.Dyadic}] = 2
	return features.ThreadFeatures{
		ThreadID:     id,
		Root:         id,
		Fingerprint:  fp,
		Utterances:   12,
		Participants: 4,
		Features:     lattice.Features(r, ""),
		Result:       r,
	}
}

func TestCreateRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cfg := config.Default()
	cfg.Motifs.NullModel = true
	run, err := s.CreateRun(ctx, RunParams{Corpus: "corpus.jsonl", Config: cfg})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)
	assert.True(t, got.Config.Motifs.NullModel)
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "run not found: nope")
}

func TestSaveThread_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, RunParams{Corpus: "c", Config: config.Default()})
	require.NoError(t, err)

	require.NoError(t, s.SaveThread(ctx, run.ID, threadFeatures("t2", 2)))
	require.NoError(t, s.SaveThread(ctx, run.ID, threadFeatures("t1", 1<<63+5)))
	// Saving again replaces the row.
	require.NoError(t, s.SaveThread(ctx, run.ID, threadFeatures("t2", 3)))

	threads, err := s.ThreadFeatures(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, threads, 2)

	assert.Equal(t, "t1", threads[0].ThreadID)
	assert.Equal(t, uint64(1<<63+5), threads[0].Fingerprint)
	assert.Equal(t, uint64(3), threads[1].Fingerprint)
	assert.Equal(t, run.ID, threads[1].RunID)
	assert.Equal(t, 2, threads[1].Features["count[DYADIC_TRIADS]"])
	assert.Equal(t, threadFeatures("t1", 0).Result, threads[0].Result)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Threads)
}

func TestSaveThread_UnknownRun(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveThread(context.Background(), "missing", threadFeatures("t", 1))
	assert.True(t, IsNotFound(err))

	_, err = s.ThreadFeatures(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, corpus := range []string{"a", "b", "c"} {
		run, err := s.CreateRun(ctx, RunParams{Corpus: corpus, Config: config.Default()})
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestHasFingerprint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, RunParams{Corpus: "c", Config: config.Default()})
	require.NoError(t, err)
	require.NoError(t, s.SaveThread(ctx, run.ID, threadFeatures("t", 0xfeed)))

	ok, err := s.HasFingerprint(ctx, 0xfeed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasFingerprint(ctx, 0xbeef)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_FileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "features.db")
	ctx := context.Background()

	s, err := Open(ctx, Options{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	run, err := s.CreateRun(ctx, RunParams{Corpus: "c", Config: config.Default()})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Migrations are not re-applied and data survives.
	s, err = Open(ctx, Options{Path: path})
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}
