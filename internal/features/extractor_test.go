package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/config"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/lattice"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/motif"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/thread"
)

// conversation returns a thread where bob and carol answer alice's post,
// alice answers bob, and dave answers nobody in the thread.
func conversation(id string) thread.Thread {
	return thread.Thread{
		ID:   id,
		Root: id,
		Utterances: []thread.Utterance{
			{ID: id, Speaker: "alice", Root: id, Timestamp: 1},
			{ID: id + "-1", Speaker: "bob", ReplyTo: id, Root: id, Timestamp: 2},
			{ID: id + "-2", Speaker: "carol", ReplyTo: id, Root: id, Timestamp: 3},
			{ID: id + "-3", Speaker: "alice", ReplyTo: id + "-1", Root: id, Timestamp: 4},
			{ID: id + "-4", Speaker: "dave", ReplyTo: "elsewhere", Root: id, Timestamp: 5},
		},
	}
}

func newExtractor(mutate func(*ExtractorConfig)) *Extractor {
	cfg := ExtractorConfig{Motifs: config.Default().Motifs, MinThreadLen: 3}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewExtractor(cfg)
}

func TestThread_FullView(t *testing.T) {
	tf, err := newExtractor(func(c *ExtractorConfig) { c.Motifs.MidThread = false }).
		Thread(context.Background(), conversation("r"))
	require.NoError(t, err)

	assert.Equal(t, "r", tf.ThreadID)
	assert.Equal(t, 5, tf.Utterances)
	assert.Equal(t, 4, tf.Participants)
	assert.Equal(t, thread.Fingerprint(conversation("r")), tf.Fingerprint)
	assert.Nil(t, tf.MidThread)
	assert.Nil(t, tf.NullModel)

	assert.Equal(t, 1, tf.Result.Counts[motif.NoEdge])
	assert.Equal(t, 1, tf.Result.Counts[motif.SingleEdge])
	assert.Equal(t, 1, tf.Result.Counts[motif.Dyadic])
	assert.Equal(t, 1, tf.Result.Counts[motif.Incoming1To3])

	assert.Len(t, tf.Features, 2*motif.NumTypes+len(lattice.Transitions()))
	assert.Equal(t, 1, tf.Features["count[INCOMING_1TO3_TRIADS]"])
}

func TestThread_MidThread(t *testing.T) {
	tf, err := newExtractor(nil).Thread(context.Background(), conversation("r"))
	require.NoError(t, err)
	require.NotNil(t, tf.MidThread)

	// Without the root only alice's answer to bob is left.
	assert.Equal(t, 2, tf.MidThread.Counts[motif.SingleEdge])
	assert.Equal(t, 2, tf.MidThread.Counts[motif.NoEdge])
	assert.Equal(t, 2, tf.Features["count[SINGLE_EDGE_TRIADS"+MidThreadSuffix+"]"])
	assert.Len(t, tf.Features, 2*(2*motif.NumTypes+len(lattice.Transitions())))
}

func TestThread_NullModelDeterministic(t *testing.T) {
	ex := newExtractor(func(c *ExtractorConfig) {
		c.Motifs.NullModel = true
		c.Motifs.Seed = 7
	})
	a, err := ex.Thread(context.Background(), conversation("r"))
	require.NoError(t, err)
	b, err := ex.Thread(context.Background(), conversation("r"))
	require.NoError(t, err)

	require.NotNil(t, a.NullModel)
	assert.Equal(t, *a.NullModel, *b.NullModel)
	assert.Equal(t, a.Features, b.Features)
	assert.Contains(t, a.Features, "count[NO_EDGE_TRIADS"+NullModelSuffix+"]")
}

func TestExtract_SkipsAndOrders(t *testing.T) {
	short := thread.Thread{ID: "s", Root: "s", Utterances: []thread.Utterance{
		{ID: "s", Speaker: "x", Root: "s", Timestamp: 1},
	}}
	threads := []thread.Thread{conversation("z"), short, conversation("a")}

	out, err := newExtractor(nil).Extract(context.Background(), threads)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ThreadID)
	assert.Equal(t, "z", out[1].ThreadID)

	crowded := newExtractor(func(c *ExtractorConfig) { c.Motifs.MaxParticipants = 3 })
	out, err = crowded.Extract(context.Background(), threads)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExtract_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newExtractor(nil).Extract(ctx, []thread.Thread{conversation("r")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPool(t *testing.T) {
	out, err := newExtractor(nil).Extract(context.Background(),
		[]thread.Thread{conversation("a"), conversation("b")})
	require.NoError(t, err)

	pooled := Pool(out)
	assert.Equal(t, 2, pooled.Counts[motif.Incoming1To3])
	assert.Equal(t, 8, total(pooled.Counts))
	assert.Equal(t, 2*out[0].Result.Transitions[lattice.Transition{Parent: motif.NoEdge, Child: motif.NoEdge}],
		pooled.Transitions[lattice.Transition{Parent: motif.NoEdge, Child: motif.NoEdge}])
}

func TestMotifs(t *testing.T) {
	m, g, err := Motifs(context.Background(), conversation("r").Utterances, thread.BuildOptions{})
	require.NoError(t, err)
	assert.True(t, g.Sealed())
	assert.Equal(t, 4, m.Total())
}
