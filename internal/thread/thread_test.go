package thread

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/hypergraph"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/motif"
)

// conversation: alice posts r, bob and carol answer, alice answers bob, dave
// answers someone outside the corpus.
func conversation() []Utterance {
	return []Utterance{
		{ID: "c2", Speaker: "carol", ReplyTo: "r", Root: "r", Timestamp: 3, Text: "me too"},
		{ID: "r", Speaker: "alice", Root: "r", Timestamp: 1, Text: "post"},
		{ID: "c1", Speaker: "bob", ReplyTo: "r", Root: "r", Timestamp: 2, Text: "nice"},
		{ID: "c3", Speaker: "alice", ReplyTo: "c1", Root: "r", Timestamp: 4, Text: "thanks"},
		{ID: "c4", Speaker: "dave", ReplyTo: "gone", Root: "r", Timestamp: 5},
	}
}

func TestBuild(t *testing.T) {
	g, err := Build(conversation(), BuildOptions{})
	require.NoError(t, err)
	require.True(t, g.Sealed())

	assert.Equal(t, 5, g.NumNodes())
	assert.Equal(t, 4, g.NumHypernodes())

	alice, ok := g.LookupHypernode("alice")
	require.True(t, ok)
	bob, _ := g.LookupHypernode("bob")
	carol, _ := g.LookupHypernode("carol")
	dave, _ := g.LookupHypernode("dave")

	h, err := g.Hypernode(alice)
	require.NoError(t, err)
	assert.Len(t, h.Members, 2)

	evs := g.Evidence(bob, alice)
	require.Len(t, evs, 1)
	assert.Equal(t, hypergraph.Evidence{
		Timestamp: 2, Text: "nice", Speaker: "bob", Target: "alice",
		UtteranceID: "c1", ReplyTo: "r", RootReply: true,
	}, evs[0])
	assert.False(t, g.Evidence(alice, bob)[0].RootReply)
	assert.Len(t, g.Evidence(carol, alice), 1)

	// The unresolved reply leaves dave isolated.
	assert.Empty(t, g.OutgoingHypernodes(hypergraph.HyperRef(dave)))
	assert.Empty(t, g.IncomingHypernodes(hypergraph.HyperRef(dave)))

	c1, _ := g.LookupNode("c1")
	r, _ := g.LookupNode("r")
	assert.True(t, g.HasEdge(hypergraph.NodeRef(c1), hypergraph.NodeRef(r)))
	assert.True(t, g.HasEdge(hypergraph.HyperRef(bob), hypergraph.NodeRef(r)))

	n, err := g.Node(c1)
	require.NoError(t, err)
	assert.Equal(t, "bob", n.Attributes["speaker"])
	assert.Equal(t, bob, n.Owner)
}

func TestBuild_IdenticalRepliesShareEvidence(t *testing.T) {
	utts := []Utterance{
		{ID: "r", Speaker: "alice", Root: "r", Timestamp: 1, Text: "post"},
		{ID: "c1", Speaker: "bob", ReplyTo: "r", Root: "r", Timestamp: 2, Text: "+1"},
		{ID: "c2", Speaker: "bob", ReplyTo: "r", Root: "r", Timestamp: 2, Text: "+1"},
		{ID: "c3", Speaker: "bob", ReplyTo: "r", Root: "r", Timestamp: 3, Text: "+1"},
	}
	g, err := Build(utts, BuildOptions{})
	require.NoError(t, err)

	alice, _ := g.LookupHypernode("alice")
	bob, _ := g.LookupHypernode("bob")
	r, _ := g.LookupNode("r")

	evs := g.Evidence(bob, alice)
	require.Len(t, evs, 2)
	assert.Equal(t, "c1", evs[0].UtteranceID)
	assert.Equal(t, "c3", evs[1].UtteranceID)
	assert.Equal(t, 2, g.Multiplicity(hypergraph.HyperRef(bob), hypergraph.HyperRef(alice)))

	// Speaker-to-utterance and utterance edges stay one per reply.
	assert.Equal(t, 3, g.Multiplicity(hypergraph.HyperRef(bob), hypergraph.NodeRef(r)))
	assert.Len(t, g.IncomingNodes(hypergraph.NodeRef(r)), 3)
}

func TestBuild_ExcludeRoot(t *testing.T) {
	g, err := Build(conversation(), BuildOptions{ExcludeID: "r"})
	require.NoError(t, err)

	assert.Equal(t, 4, g.NumNodes())
	_, ok := g.LookupNode("r")
	assert.False(t, ok)

	alice, _ := g.LookupHypernode("alice")
	bob, _ := g.LookupHypernode("bob")
	assert.Empty(t, g.Evidence(bob, alice))
	assert.Len(t, g.Evidence(alice, bob), 1)
}

func TestBuild_DuplicateID(t *testing.T) {
	utts := append(conversation(), Utterance{ID: "c1", Speaker: "erin", Root: "r", Timestamp: 9})
	_, err := Build(utts, BuildOptions{})
	assert.ErrorIs(t, err, hypergraph.ErrDuplicate)
}

func TestBuild_Motifs(t *testing.T) {
	g, err := Build(conversation(), BuildOptions{})
	require.NoError(t, err)

	m, err := motif.Extract(context.Background(), g)
	require.NoError(t, err)
	// alice<->bob, carol->alice, dave alone: C(4,3) = 4 triples.
	assert.Equal(t, 4, m.Total())
	assert.Equal(t, 1, m.Count(motif.Incoming1To3))
}

func TestGroup_IncludeRoot(t *testing.T) {
	utts := append(conversation(),
		Utterance{ID: "s", Speaker: "erin", Root: "s", Timestamp: 0},
		Utterance{ID: "s1", Speaker: "bob", ReplyTo: "s", Root: "s", Timestamp: 7},
	)
	threads := Group(utts, GroupOptions{IncludeRoot: true})
	require.Len(t, threads, 2)

	assert.Equal(t, "r", threads[0].ID)
	assert.Equal(t, 5, threads[0].Len())
	assert.Equal(t, "r", threads[0].Utterances[0].ID)
	assert.Equal(t, 4, threads[0].Participants())
	assert.Equal(t, "s", threads[1].ID)
	assert.Equal(t, 2, threads[1].Len())

	short := Group(utts, GroupOptions{IncludeRoot: true, PrefixLen: 3})
	assert.Equal(t, []string{"r", "c1", "c2"}, ids(short[0]))
}

func TestGroup_TopLevelComments(t *testing.T) {
	threads := Group(conversation(), GroupOptions{})
	require.Len(t, threads, 2)

	assert.Equal(t, "c1", threads[0].ID)
	assert.Equal(t, "r", threads[0].Root)
	assert.Equal(t, []string{"c1", "c3"}, ids(threads[0]))
	assert.Equal(t, "c2", threads[1].ID)
	assert.Equal(t, []string{"c2"}, ids(threads[1]))
}

func TestGroup_ReplyCycle(t *testing.T) {
	utts := []Utterance{
		{ID: "a", Speaker: "x", ReplyTo: "b", Root: "r", Timestamp: 1},
		{ID: "b", Speaker: "y", ReplyTo: "a", Root: "r", Timestamp: 2},
	}
	assert.Empty(t, Group(utts, GroupOptions{}))
}

func ids(t Thread) []string {
	out := make([]string, len(t.Utterances))
	for i, u := range t.Utterances {
		out[i] = u.ID
	}
	return out
}

func TestFingerprint(t *testing.T) {
	th := Group(conversation(), GroupOptions{IncludeRoot: true})[0]
	assert.Equal(t, Fingerprint(th), Fingerprint(th))

	changed := th
	changed.Utterances = append([]Utterance(nil), th.Utterances...)
	changed.Utterances[1].ReplyTo = "c2"
	assert.NotEqual(t, Fingerprint(th), Fingerprint(changed))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, conversation()[0].Validate())

	err := Utterance{ID: "x", Root: "r"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speaker is required")

	err = Utterance{ID: "x", Speaker: "s", Root: "r", ReplyTo: "x"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replyto must differ from id")

	utts := append(conversation(), conversation()[0])
	assert.ErrorIs(t, ValidateAll(utts), ErrDuplicateID)
	assert.NoError(t, ValidateAll(conversation()))
}

func TestRandomize(t *testing.T) {
	th := Group(conversation(), GroupOptions{IncludeRoot: true})[0]
	rng := rand.New(rand.NewPCG(1, 2))
	null := Randomize(th, rng)

	require.Len(t, null.Utterances, th.Len())
	assert.Equal(t, "r", null.Utterances[0].ID)
	assert.Empty(t, null.Utterances[0].ReplyTo)

	for i, u := range null.Utterances {
		assert.Equal(t, th.Utterances[i].Speaker, u.Speaker, "arrival order")
		assert.Equal(t, int64(i), u.Timestamp)
	}
	_, err := Build(null.Utterances, BuildOptions{})
	require.NoError(t, err)

	assert.Empty(t, Randomize(Thread{ID: "e"}, rng).Utterances)
}

// TestProperty_RandomizeReplies verifies null-model replies always point to an
// earlier utterance and avoid self-replies whenever another speaker exists.
func TestProperty_RandomizeReplies(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 15).Draw(t, "len")
		speakers := []string{"a", "b", "c", "d"}
		th := Thread{ID: "root"}
		for i := range n {
			th.Utterances = append(th.Utterances, Utterance{
				ID:        rapid.StringMatching(`u[0-9]{3}`).Draw(t, "id") + "_" + speakers[i%4],
				Speaker:   rapid.SampledFrom(speakers).Draw(t, "speaker"),
				Root:      "root",
				Timestamp: int64(i),
			})
		}
		seed := rapid.Uint64().Draw(t, "seed")
		null := Randomize(th, rand.New(rand.NewPCG(seed, seed)))
		require.Len(t, null.Utterances, n)

		pos := map[string]int{}
		for i, u := range null.Utterances {
			pos[u.ID] = i
			if i == 0 {
				continue
			}
			p, ok := pos[u.ReplyTo]
			require.True(t, ok, "reply to unknown %s", u.ReplyTo)
			assert.Less(t, p, i)
			target := null.Utterances[p]
			if target.Speaker == u.Speaker {
				assert.Equal(t, 0, p, "self-reply only falls back to the root")
			}
		}
	})
}
