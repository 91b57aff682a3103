package lattice

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/hypergraph"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/motif"
)

func TestLattice_Edges(t *testing.T) {
	l := Lattice()

	assert.Equal(t, []motif.Type{motif.SingleEdge}, l[motif.NoEdge])
	assert.Equal(t, []motif.Type{motif.Incoming, motif.Outgoing, motif.Dyadic, motif.Unidirectional},
		l[motif.SingleEdge])
	assert.Equal(t, []motif.Type{motif.Incoming2To3, motif.Incoming1To3, motif.DirectedCycle, motif.Outgoing3To1},
		l[motif.Unidirectional])
	assert.Equal(t, []motif.Type{motif.DirectedCycle1To3}, l[motif.DirectedCycle])
	assert.Equal(t, []motif.Type{motif.Trireciprocal}, l[motif.Direciprocal2To3])
	assert.NotContains(t, l, motif.Trireciprocal)

	edges := 0
	for parent, children := range l {
		for _, c := range children {
			assert.Equal(t, parent.EdgeCount()+1, c.EdgeCount(), "%s -> %s", parent, c)
			edges++
		}
	}
	assert.Equal(t, 30, edges)

	// Callers get a copy.
	l[motif.NoEdge][0] = motif.Trireciprocal
	assert.Equal(t, []motif.Type{motif.SingleEdge}, Children(motif.NoEdge))
}

func TestZeroTally(t *testing.T) {
	z := ZeroTally()
	assert.Len(t, z, motif.NumTypes+30)
	for _, typ := range motif.Types() {
		n, ok := z[Transition{typ, typ}]
		assert.True(t, ok, typ.String())
		assert.Zero(t, n)
	}
	_, ok := z[Transition{motif.NoEdge, motif.Dyadic}]
	assert.False(t, ok)
}

func TestProbabilities_ZeroTotal(t *testing.T) {
	p := Probabilities(ZeroTally())
	assert.Len(t, p, motif.NumTypes+30)
	for tr, v := range p {
		assert.Zero(t, v, tr.String())
	}
}

func TestProbabilities_Normalised(t *testing.T) {
	tally := ZeroTally()
	tally[Transition{motif.SingleEdge, motif.SingleEdge}] = 1
	tally[Transition{motif.SingleEdge, motif.Dyadic}] = 2
	tally[Transition{motif.SingleEdge, motif.Outgoing}] = 1

	p := Probabilities(tally)
	assert.InDelta(t, 0.25, p[Transition{motif.SingleEdge, motif.SingleEdge}], 1e-9)
	assert.InDelta(t, 0.5, p[Transition{motif.SingleEdge, motif.Dyadic}], 1e-9)
	assert.InDelta(t, 0.25, p[Transition{motif.SingleEdge, motif.Outgoing}], 1e-9)
	assert.Zero(t, p[Transition{motif.SingleEdge, motif.Incoming}])
	assert.Zero(t, p[Transition{motif.Dyadic, motif.Dyadic}])
}

func TestTransition_Text(t *testing.T) {
	tr := Transition{motif.Dyadic, motif.Outgoing3To1}
	assert.Equal(t, "(DYADIC_TRIADS,OUTGOING_3TO1_TRIADS)", tr.String())
	assert.False(t, tr.Reflexive())

	data, err := json.Marshal(map[Transition]int{tr: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"(DYADIC_TRIADS,OUTGOING_3TO1_TRIADS)":3}`, string(data))

	var back map[Transition]int
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 3, back[tr])

	var bad Transition
	assert.Error(t, bad.UnmarshalText([]byte("DYADIC_TRIADS")))
	assert.Error(t, bad.UnmarshalText([]byte("(DYADIC_TRIADS,HEXAGON)")))
}

// scenario builds A<->B with A->C last and returns its motifs.
func scenario(t *testing.T) motif.Motifs {
	t.Helper()
	g := hypergraph.New()
	for i, name := range []string{"a", "b", "c"} {
		_, err := g.AddNode(fmt.Sprintf("u%d", i), nil)
		require.NoError(t, err)
		_, err = g.AddHypernode(name, []string{fmt.Sprintf("u%d", i)}, nil)
		require.NoError(t, err)
	}
	add := func(from, to hypergraph.HypernodeID, ts int64) {
		require.NoError(t, g.AddEdge(hypergraph.HyperRef(from), hypergraph.HyperRef(to),
			hypergraph.Evidence{Timestamp: ts}))
	}
	add(0, 1, 1)
	add(1, 0, 2)
	add(0, 2, 3)
	g.Seal()

	m, err := motif.Extract(context.Background(), g)
	require.NoError(t, err)
	return m
}

func TestAggregate_Scenario(t *testing.T) {
	r := Aggregate(scenario(t))

	assert.Equal(t, 1, r.Counts[motif.Outgoing3To1])
	assert.Equal(t, 0, r.Counts[motif.Dyadic])

	for _, typ := range []motif.Type{motif.NoEdge, motif.SingleEdge, motif.Dyadic, motif.Outgoing3To1} {
		assert.Equal(t, 1, r.Latent[typ], typ.String())
	}
	assert.Equal(t, 0, r.Latent[motif.Outgoing])

	assert.Equal(t, 1, r.Transitions[Transition{motif.Outgoing3To1, motif.Outgoing3To1}])
	assert.Equal(t, 1, r.Transitions[Transition{motif.Dyadic, motif.Outgoing3To1}])
	assert.Equal(t, 1, r.Transitions[Transition{motif.SingleEdge, motif.Dyadic}])
	assert.Equal(t, 1, r.Transitions[Transition{motif.NoEdge, motif.SingleEdge}])
	assert.Equal(t, 0, r.Transitions[Transition{motif.SingleEdge, motif.Outgoing}])
	assert.Len(t, r.Transitions, motif.NumTypes+30)

	p := Probabilities(r.Transitions)
	assert.InDelta(t, 1.0, p[Transition{motif.NoEdge, motif.SingleEdge}], 1e-9)
	assert.InDelta(t, 1.0, p[Transition{motif.Dyadic, motif.Outgoing3To1}], 1e-9)
	assert.InDelta(t, 1.0, p[Transition{motif.Outgoing3To1, motif.Outgoing3To1}], 1e-9)
}

func TestResult_Merge(t *testing.T) {
	r := NewResult()
	r.Merge(Aggregate(scenario(t)))
	r.Merge(Aggregate(scenario(t)))

	assert.Equal(t, 2, r.Counts[motif.Outgoing3To1])
	assert.Equal(t, 2, r.Latent[motif.NoEdge])
	assert.Equal(t, 2, r.Transitions[Transition{motif.SingleEdge, motif.Dyadic}])
}

func TestFeatures(t *testing.T) {
	r := Aggregate(scenario(t))

	f := Features(r, "")
	assert.Len(t, f, 2*motif.NumTypes+motif.NumTypes+30)
	assert.Equal(t, 1, f["count[OUTGOING_3TO1_TRIADS]"])
	assert.Equal(t, 1, f["count[LATENT_DYADIC_TRIADS]"])
	assert.Equal(t, 1, f["trans[(SINGLE_EDGE_TRIADS,DYADIC_TRIADS)]"])

	mid := Features(r, " over mid-thread")
	assert.Equal(t, 1, mid["count[OUTGOING_3TO1_TRIADS over mid-thread]"])
	assert.Equal(t, 1, mid["trans[(SINGLE_EDGE_TRIADS,DYADIC_TRIADS) over mid-thread]"])
	assert.NotContains(t, mid, "count[OUTGOING_3TO1_TRIADS]")
}
