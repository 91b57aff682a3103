package motif

import (
	"context"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func drawReplies(t *rapid.T, n int) []reply {
	var replies []reply
	for from := range n {
		for to := range n {
			if rapid.Bool().Draw(t, "edge") {
				k := rapid.IntRange(1, 3).Draw(t, "multiplicity")
				for range k {
					replies = append(replies, reply{from, to, rapid.Int64Range(0, 20).Draw(t, "ts")})
				}
			}
		}
	}
	return replies
}

// TestProperty_EveryTripleOnce verifies every unordered triple of
// participants is reported by exactly one finder, exactly once.
func TestProperty_EveryTripleOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(3, 7).Draw(t, "participants")
		g, _ := buildGraph(t, n, drawReplies(t, n)...)

		m, err := Extract(context.Background(), g)
		require.NoError(t, err)
		assert.Equal(t, n*(n-1)*(n-2)/6, m.Total())

		triples := map[[3]hid]Type{}
		for typ, found := range m {
			for _, tri := range found {
				key := tri.Roles()
				slices.Sort(key[:])
				prev, dup := triples[key]
				require.False(t, dup, "triple %v reported as %s and %s", key, prev, typ)
				triples[key] = typ
			}
		}
	})
}

// TestProperty_ExtractIdempotent verifies repeated extraction yields the same
// instances.
func TestProperty_ExtractIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(3, 6).Draw(t, "participants")
		g, _ := buildGraph(t, n, drawReplies(t, n)...)

		first, err := Extract(context.Background(), g)
		require.NoError(t, err)
		second, err := Extract(context.Background(), g)
		require.NoError(t, err)

		assert.Equal(t, first.Counts(), second.Counts())
		for _, typ := range Types() {
			for i := range first[typ] {
				assert.Equal(t, first[typ][i].Key(), second[typ][i].Key())
			}
			assert.Len(t, Find(g, typ), first.Count(typ))
		}
	})
}

// TestProperty_RegressionChain verifies every instance regresses to the
// edgeless type in edge-count steps, each intermediate instance matching its
// own template against the graph.
func TestProperty_RegressionChain(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(3, 5).Draw(t, "participants")
		g, _ := buildGraph(t, n, drawReplies(t, n)...)

		m, err := Extract(context.Background(), g)
		require.NoError(t, err)
		for typ, found := range m {
			for _, tri := range found {
				path := tri.DevelopmentPath()
				require.Len(t, path, typ.EdgeCount()+1)
				assert.Equal(t, NoEdge, path[0])
				assert.Equal(t, typ, path[len(path)-1])
				assert.Len(t, tri.Replay(), typ.EdgeCount())

				steps := 0
				for cur, ok := tri, true; ok; cur, ok = cur.Regress() {
					checkTemplate(t, g, cur)
					assert.Equal(t, path[len(path)-1-steps], cur.Type())
					steps++
				}
				assert.Equal(t, len(path), steps)
			}
		}
	})
}

// drawDense draws a graph where most ordered pairs are connected, so the
// three-to-six edge types dominate.
func drawDense(t *rapid.T, n int) []reply {
	density := rapid.IntRange(5, 10).Draw(t, "density")
	var replies []reply
	for from := range n {
		for to := range n {
			if from != to && rapid.IntRange(1, 10).Draw(t, "roll") <= density {
				replies = append(replies, reply{from, to, rapid.Int64Range(0, 20).Draw(t, "ts")})
			}
		}
	}
	return replies
}

// exhaustiveCount counts unordered triples for which some role assignment
// matches the template of t exactly.
func exhaustiveCount(v *view, t Type) int {
	n := 0
	v.combos(func(a, b, c hid) {
		for _, roles := range [][3]hid{{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a}} {
			if v.matches(t, roles) {
				n++
				return
			}
		}
	})
	return n
}

// TestProperty_AnchoredFindersMatchExhaustiveScan verifies the anchored
// finders agree with a scan over every role assignment of every triple.
func TestProperty_AnchoredFindersMatchExhaustiveScan(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(3, 9).Draw(t, "participants")
		replies := drawReplies(t, n)
		if rapid.Bool().Draw(t, "dense") {
			replies = drawDense(t, n)
		}
		g, _ := buildGraph(t, n, replies...)
		v := newView(g)

		for _, typ := range Types() {
			found := finders[typ](v)
			require.Len(t, found, exhaustiveCount(v, typ), "%s", typ)
			seen := map[[3]hid]bool{}
			for _, tri := range found {
				require.True(t, v.matches(typ, tri.Roles()), "%s %v", typ, tri.Roles())
				key := tri.Roles()
				slices.Sort(key[:])
				require.False(t, seen[key], "%s reports %v twice", typ, key)
				seen[key] = true
			}
		}
	})
}

func benchmarkGraph(b *testing.B, n, degree int) *view {
	rng := rand.New(rand.NewPCG(1, uint64(n)))
	var replies []reply
	for from := range n {
		for range degree {
			replies = append(replies, reply{from, rng.IntN(n), rng.Int64N(100)})
		}
	}
	g, _ := buildGraph(b, n, replies...)
	return newView(g)
}

func BenchmarkFinders(b *testing.B) {
	v := benchmarkGraph(b, 100, 3)
	for _, typ := range Types() {
		b.Run(typ.String(), func(b *testing.B) {
			for b.Loop() {
				finders[typ](v)
			}
		})
	}
}

func BenchmarkExtract(b *testing.B) {
	g := benchmarkGraph(b, 100, 3).g
	for b.Loop() {
		if _, err := Extract(context.Background(), g); err != nil {
			b.Fatal(err)
		}
	}
}
