package motif

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/hypergraph"
)

type hid = hypergraph.HypernodeID

// Motifs holds the instances found for each type.
type Motifs map[Type][]Triad

// Count returns the number of instances of t.
func (m Motifs) Count(t Type) int { return len(m[t]) }

// Total returns the number of instances across all types.
func (m Motifs) Total() int {
	n := 0
	for _, ts := range m {
		n += len(ts)
	}
	return n
}

// Counts returns the instance count per type, including zero entries.
func (m Motifs) Counts() map[Type]int {
	out := make(map[Type]int, NumTypes)
	for _, t := range Types() {
		out[t] = len(m[t])
	}
	return out
}

// view is a read-only adjacency snapshot of the participant layer of a graph.
// Self-loops are dropped. For every participant the neighbours are split into
// in-only, out-only and mutual sets, each ascending.
type view struct {
	g   *hypergraph.Graph
	ids []hid
	out map[hid]map[hid]bool

	inOnly  map[hid][]hid
	outOnly map[hid][]hid
	both    map[hid][]hid
}

func newView(g *hypergraph.Graph) *view {
	n := g.NumHypernodes()
	v := &view{
		g:       g,
		ids:     g.Hypernodes(),
		out:     make(map[hid]map[hid]bool, n),
		inOnly:  make(map[hid][]hid, n),
		outOnly: make(map[hid][]hid, n),
		both:    make(map[hid][]hid, n),
	}
	for _, a := range v.ids {
		targets := make(map[hid]bool)
		for _, b := range g.OutgoingHypernodes(hypergraph.HyperRef(a)) {
			if b != a {
				targets[b] = true
			}
		}
		v.out[a] = targets
	}
	for _, a := range v.ids {
		for _, b := range g.OutgoingHypernodes(hypergraph.HyperRef(a)) {
			switch {
			case b == a:
			case v.edge(b, a):
				v.both[a] = append(v.both[a], b)
			default:
				v.outOnly[a] = append(v.outOnly[a], b)
			}
		}
		for _, b := range g.IncomingHypernodes(hypergraph.HyperRef(a)) {
			if b != a && !v.edge(a, b) {
				v.inOnly[a] = append(v.inOnly[a], b)
			}
		}
	}
	return v
}

func (v *view) edge(a, b hid) bool { return v.out[a][b] }

// adjacent reports an edge in either direction.
func (v *view) adjacent(a, b hid) bool { return v.edge(a, b) || v.edge(b, a) }

// only reports a -> b without b -> a.
func (v *view) only(a, b hid) bool { return v.edge(a, b) && !v.edge(b, a) }

func (v *view) mutual(a, b hid) bool { return v.edge(a, b) && v.edge(b, a) }

// matches reports whether the six directed relations among roles are exactly
// the template of t.
func (v *view) matches(t Type, roles [3]hid) bool {
	var want [3][3]bool
	for _, rel := range t.Template() {
		want[rel.From][rel.To] = true
	}
	for i := range 3 {
		for j := range 3 {
			if i != j && v.edge(roles[i], roles[j]) != want[i][j] {
				return false
			}
		}
	}
	return true
}

func (v *view) triad(t Type, roles [3]hid) Triad {
	tmpl := t.Template()
	edges := make([][]hypergraph.Evidence, len(tmpl))
	for i, rel := range tmpl {
		edges[i] = v.g.Evidence(roles[rel.From], roles[rel.To])
	}
	return newTriad(t, roles, edges)
}

// accept appends the triad when the exact template test passes.
func (v *view) accept(dst []Triad, t Type, a, b, c hid) []Triad {
	roles := [3]hid{a, b, c}
	if !v.matches(t, roles) {
		return dst
	}
	return append(dst, v.triad(t, roles))
}

func (v *view) combos(fn func(a, b, c hid)) {
	n := len(v.ids)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				fn(v.ids[i], v.ids[j], v.ids[k])
			}
		}
	}
}

// pairs calls fn for every ascending pair of distinct members of set.
func pairs(set []hid, fn func(x, y hid)) {
	for i := 0; i < len(set); i++ {
		for j := i + 1; j < len(set); j++ {
			fn(set[i], set[j])
		}
	}
}

func (v *view) filter(keep func(h hid) bool) []hid {
	var out []hid
	for _, h := range v.ids {
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}

type finder func(v *view) []Triad

var finders = [NumTypes]finder{
	NoEdge:             findNoEdge,
	SingleEdge:         findSingleEdge,
	Incoming:           findIncoming,
	Outgoing:           findOutgoing,
	Dyadic:             findDyadic,
	Unidirectional:     findUnidirectional,
	Incoming2To3:       orderedPairFinder(Incoming2To3, inOnly),
	Incoming1To3:       crossFinder(Incoming1To3, inOnly, both),
	DirectedCycle:      findDirectedCycle,
	Outgoing3To1:       crossFinder(Outgoing3To1, outOnly, both),
	IncomingReciprocal: pairFinder(IncomingReciprocal, inOnly),
	OutgoingReciprocal: pairFinder(OutgoingReciprocal, outOnly),
	DirectedCycle1To3:  crossFinder(DirectedCycle1To3, outOnly, both),
	Direciprocal:       pairFinder(Direciprocal, both),
	Direciprocal2To3:   orderedPairFinder(Direciprocal2To3, both),
	Trireciprocal:      findTrireciprocal,
}

func findNoEdge(v *view) []Triad {
	var out []Triad
	v.combos(func(a, b, c hid) {
		out = v.accept(out, NoEdge, a, b, c)
	})
	return out
}

func findSingleEdge(v *view) []Triad {
	var out []Triad
	for _, r1 := range v.ids {
		for _, r2 := range v.filter(func(h hid) bool { return h != r1 && v.only(r1, h) }) {
			for _, r3 := range v.ids {
				if r3 == r1 || r3 == r2 || v.adjacent(r1, r3) || v.adjacent(r2, r3) {
					continue
				}
				out = v.accept(out, SingleEdge, r1, r2, r3)
			}
		}
	}
	return out
}

// findIncoming anchors on the converging participant.
func findIncoming(v *view) []Triad {
	var out []Triad
	for _, r1 := range v.ids {
		in := v.filter(func(h hid) bool { return h != r1 && v.only(h, r1) })
		pairs(in, func(r2, r3 hid) {
			out = v.accept(out, Incoming, r1, r2, r3)
		})
	}
	return out
}

// findOutgoing anchors on the diverging participant.
func findOutgoing(v *view) []Triad {
	var out []Triad
	for _, r1 := range v.ids {
		outs := v.filter(func(h hid) bool { return h != r1 && v.only(r1, h) })
		pairs(outs, func(r2, r3 hid) {
			out = v.accept(out, Outgoing, r1, r2, r3)
		})
	}
	return out
}

// findDyadic anchors on the uninvolved participant so each mutual pair is
// reported once per bystander.
func findDyadic(v *view) []Triad {
	var out []Triad
	for _, r3 := range v.ids {
		others := v.filter(func(h hid) bool { return h != r3 && !v.adjacent(h, r3) })
		pairs(others, func(r1, r2 hid) {
			if v.mutual(r1, r2) {
				out = v.accept(out, Dyadic, r1, r2, r3)
			}
		})
	}
	return out
}

// findUnidirectional anchors on the middle of the chain.
func findUnidirectional(v *view) []Triad {
	var out []Triad
	for _, r2 := range v.ids {
		in := v.filter(func(h hid) bool { return h != r2 && v.only(h, r2) })
		outs := v.filter(func(h hid) bool { return h != r2 && v.only(r2, h) })
		for _, r1 := range in {
			for _, r3 := range outs {
				if r1 != r3 && !v.adjacent(r1, r3) {
					out = v.accept(out, Unidirectional, r1, r2, r3)
				}
			}
		}
	}
	return out
}

// neighbours selects one of R1's adjacency sets.
type neighbours func(v *view, r1 hid) []hid

func inOnly(v *view, r1 hid) []hid  { return v.inOnly[r1] }
func outOnly(v *view, r1 hid) []hid { return v.outOnly[r1] }
func both(v *view, r1 hid) []hid    { return v.both[r1] }

// pairFinder serves templates whose R2 and R3 are interchangeable and drawn
// from the same set of R1's neighbours. Each unordered pair is tried once.
func pairFinder(t Type, set neighbours) finder {
	return func(v *view) []Triad {
		var out []Triad
		for _, r1 := range v.ids {
			pairs(set(v, r1), func(r2, r3 hid) {
				out = v.accept(out, t, r1, r2, r3)
			})
		}
		return out
	}
}

// orderedPairFinder serves templates where R2 and R3 come from the same set
// but the edge between them tells them apart. Both orders are tried; at most
// one matches.
func orderedPairFinder(t Type, set neighbours) finder {
	return func(v *view) []Triad {
		var out []Triad
		for _, r1 := range v.ids {
			pairs(set(v, r1), func(x, y hid) {
				out = v.accept(out, t, r1, x, y)
				out = v.accept(out, t, r1, y, x)
			})
		}
		return out
	}
}

// crossFinder serves templates where R2 and R3 come from different sets of
// R1's neighbours.
func crossFinder(t Type, r2s, r3s neighbours) finder {
	return func(v *view) []Triad {
		var out []Triad
		for _, r1 := range v.ids {
			for _, r2 := range r2s(v, r1) {
				for _, r3 := range r3s(v, r1) {
					out = v.accept(out, t, r1, r2, r3)
				}
			}
		}
		return out
	}
}

// findDirectedCycle anchors on the smallest handle of the cycle, so each
// cycle is reported once regardless of rotation.
func findDirectedCycle(v *view) []Triad {
	var out []Triad
	for _, r1 := range v.ids {
		for _, r2 := range v.outOnly[r1] {
			if r2 < r1 {
				continue
			}
			for _, r3 := range v.inOnly[r1] {
				if r3 > r1 && r3 != r2 {
					out = v.accept(out, DirectedCycle, r1, r2, r3)
				}
			}
		}
	}
	return out
}

// findTrireciprocal anchors on the smallest handle and pairs its mutual
// neighbours above it.
func findTrireciprocal(v *view) []Triad {
	var out []Triad
	for _, r1 := range v.ids {
		pairs(v.both[r1], func(r2, r3 hid) {
			if r2 > r1 {
				out = v.accept(out, Trireciprocal, r1, r2, r3)
			}
		})
	}
	return out
}

// Find runs the finder of a single type.
func Find(g *hypergraph.Graph, t Type) []Triad {
	if !t.Valid() {
		return nil
	}
	return finders[t](newView(g))
}

// Extract runs all sixteen finders concurrently over a sealed graph. The
// result does not depend on scheduling.
func Extract(ctx context.Context, g *hypergraph.Graph) (Motifs, error) {
	if !g.Sealed() {
		return nil, fmt.Errorf("extract motifs: %w", ErrUnsealed)
	}
	v := newView(g)

	var mu sync.Mutex
	out := make(Motifs, NumTypes)
	eg, ctx := errgroup.WithContext(ctx)
	for _, t := range Types() {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found := finders[t](v)
			mu.Lock()
			out[t] = found
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("extract motifs: %w", err)
	}
	return out, nil
}
