// Package lattice aggregates motif development into latent counts and
// parent/child transition statistics over the motif lattice.
package lattice

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/motif"
)

// Transition is a lattice edge from Parent to Child, where Child has exactly
// one edge more than Parent. Parent == Child is the reflexive transition.
type Transition struct {
	Parent motif.Type
	Child  motif.Type
}

// Reflexive reports whether the transition stays on one type.
func (t Transition) Reflexive() bool { return t.Parent == t.Child }

func (t Transition) String() string {
	return "(" + t.Parent.String() + "," + t.Child.String() + ")"
}

// MarshalText renders the transition as "(PARENT,CHILD)" so it can key JSON maps.
func (t Transition) MarshalText() ([]byte, error) {
	if !t.Parent.Valid() || !t.Child.Valid() {
		return nil, fmt.Errorf("invalid transition %d->%d", t.Parent, t.Child)
	}
	return []byte(t.String()), nil
}

// UnmarshalText parses "(PARENT,CHILD)".
func (t *Transition) UnmarshalText(b []byte) error {
	s := strings.TrimSuffix(strings.TrimPrefix(string(b), "("), ")")
	parent, child, ok := strings.Cut(s, ",")
	if !ok {
		return fmt.Errorf("malformed transition %q", b)
	}
	p, err := motif.ParseType(parent)
	if err != nil {
		return fmt.Errorf("transition parent: %w", err)
	}
	c, err := motif.ParseType(child)
	if err != nil {
		return fmt.Errorf("transition child: %w", err)
	}
	t.Parent, t.Child = p, c
	return nil
}

// Tally counts observed transitions.
type Tally map[Transition]int

var lattice = buildLattice()

func buildLattice() map[motif.Type][]motif.Type {
	out := make(map[motif.Type][]motif.Type, motif.NumTypes)
	for _, child := range motif.Types() {
		for idx := range child.EdgeCount() {
			parent, err := motif.Successor(child, idx)
			if err != nil {
				panic(err)
			}
			if !slices.Contains(out[parent], child) {
				out[parent] = append(out[parent], child)
			}
		}
	}
	for _, children := range out {
		slices.Sort(children)
	}
	return out
}

// Lattice returns the motif lattice: for each type, the types reachable by
// adding one edge, in registry order. Types with no children are omitted.
func Lattice() map[motif.Type][]motif.Type {
	out := make(map[motif.Type][]motif.Type, len(lattice))
	for p, children := range lattice {
		out[p] = slices.Clone(children)
	}
	return out
}

// Children returns the lattice children of t.
func Children(t motif.Type) []motif.Type {
	return slices.Clone(lattice[t])
}

// Transitions returns every reflexive pair and every lattice edge, parents
// in registry order with the reflexive pair first.
func Transitions() []Transition {
	var out []Transition
	for _, p := range motif.Types() {
		out = append(out, Transition{p, p})
		for _, c := range lattice[p] {
			out = append(out, Transition{p, c})
		}
	}
	return out
}

// ZeroTally returns a tally with every transition present and zero.
func ZeroTally() Tally {
	tr := Transitions()
	out := make(Tally, len(tr))
	for _, t := range tr {
		out[t] = 0
	}
	return out
}

// Probabilities normalises, per parent, the reflexive tally and the tallies
// of its lattice children. A parent with nothing observed gets 0 everywhere.
func Probabilities(tally Tally) map[Transition]float64 {
	out := make(map[Transition]float64, len(tally))
	for _, p := range motif.Types() {
		group := append([]motif.Type{p}, lattice[p]...)
		total := 0
		for _, c := range group {
			total += tally[Transition{p, c}]
		}
		for _, c := range group {
			tr := Transition{p, c}
			if total == 0 {
				out[tr] = 0
				continue
			}
			out[tr] = float64(tally[tr]) / float64(total)
		}
	}
	return out
}
