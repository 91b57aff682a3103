package lattice

import (
	"fmt"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/motif"
)

// Result is the aggregate of one or more motif extractions.
type Result struct {
	// Counts is the number of enumerated instances per type.
	Counts map[motif.Type]int `json:"counts" yaml:"counts"`
	// Latent counts every type visited along any instance's regression walk,
	// including the instance's own type and the edgeless type.
	Latent map[motif.Type]int `json:"latent" yaml:"latent"`
	// Transitions tallies reflexive and parent/child regression steps.
	Transitions Tally `json:"transitions" yaml:"transitions"`
}

// NewResult returns a zeroed result covering every type and transition.
func NewResult() Result {
	r := Result{
		Counts:      make(map[motif.Type]int, motif.NumTypes),
		Latent:      make(map[motif.Type]int, motif.NumTypes),
		Transitions: ZeroTally(),
	}
	for _, t := range motif.Types() {
		r.Counts[t] = 0
		r.Latent[t] = 0
	}
	return r
}

// Aggregate walks every instance's regression chain. Each instance adds one
// to its own reflexive transition; each step from a child instance to its
// regressed parent adds one to (parent, child).
func Aggregate(m motif.Motifs) Result {
	r := NewResult()
	for _, t := range motif.Types() {
		for _, tri := range m[t] {
			r.Counts[t]++
			r.Transitions[Transition{t, t}]++

			cur := tri
			for {
				r.Latent[cur.Type()]++
				parent, ok := cur.Regress()
				if !ok {
					break
				}
				r.Transitions[Transition{parent.Type(), cur.Type()}]++
				cur = parent
			}
		}
	}
	return r
}

// Merge adds other into r. r must have been created by NewResult or Aggregate.
func (r Result) Merge(other Result) {
	for t, n := range other.Counts {
		r.Counts[t] += n
	}
	for t, n := range other.Latent {
		r.Latent[t] += n
	}
	for tr, n := range other.Transitions {
		r.Transitions[tr] += n
	}
}

// Features flattens r into named counts. suffix is appended inside every
// bracket, e.g. "count[DYADIC_TRIADS over mid-thread]".
func Features(r Result, suffix string) map[string]int {
	out := make(map[string]int, 2*motif.NumTypes+len(r.Transitions))
	for _, t := range motif.Types() {
		out[fmt.Sprintf("count[%s%s]", t, suffix)] = r.Counts[t]
		out[fmt.Sprintf("count[LATENT_%s%s]", t, suffix)] = r.Latent[t]
	}
	for tr, n := range r.Transitions {
		out[fmt.Sprintf("trans[%s%s]", tr, suffix)] = n
	}
	return out
}
