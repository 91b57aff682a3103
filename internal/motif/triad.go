package motif

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/hypergraph"
)

// Triad is one motif instance: three participants assigned to roles R1..R3
// and, per template edge, that edge's evidence ordered by timestamp. A Triad
// is immutable; its evidence slices are shared with the graph and read-only.
type Triad struct {
	typ   Type
	roles [3]hypergraph.HypernodeID
	edges [][]hypergraph.Evidence
}

// NewTriad validates and builds a triad. There must be exactly one non-empty,
// timestamp-ordered evidence list per template edge.
func NewTriad(t Type, roles [3]hypergraph.HypernodeID, edges [][]hypergraph.Evidence) (Triad, error) {
	if !t.Valid() {
		return Triad{}, fmt.Errorf("new triad: invalid type %d", t)
	}
	if len(edges) != t.EdgeCount() {
		return Triad{}, fmt.Errorf("new triad %s: got %d edge lists, template has %d",
			t, len(edges), t.EdgeCount())
	}
	if roles[0] == roles[1] || roles[1] == roles[2] || roles[0] == roles[2] {
		return Triad{}, fmt.Errorf("new triad %s: roles must be distinct participants", t)
	}
	for i, evs := range edges {
		if len(evs) == 0 {
			return Triad{}, fmt.Errorf("new triad %s edge %d: %w", t, i, ErrMissingEvidence)
		}
	}
	return newTriad(t, roles, edges), nil
}

func newTriad(t Type, roles [3]hypergraph.HypernodeID, edges [][]hypergraph.Evidence) Triad {
	return Triad{typ: t, roles: roles, edges: edges}
}

// Type returns the motif type.
func (m Triad) Type() Type { return m.typ }

// Roles returns the participants in role order R1, R2, R3.
func (m Triad) Roles() [3]hypergraph.HypernodeID { return m.roles }

// Role returns the participant holding r.
func (m Triad) Role(r Role) hypergraph.HypernodeID { return m.roles[r] }

// Edges returns the evidence lists in template order.
func (m Triad) Edges() [][]hypergraph.Evidence {
	out := make([][]hypergraph.Evidence, len(m.edges))
	copy(out, m.edges)
	return out
}

// Edge returns the evidence list of template edge i.
func (m Triad) Edge(i int) []hypergraph.Evidence { return m.edges[i] }

// LastStructuralEdge returns the template index whose earliest evidence is the
// latest among all slots, i.e. the relation established most recently. Only
// the earliest record of each slot is examined; ties go to the higher index.
// It returns -1 for the edgeless type.
func (m Triad) LastStructuralEdge() int {
	idx := -1
	var latest int64
	for i, evs := range m.edges {
		ts := evs[0].Timestamp
		if idx < 0 || ts >= latest {
			idx, latest = i, ts
		}
	}
	return idx
}

// DeleteAndCanonicalize removes template edge idx and re-labels the roles and
// remaining edges so they follow the template of the resulting type.
func (m Triad) DeleteAndCanonicalize(idx int) (Triad, error) {
	if idx < 0 || idx >= len(m.edges) {
		return Triad{}, &InvalidEdgeIndexError{Type: m.typ, Index: idx}
	}
	entry := lookupCanon(m.typ, idx)

	remaining := make([][]hypergraph.Evidence, 0, len(m.edges)-1)
	remaining = append(remaining, m.edges[:idx]...)
	remaining = append(remaining, m.edges[idx+1:]...)

	edges := make([][]hypergraph.Evidence, len(entry.edges))
	for j, from := range entry.edges {
		edges[j] = remaining[from]
	}
	var roles [3]hypergraph.HypernodeID
	for i, r := range entry.roles {
		roles[i] = m.roles[r]
	}
	return newTriad(entry.to, roles, edges), nil
}

// Regress strips the most recently established edge. It reports false for
// the edgeless type, which has no predecessor.
func (m Triad) Regress() (Triad, bool) {
	if m.typ == NoEdge {
		return Triad{}, false
	}
	prev, err := m.DeleteAndCanonicalize(m.LastStructuralEdge())
	if err != nil {
		// LastStructuralEdge is always in range for a non-empty template.
		panic(err)
	}
	return prev, true
}

// DevelopmentPath returns the types the triad passed through, from the
// edgeless type up to its own type.
func (m Triad) DevelopmentPath() []Type {
	path := make([]Type, m.typ.EdgeCount()+1)
	cur, ok := m, true
	for i := len(path) - 1; ok; i-- {
		path[i] = cur.typ
		cur, ok = cur.Regress()
	}
	return path
}

// Text returns the earliest utterance text of every template edge.
func (m Triad) Text() []string {
	out := make([]string, len(m.edges))
	for i, evs := range m.edges {
		out[i] = evs[0].Text
	}
	return out
}

// Step is one stage of a triad's development: the reply that turned From into To.
type Step struct {
	From     Type                `json:"from" yaml:"from"`
	To       Type                `json:"to" yaml:"to"`
	Evidence hypergraph.Evidence `json:"evidence" yaml:"evidence"`
}

// Replay pairs each development step with the reply that established it,
// taking edges in order of their earliest evidence.
func (m Triad) Replay() []Step {
	path := m.DevelopmentPath()
	firsts := make([]hypergraph.Evidence, len(m.edges))
	for i, evs := range m.edges {
		firsts[i] = evs[0]
	}
	sort.SliceStable(firsts, func(i, j int) bool {
		return firsts[i].Timestamp < firsts[j].Timestamp
	})

	steps := make([]Step, 0, len(firsts))
	for i := 1; i < len(path); i++ {
		steps = append(steps, Step{From: path[i-1], To: path[i], Evidence: firsts[i-1]})
	}
	return steps
}

// Key fingerprints the type and role assignment.
func (m Triad) Key() uint64 {
	var buf [1 + 3*8]byte
	buf[0] = byte(m.typ)
	for i, r := range m.roles {
		binary.LittleEndian.PutUint64(buf[1+i*8:], uint64(r))
	}
	return xxh3.Hash(buf[:])
}
