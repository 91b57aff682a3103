package motif

// canonEntry describes how a triad is rewritten after one template edge is
// deleted: the destination type, which old role fills each new role, and
// which remaining evidence slot fills each destination template slot.
// "Remaining" slots are the old slots with the deleted one removed, in order.
type canonEntry struct {
	to    Type
	roles [3]Role
	edges []int
	ok    bool
}

func canon(to Type, roles [3]Role, edges ...int) canonEntry {
	return canonEntry{to: to, roles: roles, edges: edges, ok: true}
}

var (
	keep = [3]Role{R1, R2, R3}
	r132 = [3]Role{R1, R3, R2}
	r213 = [3]Role{R2, R1, R3}
	r231 = [3]Role{R2, R3, R1}
	r312 = [3]Role{R3, R1, R2}
	r321 = [3]Role{R3, R2, R1}
)

// canonTable is indexed by (source type, deleted template index). Entries
// were derived by matching the remaining relations against every destination
// template; TestCanonTable_MatchesTemplates re-checks each one.
var canonTable = [NumTypes][6]canonEntry{
	SingleEdge: {
		0: canon(NoEdge, keep),
	},
	Incoming: { // 2->1, 3->1
		0: canon(SingleEdge, r312, 0),
		1: canon(SingleEdge, r213, 0),
	},
	Outgoing: { // 1->2, 1->3
		0: canon(SingleEdge, r132, 0),
		1: canon(SingleEdge, keep, 0),
	},
	Dyadic: { // 1->2, 2->1
		0: canon(SingleEdge, r213, 0),
		1: canon(SingleEdge, keep, 0),
	},
	Unidirectional: { // 1->2, 2->3
		0: canon(SingleEdge, r231, 0),
		1: canon(SingleEdge, keep, 0),
	},
	Incoming2To3: { // 2->1, 3->1, 2->3
		0: canon(Unidirectional, r231, 1, 0),
		1: canon(Outgoing, r213, 0, 1),
		2: canon(Incoming, keep, 0, 1),
	},
	Incoming1To3: { // 2->1, 3->1, 1->3
		0: canon(Dyadic, r132, 1, 0),
		1: canon(Unidirectional, r213, 0, 1),
		2: canon(Incoming, keep, 0, 1),
	},
	DirectedCycle: { // 1->2, 2->3, 3->1
		0: canon(Unidirectional, r231, 0, 1),
		1: canon(Unidirectional, r312, 1, 0),
		2: canon(Unidirectional, keep, 0, 1),
	},
	Outgoing3To1: { // 1->2, 1->3, 3->1
		0: canon(Dyadic, r132, 0, 1),
		1: canon(Unidirectional, r312, 1, 0),
		2: canon(Outgoing, keep, 0, 1),
	},
	IncomingReciprocal: { // 2->1, 3->1, 2->3, 3->2
		0: canon(Outgoing3To1, r312, 0, 2, 1),
		1: canon(Outgoing3To1, r213, 0, 1, 2),
		2: canon(Incoming2To3, r132, 1, 0, 2),
		3: canon(Incoming2To3, keep, 0, 1, 2),
	},
	OutgoingReciprocal: { // 1->2, 1->3, 2->3, 3->2
		0: canon(Incoming1To3, r312, 0, 1, 2),
		1: canon(Incoming1To3, r213, 0, 2, 1),
		2: canon(Incoming2To3, r213, 0, 2, 1),
		3: canon(Incoming2To3, r312, 1, 2, 0),
	},
	DirectedCycle1To3: { // 1->2, 2->3, 3->1, 1->3
		0: canon(Incoming1To3, r321, 0, 2, 1),
		1: canon(Outgoing3To1, keep, 0, 2, 1),
		2: canon(Incoming2To3, r312, 2, 1, 0),
		3: canon(DirectedCycle, keep, 0, 1, 2),
	},
	Direciprocal: { // 1->2, 2->1, 1->3, 3->1
		0: canon(Incoming1To3, keep, 0, 2, 1),
		1: canon(Outgoing3To1, keep, 0, 1, 2),
		2: canon(Incoming1To3, r132, 2, 1, 0),
		3: canon(Outgoing3To1, r132, 2, 0, 1),
	},
	Direciprocal2To3: { // 1->2, 2->1, 1->3, 3->1, 2->3
		0: canon(OutgoingReciprocal, r213, 0, 3, 1, 2),
		1: canon(DirectedCycle1To3, keep, 0, 3, 2, 1),
		2: canon(DirectedCycle1To3, r231, 3, 2, 0, 1),
		3: canon(IncomingReciprocal, r312, 2, 3, 0, 1),
		4: canon(Direciprocal, keep, 0, 1, 2, 3),
	},
	Trireciprocal: { // 1->2, 2->1, 2->3, 3->2, 3->1, 1->3
		0: canon(Direciprocal2To3, r321, 2, 1, 3, 4, 0),
		1: canon(Direciprocal2To3, r312, 3, 4, 2, 1, 0),
		2: canon(Direciprocal2To3, r132, 4, 3, 0, 1, 2),
		3: canon(Direciprocal2To3, keep, 0, 1, 4, 3, 2),
		4: canon(Direciprocal2To3, r213, 1, 0, 2, 3, 4),
		5: canon(Direciprocal2To3, r231, 2, 3, 1, 0, 4),
	},
}

// lookupCanon returns the table entry for deleting edge idx of type t. A
// missing entry for an in-range index is a defect in the table, not a
// runtime condition, and panics.
func lookupCanon(t Type, idx int) canonEntry {
	e := canonTable[t][idx]
	if !e.ok {
		panic("motif: no canonicalization entry for " + t.String() + " edge " + itoa(idx))
	}
	return e
}

// Successor returns the type reached by deleting template edge idx of t.
func Successor(t Type, idx int) (Type, error) {
	if !t.Valid() || idx < 0 || idx >= t.EdgeCount() {
		return 0, &InvalidEdgeIndexError{Type: t, Index: idx}
	}
	return lookupCanon(t, idx).to, nil
}
