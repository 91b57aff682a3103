// Package hypergraph provides the directed multigraph a conversation thread is
// turned into: utterances are nodes, participants are hypernodes grouping the
// utterances they authored, and replies become edges between either kind.
package hypergraph

import (
	"fmt"
	"sort"
	"strconv"
)

// Kind distinguishes the two vertex kinds of the graph.
type Kind uint8

const (
	KindNode      Kind = iota // a single utterance
	KindHypernode             // a participant
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindHypernode:
		return "hypernode"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// NodeID is the arena handle of an utterance node.
type NodeID int

// HypernodeID is the arena handle of a participant hypernode.
type HypernodeID int

// Ref names an edge endpoint of either kind.
type Ref struct {
	Kind Kind
	ID   int
}

// NodeRef returns the endpoint reference for an utterance node.
func NodeRef(id NodeID) Ref { return Ref{Kind: KindNode, ID: int(id)} }

// HyperRef returns the endpoint reference for a hypernode.
func HyperRef(id HypernodeID) Ref { return Ref{Kind: KindHypernode, ID: int(id)} }

func (r Ref) String() string {
	return r.Kind.String() + "#" + strconv.Itoa(r.ID)
}

// Attributes is an arbitrary payload attached to nodes and hypernodes.
type Attributes map[string]any

// Node is an utterance.
type Node struct {
	ID         string
	Attributes Attributes
	Owner      HypernodeID // -1 until a hypernode claims the node
}

// Hypernode is a participant and the utterances they authored.
type Hypernode struct {
	ID         string
	Members    []NodeID
	Attributes Attributes
}

// slot holds every edge inserted for one ordered endpoint pair.
type slot struct {
	multiplicity int
	evidence     []Evidence
	sorted       []Evidence // set by Seal
}

// Graph is an arena of nodes and hypernodes with outgoing and incoming
// adjacency indices. It is built once, sealed, and then only read; a sealed
// graph is safe for concurrent readers.
type Graph struct {
	nodes      []Node
	hypernodes []Hypernode
	nodeIndex  map[string]NodeID
	hyperIndex map[string]HypernodeID

	out map[Ref]map[Ref]*slot
	in  map[Ref]map[Ref]*slot

	sealed bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodeIndex:  make(map[string]NodeID),
		hyperIndex: make(map[string]HypernodeID),
		out:        make(map[Ref]map[Ref]*slot),
		in:         make(map[Ref]map[Ref]*slot),
	}
}

// AddNode adds an utterance node.
func (g *Graph) AddNode(id string, attrs Attributes) (NodeID, error) {
	if g.sealed {
		return 0, ErrSealed
	}
	if _, ok := g.nodeIndex[id]; ok {
		return 0, fmt.Errorf("add node %q: %w", id, ErrDuplicate)
	}
	if attrs == nil {
		attrs = Attributes{}
	}

	nid := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{ID: id, Attributes: attrs, Owner: -1})
	g.nodeIndex[id] = nid
	return nid, nil
}

// AddHypernode adds a participant owning the given utterance nodes. Every
// member must already exist and must not belong to another hypernode.
func (g *Graph) AddHypernode(id string, members []string, attrs Attributes) (HypernodeID, error) {
	if g.sealed {
		return 0, ErrSealed
	}
	if _, ok := g.hyperIndex[id]; ok {
		return 0, fmt.Errorf("add hypernode %q: %w", id, ErrDuplicate)
	}

	hid := HypernodeID(len(g.hypernodes))
	memberIDs := make([]NodeID, 0, len(members))
	seen := make(map[NodeID]bool, len(members))
	for _, m := range members {
		nid, ok := g.nodeIndex[m]
		if !ok {
			return 0, fmt.Errorf("add hypernode %q: %w", id, &ErrNotFound{Entity: "node", ID: m})
		}
		if seen[nid] {
			continue
		}
		if owner := g.nodes[nid].Owner; owner >= 0 {
			return 0, fmt.Errorf("add hypernode %q: node %q owned by %q: %w",
				id, m, g.hypernodes[owner].ID, ErrMembership)
		}
		seen[nid] = true
		memberIDs = append(memberIDs, nid)
	}

	// Claim members only once validation has passed.
	for _, nid := range memberIDs {
		g.nodes[nid].Owner = hid
	}
	if attrs == nil {
		attrs = Attributes{}
	}
	g.hypernodes = append(g.hypernodes, Hypernode{ID: id, Members: memberIDs, Attributes: attrs})
	g.hyperIndex[id] = hid
	return hid, nil
}

// AddEdge inserts a directed edge. Repeated inserts for the same ordered pair
// append to the existing slot rather than replacing it.
func (g *Graph) AddEdge(from, to Ref, evidence ...Evidence) error {
	if g.sealed {
		return ErrSealed
	}
	if err := g.checkRef(from); err != nil {
		return fmt.Errorf("add edge %s->%s: %w", from, to, err)
	}
	if err := g.checkRef(to); err != nil {
		return fmt.Errorf("add edge %s->%s: %w", from, to, err)
	}
	if from.Kind == KindHypernode && to.Kind == KindHypernode && len(evidence) == 0 {
		return fmt.Errorf("add edge %s->%s: %w", from, to, ErrNoEvidence)
	}

	s := g.slot(from, to)
	if s == nil {
		s = &slot{}
		if g.out[from] == nil {
			g.out[from] = make(map[Ref]*slot)
		}
		if g.in[to] == nil {
			g.in[to] = make(map[Ref]*slot)
		}
		// Both indices share the slot so the evidence list has a single owner.
		g.out[from][to] = s
		g.in[to][from] = s
	}
	s.multiplicity++
	s.evidence = append(s.evidence, evidence...)
	return nil
}

// Seal freezes the graph and pre-sorts every slot's evidence by timestamp.
func (g *Graph) Seal() {
	if g.sealed {
		return
	}
	for _, targets := range g.out {
		for _, s := range targets {
			s.sorted = SortEvidence(s.evidence)
		}
	}
	g.sealed = true
}

// Sealed reports whether Seal has been called.
func (g *Graph) Sealed() bool { return g.sealed }

func (g *Graph) checkRef(r Ref) error {
	switch r.Kind {
	case KindNode:
		if r.ID < 0 || r.ID >= len(g.nodes) {
			return &ErrNotFound{Entity: "node", ID: strconv.Itoa(r.ID)}
		}
	case KindHypernode:
		if r.ID < 0 || r.ID >= len(g.hypernodes) {
			return &ErrNotFound{Entity: "hypernode", ID: strconv.Itoa(r.ID)}
		}
	default:
		return fmt.Errorf("unknown endpoint kind %s", r.Kind)
	}
	return nil
}

func (g *Graph) slot(from, to Ref) *slot {
	targets, ok := g.out[from]
	if !ok {
		return nil
	}
	return targets[to]
}

// HasEdge reports whether at least one edge from -> to exists.
func (g *Graph) HasEdge(from, to Ref) bool {
	return g.slot(from, to) != nil
}

// Multiplicity returns how many edges were inserted for from -> to.
func (g *Graph) Multiplicity(from, to Ref) int {
	if s := g.slot(from, to); s != nil {
		return s.multiplicity
	}
	return 0
}

// Evidence returns the evidence of the hyperedge from -> to ordered by
// timestamp. On a sealed graph the returned slice is shared and must not be
// modified.
func (g *Graph) Evidence(from, to HypernodeID) []Evidence {
	s := g.slot(HyperRef(from), HyperRef(to))
	if s == nil {
		return nil
	}
	if s.sorted != nil {
		return s.sorted
	}
	return SortEvidence(s.evidence)
}

// OutgoingNodes returns the utterance nodes r has edges to, ascending.
func (g *Graph) OutgoingNodes(r Ref) []NodeID {
	return toNodeIDs(neighbors(g.out[r], KindNode))
}

// IncomingNodes returns the utterance nodes with edges to r, ascending.
func (g *Graph) IncomingNodes(r Ref) []NodeID {
	return toNodeIDs(neighbors(g.in[r], KindNode))
}

// OutgoingHypernodes returns the hypernodes r has edges to, ascending.
func (g *Graph) OutgoingHypernodes(r Ref) []HypernodeID {
	return toHypernodeIDs(neighbors(g.out[r], KindHypernode))
}

// IncomingHypernodes returns the hypernodes with edges to r, ascending.
func (g *Graph) IncomingHypernodes(r Ref) []HypernodeID {
	return toHypernodeIDs(neighbors(g.in[r], KindHypernode))
}

func neighbors(adj map[Ref]*slot, kind Kind) []int {
	ids := make([]int, 0, len(adj))
	for r := range adj {
		if r.Kind == kind {
			ids = append(ids, r.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

func toNodeIDs(ids []int) []NodeID {
	out := make([]NodeID, len(ids))
	for i, id := range ids {
		out[i] = NodeID(id)
	}
	return out
}

func toHypernodeIDs(ids []int) []HypernodeID {
	out := make([]HypernodeID, len(ids))
	for i, id := range ids {
		out[i] = HypernodeID(id)
	}
	return out
}

// NumNodes returns the number of utterance nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumHypernodes returns the number of hypernodes.
func (g *Graph) NumHypernodes() int { return len(g.hypernodes) }

// Hypernodes returns every hypernode handle in insertion order.
func (g *Graph) Hypernodes() []HypernodeID {
	out := make([]HypernodeID, len(g.hypernodes))
	for i := range out {
		out[i] = HypernodeID(i)
	}
	return out
}

// Nodes returns every node handle in insertion order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, len(g.nodes))
	for i := range out {
		out[i] = NodeID(i)
	}
	return out
}

// Node returns the node stored under a handle.
func (g *Graph) Node(id NodeID) (Node, error) {
	if id < 0 || int(id) >= len(g.nodes) {
		return Node{}, &ErrNotFound{Entity: "node", ID: strconv.Itoa(int(id))}
	}
	return g.nodes[id], nil
}

// Hypernode returns the hypernode stored under a handle.
func (g *Graph) Hypernode(id HypernodeID) (Hypernode, error) {
	if id < 0 || int(id) >= len(g.hypernodes) {
		return Hypernode{}, &ErrNotFound{Entity: "hypernode", ID: strconv.Itoa(int(id))}
	}
	return g.hypernodes[id], nil
}

// HypernodeName returns the external id of a hypernode, or "" for an unknown handle.
func (g *Graph) HypernodeName(id HypernodeID) string {
	if id < 0 || int(id) >= len(g.hypernodes) {
		return ""
	}
	return g.hypernodes[id].ID
}

// LookupNode resolves an external utterance id.
func (g *Graph) LookupNode(id string) (NodeID, bool) {
	nid, ok := g.nodeIndex[id]
	return nid, ok
}

// LookupHypernode resolves an external participant id.
func (g *Graph) LookupHypernode(id string) (HypernodeID, bool) {
	hid, ok := g.hyperIndex[id]
	return hid, ok
}

// Stats summarizes the graph.
type Stats struct {
	Nodes      int `json:"nodes" yaml:"nodes"`
	Hypernodes int `json:"hypernodes" yaml:"hypernodes"`
	Slots      int `json:"slots" yaml:"slots"`
	Edges      int `json:"edges" yaml:"edges"`
	Hyperedges int `json:"hyperedges" yaml:"hyperedges"`
}

// Stats counts vertices, distinct ordered pairs (slots) and inserted edges.
func (g *Graph) Stats() Stats {
	st := Stats{Nodes: len(g.nodes), Hypernodes: len(g.hypernodes)}
	for from, targets := range g.out {
		for to, s := range targets {
			st.Slots++
			st.Edges += s.multiplicity
			if from.Kind == KindHypernode && to.Kind == KindHypernode {
				st.Hyperedges += s.multiplicity
			}
		}
	}
	return st
}
