package hypergraph

// OutDegrees returns, for every source of the requested kind in handle order,
// the number of edges it sends to targets of the requested kind. Multi-edges
// count once per insert.
func (g *Graph) OutDegrees(fromHyper, toHyper bool) []int {
	return g.degrees(g.out, fromHyper, toHyper)
}

// InDegrees returns, for every target of the requested kind in handle order,
// the number of edges it receives from sources of the requested kind.
func (g *Graph) InDegrees(fromHyper, toHyper bool) []int {
	return g.degrees(g.in, toHyper, fromHyper)
}

// degrees walks idx for every vertex of the "self" kind and sums slots whose
// other endpoint is of the "other" kind.
func (g *Graph) degrees(idx map[Ref]map[Ref]*slot, selfHyper, otherHyper bool) []int {
	selfKind, n := KindNode, len(g.nodes)
	if selfHyper {
		selfKind, n = KindHypernode, len(g.hypernodes)
	}
	otherKind := KindNode
	if otherHyper {
		otherKind = KindHypernode
	}

	out := make([]int, n)
	for i := 0; i < n; i++ {
		for r, s := range idx[Ref{Kind: selfKind, ID: i}] {
			if r.Kind == otherKind {
				out[i] += s.multiplicity
			}
		}
	}
	return out
}
