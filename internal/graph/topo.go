package graph

import "sort"

// TopologicalOrder computes the expected step ordering over sequential edges
// using Kahn's algorithm. When several nodes have zero in-degree at the same
// time the frontier is drained in ascending id order, so identical graphs
// always produce identical orderings. Nodes on a sequential cycle are
// unreachable by the algorithm and are simply absent from the result.
func (m *Model) TopologicalOrder() []string {
	adjacency := make(map[string][]string, len(m.nodes))
	inDegree := make(map[string]int, len(m.nodes))
	for id := range m.nodesByID {
		adjacency[id] = nil
		inDegree[id] = 0
	}

	for _, e := range m.seqEdges {
		adjacency[e.From] = append(adjacency[e.From], e.To)
		inDegree[e.To]++
	}

	frontier := make([]string, 0, len(m.nodes))
	for id, deg := range inDegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}

	order := make([]string, 0, len(m.nodes))
	for len(frontier) > 0 {
		sort.Strings(frontier)
		id := frontier[0]
		frontier = frontier[1:]
		order = append(order, id)
		for _, next := range adjacency[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				frontier = append(frontier, next)
			}
		}
	}

	return order
}
