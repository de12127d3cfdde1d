package graph

import (
	dErrors "debrief/pkg/domain-errors"
)

// EdgeType distinguishes ordering constraints from conditional branches.
// Only sequential edges constrain observed ordering.
type EdgeType string

const (
	EdgeSequential  EdgeType = "sequential"
	EdgeConditional EdgeType = "conditional"
)

// Node is one step of the reference procedure. Nodes are immutable once
// loaded into a Model.
type Node struct {
	ID             string   `json:"id"`
	ProcedureID    string   `json:"procedure_id"`
	Name           string   `json:"name"`
	Phase          string   `json:"phase"`
	Mandatory      bool     `json:"mandatory"`
	Optional       bool     `json:"optional"`
	SafetyCritical bool     `json:"safety_critical"`
	Preconditions  []string `json:"preconditions,omitempty"`
	Actors         []string `json:"actors,omitempty"`
	RequiredTools  []string `json:"required_tools,omitempty"`
}

// Edge is a directed constraint between two reference steps.
type Edge struct {
	From string   `json:"from_node"`
	To   string   `json:"to_node"`
	Type EdgeType `json:"type"`
}

// Model is the loaded, validated reference procedure graph. Read-only after
// Load; safe for concurrent use.
type Model struct {
	nodes     []Node
	nodesByID map[string]Node
	edges     []Edge
	seqEdges  []Edge
}

// Load validates nodes and edges and builds the in-memory reference graph.
// It fails when an edge references an unknown node id or when a node is
// flagged both mandatory and optional.
func Load(nodes []Node, edges []Edge) (*Model, error) {
	nodesByID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "node id is required")
		}
		if n.Mandatory && n.Optional {
			return nil, dErrors.Newf(dErrors.CodeValidation,
				"node %q cannot be both mandatory and optional", n.ID)
		}
		if _, dup := nodesByID[n.ID]; dup {
			return nil, dErrors.Newf(dErrors.CodeValidation, "duplicate node id %q", n.ID)
		}
		nodesByID[n.ID] = n
	}

	seqEdges := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if _, ok := nodesByID[e.From]; !ok {
			return nil, dErrors.Newf(dErrors.CodeValidation,
				"edge references unknown node %q", e.From)
		}
		if _, ok := nodesByID[e.To]; !ok {
			return nil, dErrors.Newf(dErrors.CodeValidation,
				"edge references unknown node %q", e.To)
		}
		if e.Type == EdgeSequential {
			seqEdges = append(seqEdges, e)
		}
	}

	return &Model{
		nodes:     nodes,
		nodesByID: nodesByID,
		edges:     edges,
		seqEdges:  seqEdges,
	}, nil
}

// Nodes returns all reference steps in load order.
func (m *Model) Nodes() []Node {
	return m.nodes
}

// NodesByID returns the id-indexed node lookup. Callers must not mutate it.
func (m *Model) NodesByID() map[string]Node {
	return m.nodesByID
}

// Node looks up a single reference step.
func (m *Model) Node(id string) (Node, bool) {
	n, ok := m.nodesByID[id]
	return n, ok
}

// SequentialEdges returns only the ordering-constraining edges.
func (m *Model) SequentialEdges() []Edge {
	return m.seqEdges
}

// MandatoryNodes returns the steps a compliant execution must contain.
func (m *Model) MandatoryNodes() []Node {
	var mandatory []Node
	for _, n := range m.nodes {
		if n.Mandatory {
			mandatory = append(mandatory, n)
		}
	}
	return mandatory
}
