package compare

import (
	"fmt"
	"log/slog"
	"time"

	"debrief/internal/compare/metrics"
	"debrief/internal/graph"
	"debrief/internal/timeline"
)

// Engine diffs an observed timeline against the reference graph. It is pure
// and synchronous: no I/O, no suspension points, deterministic output for
// identical input.
type Engine struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(e *Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine constructs a comparison engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type deviationKey struct {
	nodeID string
	typ    DeviationType
}

// Compare runs the three detection passes and deduplicates the result.
// Pass order is part of the contract: missing-mandatory deviations sort
// before ordering deviations in the returned slice.
func (e *Engine) Compare(model *graph.Model, observed timeline.Timeline) []RawDeviation {
	start := time.Now()

	observedIDs := observed.NodeIDs()
	firstIndex := observed.FirstIndex()
	e.logUnknownNodes(model, observed)

	var deviations []RawDeviation

	// Pass 1: mandatory steps never observed. Safety-critical omissions are
	// a distinct type so adjudication can apply stricter policy.
	for _, node := range model.Nodes() {
		if !node.Mandatory {
			continue
		}
		if _, seen := observedIDs[node.ID]; seen {
			continue
		}
		devType := DeviationMissing
		if node.SafetyCritical {
			devType = DeviationSkippedSafety
		}
		deviations = append(deviations, RawDeviation{
			NodeID:         node.ID,
			NodeName:       node.Name,
			Phase:          node.Phase,
			Type:           devType,
			Mandatory:      node.Mandatory,
			SafetyCritical: node.SafetyCritical,
			Context:        fmt.Sprintf("Mandatory step %q was not observed during the procedure.", node.Name),
		})
	}

	// Pass 2: sequential edges where both endpoints were observed but the
	// successor came first. Attributed to the successor, whose precondition
	// was violated.
	for _, edge := range model.SequentialEdges() {
		fromIdx, fromSeen := firstIndex[edge.From]
		toIdx, toSeen := firstIndex[edge.To]
		if !fromSeen || !toSeen || fromIdx <= toIdx {
			continue
		}
		node, ok := model.Node(edge.To)
		if !ok {
			continue
		}
		fromNode, _ := model.Node(edge.From)
		deviations = append(deviations, RawDeviation{
			NodeID:         node.ID,
			NodeName:       node.Name,
			Phase:          node.Phase,
			Type:           DeviationOutOfOrder,
			Mandatory:      node.Mandatory,
			SafetyCritical: node.SafetyCritical,
			Context: fmt.Sprintf("%q was observed before %q, violating expected sequential order.",
				node.Name, fromNode.Name),
		})
	}

	// Pass 3: observed steps whose mandatory preconditions were never
	// observed. A node already flagged out-of-order is not flagged again, so
	// one node yields at most one ordering deviation even with several
	// violated preconditions.
	flagged := make(map[deviationKey]struct{}, len(deviations))
	for _, d := range deviations {
		flagged[deviationKey{d.NodeID, d.Type}] = struct{}{}
	}
	for _, ev := range observed {
		node, ok := model.Node(ev.NodeID)
		if !ok || len(node.Preconditions) == 0 {
			continue
		}
		for _, preID := range node.Preconditions {
			pre, ok := model.Node(preID)
			if !ok || !pre.Mandatory {
				continue
			}
			if _, seen := observedIDs[preID]; seen {
				continue
			}
			key := deviationKey{node.ID, DeviationOutOfOrder}
			if _, dup := flagged[key]; dup {
				continue
			}
			flagged[key] = struct{}{}
			deviations = append(deviations, RawDeviation{
				NodeID:         node.ID,
				NodeName:       node.Name,
				Phase:          node.Phase,
				Type:           DeviationOutOfOrder,
				Mandatory:      node.Mandatory,
				SafetyCritical: node.SafetyCritical,
				Context: fmt.Sprintf("%q was performed but its required precondition %q was not observed.",
					node.Name, pre.Name),
			})
		}
	}

	unique := dedupe(deviations)

	for _, d := range unique {
		e.metrics.IncrementDeviation(string(d.Type))
	}
	e.metrics.ObserveCompareLatency(time.Since(start))

	return unique
}

// dedupe collapses deviations by (node id, type), keeping the first
// occurrence and preserving pass order.
func dedupe(deviations []RawDeviation) []RawDeviation {
	seen := make(map[deviationKey]struct{}, len(deviations))
	unique := make([]RawDeviation, 0, len(deviations))
	for _, d := range deviations {
		key := deviationKey{d.NodeID, d.Type}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, d)
	}
	return unique
}

// logUnknownNodes reports observed events that reference no reference-graph
// node. Upstream sensing is noisy, so this is a log line, not an error; such
// events simply cannot participate in edge or precondition checks.
func (e *Engine) logUnknownNodes(model *graph.Model, observed timeline.Timeline) {
	if e.logger == nil {
		return
	}
	reported := make(map[string]struct{})
	for _, ev := range observed {
		if _, ok := model.Node(ev.NodeID); ok {
			continue
		}
		if _, done := reported[ev.NodeID]; done {
			continue
		}
		reported[ev.NodeID] = struct{}{}
		e.logger.Warn("observed event references unknown node",
			"node_id", ev.NodeID,
			"source", ev.Source,
		)
	}
}
