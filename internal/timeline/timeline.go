package timeline

import (
	"sort"
	"time"
)

// ObservedEvent is one externally-detected occurrence of a reference step.
// Events come from upstream sensing (vision model, manual annotation) and are
// treated as read-only input.
type ObservedEvent struct {
	NodeID     string    `json:"node_id"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
}

// Timeline is the time-ordered record of observed events for one run.
type Timeline []ObservedEvent

// New sorts events by timestamp, keeping arrival order for ties, and returns
// the resulting timeline.
func New(events []ObservedEvent) Timeline {
	sorted := make(Timeline, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// NodeIDs returns the set of observed node ids.
func (t Timeline) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(t))
	for _, ev := range t {
		ids[ev.NodeID] = struct{}{}
	}
	return ids
}

// FirstIndex returns a node id to first-occurrence position map, so ordering
// checks run in constant time per edge.
func (t Timeline) FirstIndex() map[string]int {
	index := make(map[string]int, len(t))
	for i, ev := range t {
		if _, seen := index[ev.NodeID]; !seen {
			index[ev.NodeID] = i
		}
	}
	return index
}
