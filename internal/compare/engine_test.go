package compare

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debrief/internal/graph"
	"debrief/internal/timeline"
)

func mustLoad(t *testing.T, nodes []graph.Node, edges []graph.Edge) *graph.Model {
	t.Helper()
	m, err := graph.Load(nodes, edges)
	require.NoError(t, err)
	return m
}

func observedAt(ids ...string) timeline.Timeline {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	events := make([]timeline.ObservedEvent, len(ids))
	for i, id := range ids {
		events[i] = timeline.ObservedEvent{
			NodeID:     id,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Confidence: 1.0,
			Source:     "test",
		}
	}
	return timeline.New(events)
}

func TestCompare_MissingMandatory(t *testing.T) {
	m := mustLoad(t, []graph.Node{
		{ID: "a", Name: "Antibiotics", Phase: "prep", Mandatory: true},
		{ID: "b", Name: "Critical view", Phase: "dissection", Mandatory: true, SafetyCritical: true},
		{ID: "c", Name: "Photo documentation", Phase: "dissection", Optional: true},
	}, nil)

	devs := NewEngine().Compare(m, observedAt())

	require.Len(t, devs, 2)
	assert.Equal(t, "a", devs[0].NodeID)
	assert.Equal(t, DeviationMissing, devs[0].Type)
	assert.Equal(t, "b", devs[1].NodeID)
	assert.Equal(t, DeviationSkippedSafety, devs[1].Type)
	assert.True(t, devs[1].SafetyCritical)
	assert.Contains(t, devs[0].Context, "Antibiotics")
}

// Scenario: three mandatory nodes, a→b sequential, observed [b, a, c].
// Only b is misordered; nothing is missing.
func TestCompare_OutOfOrderOnly(t *testing.T) {
	m := mustLoad(t, []graph.Node{
		{ID: "a", Name: "Step A", Mandatory: true},
		{ID: "b", Name: "Step B", Mandatory: true},
		{ID: "c", Name: "Step C", Mandatory: true},
	}, []graph.Edge{{From: "a", To: "b", Type: graph.EdgeSequential}})

	devs := NewEngine().Compare(m, observedAt("b", "a", "c"))

	require.Len(t, devs, 1)
	assert.Equal(t, "b", devs[0].NodeID)
	assert.Equal(t, DeviationOutOfOrder, devs[0].Type)
	assert.Contains(t, devs[0].Context, "Step A")
	assert.Contains(t, devs[0].Context, "Step B")
}

func TestCompare_ConditionalEdgesDoNotConstrain(t *testing.T) {
	m := mustLoad(t, []graph.Node{
		{ID: "a", Name: "Step A", Mandatory: true},
		{ID: "b", Name: "Step B", Mandatory: true},
	}, []graph.Edge{{From: "a", To: "b", Type: graph.EdgeConditional}})

	devs := NewEngine().Compare(m, observedAt("b", "a"))
	assert.Empty(t, devs)
}

func TestCompare_PreconditionViolation(t *testing.T) {
	m := mustLoad(t, []graph.Node{
		{ID: "pre", Name: "Confirm anatomy", Mandatory: true},
		{ID: "act", Name: "Divide duct", Mandatory: true, Preconditions: []string{"pre"}},
	}, nil)

	devs := NewEngine().Compare(m, observedAt("act"))

	// pre is missing (pass 1) and act violated its precondition (pass 3).
	require.Len(t, devs, 2)
	assert.Equal(t, "pre", devs[0].NodeID)
	assert.Equal(t, DeviationMissing, devs[0].Type)
	assert.Equal(t, "act", devs[1].NodeID)
	assert.Equal(t, DeviationOutOfOrder, devs[1].Type)
	assert.Contains(t, devs[1].Context, "Confirm anatomy")
}

func TestCompare_PreconditionSuppressedWhenAlreadyOutOfOrder(t *testing.T) {
	m := mustLoad(t, []graph.Node{
		{ID: "a", Name: "Step A", Mandatory: true},
		{ID: "b", Name: "Step B", Mandatory: true, Preconditions: []string{"p"}},
		{ID: "p", Name: "Step P", Mandatory: true},
	}, []graph.Edge{{From: "a", To: "b", Type: graph.EdgeSequential}})

	// b before a triggers the edge pass; p unobserved triggers the
	// precondition pass for the same node. Only one out_of_order for b.
	devs := NewEngine().Compare(m, observedAt("b", "a"))

	var outOfOrderB int
	for _, d := range devs {
		if d.NodeID == "b" && d.Type == DeviationOutOfOrder {
			outOfOrderB++
		}
	}
	assert.Equal(t, 1, outOfOrderB)
}

func TestCompare_OneDeviationPerNodeAcrossMultiplePreconditions(t *testing.T) {
	m := mustLoad(t, []graph.Node{
		{ID: "p1", Name: "Prep one", Mandatory: true},
		{ID: "p2", Name: "Prep two", Mandatory: true},
		{ID: "act", Name: "Act", Mandatory: true, Preconditions: []string{"p1", "p2"}},
	}, nil)

	devs := NewEngine().Compare(m, observedAt("act"))

	var actDeviations int
	for _, d := range devs {
		if d.NodeID == "act" {
			actDeviations++
		}
	}
	assert.Equal(t, 1, actDeviations)
}

func TestCompare_UnknownObservedNodeIgnored(t *testing.T) {
	m := mustLoad(t, []graph.Node{
		{ID: "a", Name: "Step A", Mandatory: true},
	}, nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	devs := NewEngine(WithLogger(logger)).Compare(m, observedAt("a", "phantom"))
	assert.Empty(t, devs)
}

func TestCompare_NoDuplicateNodeTypePairs(t *testing.T) {
	m := mustLoad(t, []graph.Node{
		{ID: "a", Name: "Step A", Mandatory: true},
		{ID: "b", Name: "Step B", Mandatory: true, Preconditions: []string{"a"}},
		{ID: "c", Name: "Step C", Mandatory: true, Preconditions: []string{"a"}},
	}, []graph.Edge{
		{From: "a", To: "b", Type: graph.EdgeSequential},
		{From: "b", To: "c", Type: graph.EdgeSequential},
	})

	devs := NewEngine().Compare(m, observedAt("c", "b"))

	seen := make(map[deviationKey]struct{})
	for _, d := range devs {
		key := deviationKey{d.NodeID, d.Type}
		_, dup := seen[key]
		assert.False(t, dup, "duplicate deviation %v", key)
		seen[key] = struct{}{}
	}
}
