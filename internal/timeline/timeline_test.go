package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(sec int) time.Time {
	return time.Date(2026, 3, 14, 9, 0, sec, 0, time.UTC)
}

func TestNew_SortsByTimestampStable(t *testing.T) {
	events := []ObservedEvent{
		{NodeID: "c", Timestamp: at(30)},
		{NodeID: "a", Timestamp: at(10)},
		{NodeID: "b1", Timestamp: at(20)},
		{NodeID: "b2", Timestamp: at(20)}, // tie: arrival order preserved
	}

	tl := New(events)
	got := make([]string, len(tl))
	for i, ev := range tl {
		got[i] = ev.NodeID
	}
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, got)

	// Input slice untouched.
	assert.Equal(t, "c", events[0].NodeID)
}

func TestFirstIndex_KeepsFirstOccurrence(t *testing.T) {
	tl := New([]ObservedEvent{
		{NodeID: "a", Timestamp: at(1)},
		{NodeID: "b", Timestamp: at(2)},
		{NodeID: "a", Timestamp: at(3)},
	})

	index := tl.FirstIndex()
	assert.Equal(t, 0, index["a"])
	assert.Equal(t, 1, index["b"])

	ids := tl.NodeIDs()
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "a")
	assert.Contains(t, ids, "b")
}
