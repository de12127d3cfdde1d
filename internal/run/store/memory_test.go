package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "debrief/pkg/domain-errors"

	"debrief/internal/graph"
	"debrief/internal/report"
	"debrief/internal/run"
	"debrief/internal/timeline"
)

func TestMemoryProcedureStore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	t.Run("missing procedure is not found", func(t *testing.T) {
		_, err := mem.GetProcedure(ctx, "nope")
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})

	t.Run("upsert then get", func(t *testing.T) {
		require.NoError(t, mem.UpsertProcedure(ctx, run.Procedure{ID: "lap_chole", Name: "Lap Chole"}))
		require.NoError(t, mem.UpsertProcedure(ctx, run.Procedure{ID: "lap_chole", Name: "Laparoscopic Cholecystectomy"}))

		got, err := mem.GetProcedure(ctx, "lap_chole")
		require.NoError(t, err)
		assert.Equal(t, "Laparoscopic Cholecystectomy", got.Name)
	})

	t.Run("replace graph swaps node set", func(t *testing.T) {
		nodes := []graph.Node{{ID: "a", Name: "A", Mandatory: true}}
		edges := []graph.Edge{}
		require.NoError(t, mem.ReplaceGraph(ctx, "lap_chole", nodes, edges))

		replacement := []graph.Node{{ID: "b", Name: "B"}, {ID: "c", Name: "C"}}
		require.NoError(t, mem.ReplaceGraph(ctx, "lap_chole", replacement, edges))

		gotNodes, _, err := mem.GetGraph(ctx, "lap_chole")
		require.NoError(t, err)
		require.Len(t, gotNodes, 2)
		assert.Equal(t, "b", gotNodes[0].ID)
	})

	t.Run("missing graph is not found", func(t *testing.T) {
		_, _, err := mem.GetGraph(ctx, "unknown")
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func TestMemoryEventStore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	runID := uuid.NewString()

	t.Run("missing run is not found", func(t *testing.T) {
		_, err := mem.GetRun(ctx, runID)
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})

	t.Run("append to unknown run fails", func(t *testing.T) {
		err := mem.AppendEvents(ctx, runID, []timeline.ObservedEvent{{NodeID: "a"}})
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})

	t.Run("create run and append events", func(t *testing.T) {
		started := time.Now().UTC()
		require.NoError(t, mem.CreateRun(ctx, &run.ProcedureRun{
			ID:          runID,
			ProcedureID: "lap_chole",
			StartedAt:   started,
			Status:      run.StatusCompleted,
		}))

		err := mem.CreateRun(ctx, &run.ProcedureRun{ID: runID})
		assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))

		require.NoError(t, mem.AppendEvents(ctx, runID, []timeline.ObservedEvent{
			{NodeID: "a", Timestamp: started},
			{NodeID: "b", Timestamp: started.Add(time.Minute)},
		}))

		events, err := mem.ListEvents(ctx, runID)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})
}

func TestMemoryReportStore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	runID := uuid.NewString()

	_, err := mem.Get(ctx, runID)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))

	first := &report.ComplianceReport{ProcedureRunID: runID, ComplianceScore: 0.5}
	require.NoError(t, mem.Upsert(ctx, first))

	second := &report.ComplianceReport{ProcedureRunID: runID, ComplianceScore: 0.775}
	require.NoError(t, mem.Upsert(ctx, second))

	got, err := mem.Get(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 0.775, got.ComplianceScore)
}
