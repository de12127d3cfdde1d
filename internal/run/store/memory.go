package store

import (
	"context"
	"sync"

	dErrors "debrief/pkg/domain-errors"

	"debrief/internal/graph"
	"debrief/internal/report"
	"debrief/internal/run"
	"debrief/internal/timeline"
)

type memoryGraph struct {
	nodes []graph.Node
	edges []graph.Edge
}

// Memory is an in-process implementation of all three store contracts.
type Memory struct {
	mu         sync.RWMutex
	procedures map[string]run.Procedure
	graphs     map[string]memoryGraph
	runs       map[string]run.ProcedureRun
	events     map[string][]timeline.ObservedEvent
	reports    map[string]report.ComplianceReport
}

func NewMemory() *Memory {
	return &Memory{
		procedures: make(map[string]run.Procedure),
		graphs:     make(map[string]memoryGraph),
		runs:       make(map[string]run.ProcedureRun),
		events:     make(map[string][]timeline.ObservedEvent),
		reports:    make(map[string]report.ComplianceReport),
	}
}

func (m *Memory) UpsertProcedure(_ context.Context, procedure run.Procedure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.procedures[procedure.ID] = procedure
	return nil
}

func (m *Memory) GetProcedure(_ context.Context, procedureID string) (*run.Procedure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	procedure, ok := m.procedures[procedureID]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "procedure %s not found", procedureID)
	}
	return &procedure, nil
}

func (m *Memory) ReplaceGraph(_ context.Context, procedureID string, nodes []graph.Node, edges []graph.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs[procedureID] = memoryGraph{
		nodes: append([]graph.Node(nil), nodes...),
		edges: append([]graph.Edge(nil), edges...),
	}
	return nil
}

func (m *Memory) GetGraph(_ context.Context, procedureID string) ([]graph.Node, []graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.graphs[procedureID]
	if !ok {
		return nil, nil, dErrors.Newf(dErrors.CodeNotFound, "no graph for procedure %s", procedureID)
	}
	return append([]graph.Node(nil), g.nodes...), append([]graph.Edge(nil), g.edges...), nil
}

func (m *Memory) CreateRun(_ context.Context, procRun *run.ProcedureRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.runs[procRun.ID]; exists {
		return dErrors.Newf(dErrors.CodeBadRequest, "run %s already exists", procRun.ID)
	}
	m.runs[procRun.ID] = *procRun
	return nil
}

func (m *Memory) GetRun(_ context.Context, runID string) (*run.ProcedureRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	procRun, ok := m.runs[runID]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "procedure run %s not found", runID)
	}
	return &procRun, nil
}

func (m *Memory) AppendEvents(_ context.Context, runID string, events []timeline.ObservedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[runID]; !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "procedure run %s not found", runID)
	}
	m.events[runID] = append(m.events[runID], events...)
	return nil
}

func (m *Memory) ListEvents(_ context.Context, runID string) ([]timeline.ObservedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]timeline.ObservedEvent(nil), m.events[runID]...), nil
}

func (m *Memory) Upsert(_ context.Context, rpt *report.ComplianceReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[rpt.ProcedureRunID] = *rpt
	return nil
}

func (m *Memory) Get(_ context.Context, runID string) (*report.ComplianceReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rpt, ok := m.reports[runID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "report not found, run analysis first")
	}
	return &rpt, nil
}
