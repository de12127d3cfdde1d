// Package store persists procedures, runs, observed events, and reports.
// Memory implementations back tests and single-node deployments; the
// Postgres implementations are the production path.
package store

import (
	"context"

	"debrief/internal/graph"
	"debrief/internal/report"
	"debrief/internal/run"
	"debrief/internal/timeline"
)

// ProcedureStore holds reference procedures and their graphs.
type ProcedureStore interface {
	UpsertProcedure(ctx context.Context, procedure run.Procedure) error
	GetProcedure(ctx context.Context, procedureID string) (*run.Procedure, error)

	// ReplaceGraph swaps the full node/edge set for a procedure.
	ReplaceGraph(ctx context.Context, procedureID string, nodes []graph.Node, edges []graph.Edge) error
	GetGraph(ctx context.Context, procedureID string) ([]graph.Node, []graph.Edge, error)
}

// EventStore holds procedure runs and their observed event timelines.
type EventStore interface {
	CreateRun(ctx context.Context, procRun *run.ProcedureRun) error
	GetRun(ctx context.Context, runID string) (*run.ProcedureRun, error)

	AppendEvents(ctx context.Context, runID string, events []timeline.ObservedEvent) error
	ListEvents(ctx context.Context, runID string) ([]timeline.ObservedEvent, error)
}

// ReportStore holds one compliance report per run, latest analysis wins.
type ReportStore interface {
	Upsert(ctx context.Context, rpt *report.ComplianceReport) error
	Get(ctx context.Context, runID string) (*report.ComplianceReport, error)
}
