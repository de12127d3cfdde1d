package audit

import (
	"context"
	"time"
)

// Actions recorded on the audit trail.
const (
	ActionRunIngested       = "run.ingested"
	ActionAnalysisStarted   = "analysis.started"
	ActionAnalysisCompleted = "analysis.completed"
	ActionAnalysisFailed    = "analysis.failed"
	ActionReportGenerated   = "report.generated"
)

// Event is emitted from domain logic to capture key actions against a
// procedure run. Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"run_id"`
	ProcedureID string    `json:"procedure_id"`
	Action      string    `json:"action"`
	Decision    string    `json:"decision,omitempty"`
	Score       float64   `json:"score,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// Store persists audit events. Append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRun(ctx context.Context, runID string) ([]Event, error)
}

// Sink forwards audit events to an external system, best-effort.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close()
}
