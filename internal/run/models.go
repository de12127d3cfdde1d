// Package run owns procedure runs: persistence of reference procedures,
// observed event timelines, and analysis reports, plus the orchestration
// that turns a completed run into a compliance report.
package run

import "time"

// RunStatus tracks a procedure run's lifecycle.
type RunStatus string

const (
	StatusInProgress RunStatus = "in_progress"
	StatusCompleted  RunStatus = "completed"
	StatusAborted    RunStatus = "aborted"
)

// Procedure is a reference procedure a run is audited against.
type Procedure struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProcedureRun is one recorded execution of a procedure.
type ProcedureRun struct {
	ID          string    `json:"id"`
	ProcedureID string    `json:"procedure_id"`
	SurgeonName string    `json:"surgeon_name,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at,omitempty"`
	Status      RunStatus `json:"status"`
}
