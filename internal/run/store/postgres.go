package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	dErrors "debrief/pkg/domain-errors"

	"debrief/internal/adjudicate"
	"debrief/internal/graph"
	"debrief/internal/report"
	"debrief/internal/run"
	"debrief/internal/timeline"
)

// Schema is the DDL for all run-related tables. Idempotent; applied at
// startup and by integration suites.
const Schema = `
CREATE TABLE IF NOT EXISTS procedures (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
	id              TEXT NOT NULL,
	procedure_id    TEXT NOT NULL REFERENCES procedures(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	phase           TEXT NOT NULL DEFAULT '',
	mandatory       BOOLEAN NOT NULL DEFAULT FALSE,
	optional        BOOLEAN NOT NULL DEFAULT FALSE,
	safety_critical BOOLEAN NOT NULL DEFAULT FALSE,
	preconditions   TEXT[] NOT NULL DEFAULT '{}',
	actors          TEXT[] NOT NULL DEFAULT '{}',
	required_tools  TEXT[] NOT NULL DEFAULT '{}',
	PRIMARY KEY (procedure_id, id)
);

CREATE TABLE IF NOT EXISTS edges (
	procedure_id TEXT NOT NULL REFERENCES procedures(id) ON DELETE CASCADE,
	from_node    TEXT NOT NULL,
	to_node      TEXT NOT NULL,
	edge_type    TEXT NOT NULL,
	PRIMARY KEY (procedure_id, from_node, to_node)
);

CREATE TABLE IF NOT EXISTS procedure_runs (
	id           UUID PRIMARY KEY,
	procedure_id TEXT NOT NULL REFERENCES procedures(id),
	surgeon_name TEXT NOT NULL DEFAULT '',
	started_at   TIMESTAMPTZ NOT NULL,
	ended_at     TIMESTAMPTZ,
	status       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS observed_events (
	id               BIGSERIAL PRIMARY KEY,
	procedure_run_id UUID NOT NULL REFERENCES procedure_runs(id) ON DELETE CASCADE,
	node_id          TEXT NOT NULL,
	event_time       TIMESTAMPTZ NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL,
	source           TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS observed_events_run_idx
	ON observed_events (procedure_run_id, event_time);

CREATE TABLE IF NOT EXISTS deviation_reports (
	procedure_run_id     UUID PRIMARY KEY REFERENCES procedure_runs(id) ON DELETE CASCADE,
	procedure_id         TEXT NOT NULL,
	procedure_name       TEXT NOT NULL,
	compliance_score     DOUBLE PRECISION NOT NULL,
	total_expected       INTEGER NOT NULL,
	total_observed       INTEGER NOT NULL,
	confirmed_count      INTEGER NOT NULL,
	mitigated_count      INTEGER NOT NULL,
	review_count         INTEGER NOT NULL,
	confirmed_deviations JSONB NOT NULL DEFAULT '[]',
	mitigated_deviations JSONB NOT NULL DEFAULT '[]',
	review_deviations    JSONB NOT NULL DEFAULT '[]',
	report_text          TEXT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL
);
`

// Postgres implements ProcedureStore, EventStore, and ReportStore on a
// shared connection pool.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies the schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply run schema: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertProcedure(ctx context.Context, procedure run.Procedure) error {
	query := `
		INSERT INTO procedures (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`
	if _, err := p.db.ExecContext(ctx, query, procedure.ID, procedure.Name); err != nil {
		return fmt.Errorf("upsert procedure: %w", err)
	}
	return nil
}

func (p *Postgres) GetProcedure(ctx context.Context, procedureID string) (*run.Procedure, error) {
	var procedure run.Procedure
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name FROM procedures WHERE id = $1`, procedureID).
		Scan(&procedure.ID, &procedure.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "procedure %s not found", procedureID)
		}
		return nil, fmt.Errorf("get procedure: %w", err)
	}
	return &procedure, nil
}

func (p *Postgres) ReplaceGraph(ctx context.Context, procedureID string, nodes []graph.Node, edges []graph.Edge) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace graph: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE procedure_id = $1`, procedureID); err != nil {
		return fmt.Errorf("clear edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE procedure_id = $1`, procedureID); err != nil {
		return fmt.Errorf("clear nodes: %w", err)
	}

	nodeQuery := `
		INSERT INTO nodes (id, procedure_id, name, phase, mandatory, optional,
			safety_critical, preconditions, actors, required_tools)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, node := range nodes {
		_, err := tx.ExecContext(ctx, nodeQuery,
			node.ID, procedureID, node.Name, node.Phase,
			node.Mandatory, node.Optional, node.SafetyCritical,
			pq.Array(node.Preconditions), pq.Array(node.Actors), pq.Array(node.RequiredTools),
		)
		if err != nil {
			return fmt.Errorf("insert node %s: %w", node.ID, err)
		}
	}

	edgeQuery := `
		INSERT INTO edges (procedure_id, from_node, to_node, edge_type)
		VALUES ($1, $2, $3, $4)
	`
	for _, edge := range edges {
		if _, err := tx.ExecContext(ctx, edgeQuery, procedureID, edge.From, edge.To, string(edge.Type)); err != nil {
			return fmt.Errorf("insert edge %s->%s: %w", edge.From, edge.To, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace graph: %w", err)
	}
	return nil
}

func (p *Postgres) GetGraph(ctx context.Context, procedureID string) ([]graph.Node, []graph.Edge, error) {
	nodeQuery := `
		SELECT id, name, phase, mandatory, optional, safety_critical,
			preconditions, actors, required_tools
		FROM nodes WHERE procedure_id = $1 ORDER BY id
	`
	rows, err := p.db.QueryContext(ctx, nodeQuery, procedureID)
	if err != nil {
		return nil, nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []graph.Node
	for rows.Next() {
		node := graph.Node{ProcedureID: procedureID}
		err := rows.Scan(&node.ID, &node.Name, &node.Phase,
			&node.Mandatory, &node.Optional, &node.SafetyCritical,
			pq.Array(&node.Preconditions), pq.Array(&node.Actors), pq.Array(&node.RequiredTools),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate nodes: %w", err)
	}
	if len(nodes) == 0 {
		return nil, nil, dErrors.Newf(dErrors.CodeNotFound, "no graph for procedure %s", procedureID)
	}

	edgeRows, err := p.db.QueryContext(ctx,
		`SELECT from_node, to_node, edge_type FROM edges WHERE procedure_id = $1 ORDER BY from_node, to_node`,
		procedureID)
	if err != nil {
		return nil, nil, fmt.Errorf("query edges: %w", err)
	}
	defer edgeRows.Close()

	var edges []graph.Edge
	for edgeRows.Next() {
		var edge graph.Edge
		var edgeType string
		if err := edgeRows.Scan(&edge.From, &edge.To, &edgeType); err != nil {
			return nil, nil, fmt.Errorf("scan edge: %w", err)
		}
		edge.Type = graph.EdgeType(edgeType)
		edges = append(edges, edge)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate edges: %w", err)
	}

	return nodes, edges, nil
}

func (p *Postgres) CreateRun(ctx context.Context, procRun *run.ProcedureRun) error {
	var endedAt sql.NullTime
	if !procRun.EndedAt.IsZero() {
		endedAt = sql.NullTime{Time: procRun.EndedAt, Valid: true}
	}
	query := `
		INSERT INTO procedure_runs (id, procedure_id, surgeon_name, started_at, ended_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := p.db.ExecContext(ctx, query,
		procRun.ID, procRun.ProcedureID, procRun.SurgeonName,
		procRun.StartedAt, endedAt, string(procRun.Status),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (p *Postgres) GetRun(ctx context.Context, runID string) (*run.ProcedureRun, error) {
	var procRun run.ProcedureRun
	var endedAt sql.NullTime
	var status string
	err := p.db.QueryRowContext(ctx,
		`SELECT id, procedure_id, surgeon_name, started_at, ended_at, status
		 FROM procedure_runs WHERE id = $1`, runID).
		Scan(&procRun.ID, &procRun.ProcedureID, &procRun.SurgeonName,
			&procRun.StartedAt, &endedAt, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "procedure run %s not found", runID)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	if endedAt.Valid {
		procRun.EndedAt = endedAt.Time
	}
	procRun.Status = run.RunStatus(status)
	return &procRun, nil
}

func (p *Postgres) AppendEvents(ctx context.Context, runID string, events []timeline.ObservedEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append events: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO observed_events (procedure_run_id, node_id, event_time, confidence, source)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, event := range events {
		if _, err := tx.ExecContext(ctx, query, runID, event.NodeID, event.Timestamp, event.Confidence, event.Source); err != nil {
			return fmt.Errorf("insert event %s: %w", event.NodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append events: %w", err)
	}
	return nil
}

func (p *Postgres) ListEvents(ctx context.Context, runID string) ([]timeline.ObservedEvent, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT node_id, event_time, confidence, source
		 FROM observed_events WHERE procedure_run_id = $1 ORDER BY event_time, id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []timeline.ObservedEvent
	for rows.Next() {
		var event timeline.ObservedEvent
		if err := rows.Scan(&event.NodeID, &event.Timestamp, &event.Confidence, &event.Source); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (p *Postgres) Upsert(ctx context.Context, rpt *report.ComplianceReport) error {
	confirmed, err := json.Marshal(rpt.ConfirmedDeviations)
	if err != nil {
		return fmt.Errorf("marshal confirmed deviations: %w", err)
	}
	mitigated, err := json.Marshal(rpt.MitigatedDeviations)
	if err != nil {
		return fmt.Errorf("marshal mitigated deviations: %w", err)
	}
	review, err := json.Marshal(rpt.ReviewDeviations)
	if err != nil {
		return fmt.Errorf("marshal review deviations: %w", err)
	}

	query := `
		INSERT INTO deviation_reports (procedure_run_id, procedure_id, procedure_name,
			compliance_score, total_expected, total_observed,
			confirmed_count, mitigated_count, review_count,
			confirmed_deviations, mitigated_deviations, review_deviations,
			report_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (procedure_run_id) DO UPDATE SET
			procedure_id = EXCLUDED.procedure_id,
			procedure_name = EXCLUDED.procedure_name,
			compliance_score = EXCLUDED.compliance_score,
			total_expected = EXCLUDED.total_expected,
			total_observed = EXCLUDED.total_observed,
			confirmed_count = EXCLUDED.confirmed_count,
			mitigated_count = EXCLUDED.mitigated_count,
			review_count = EXCLUDED.review_count,
			confirmed_deviations = EXCLUDED.confirmed_deviations,
			mitigated_deviations = EXCLUDED.mitigated_deviations,
			review_deviations = EXCLUDED.review_deviations,
			report_text = EXCLUDED.report_text,
			created_at = EXCLUDED.created_at
	`
	_, err = p.db.ExecContext(ctx, query,
		rpt.ProcedureRunID, rpt.ProcedureID, rpt.ProcedureName,
		rpt.ComplianceScore, rpt.TotalExpected, rpt.TotalObserved,
		rpt.ConfirmedCount, rpt.MitigatedCount, rpt.ReviewCount,
		confirmed, mitigated, review,
		rpt.ReportText, rpt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, runID string) (*report.ComplianceReport, error) {
	var rpt report.ComplianceReport
	var confirmed, mitigated, review []byte
	var createdAt time.Time
	err := p.db.QueryRowContext(ctx,
		`SELECT procedure_run_id, procedure_id, procedure_name,
			compliance_score, total_expected, total_observed,
			confirmed_count, mitigated_count, review_count,
			confirmed_deviations, mitigated_deviations, review_deviations,
			report_text, created_at
		 FROM deviation_reports WHERE procedure_run_id = $1`, runID).
		Scan(&rpt.ProcedureRunID, &rpt.ProcedureID, &rpt.ProcedureName,
			&rpt.ComplianceScore, &rpt.TotalExpected, &rpt.TotalObserved,
			&rpt.ConfirmedCount, &rpt.MitigatedCount, &rpt.ReviewCount,
			&confirmed, &mitigated, &review,
			&rpt.ReportText, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found, run analysis first")
		}
		return nil, fmt.Errorf("get report: %w", err)
	}

	if err := unmarshalDeviations(confirmed, &rpt.ConfirmedDeviations); err != nil {
		return nil, err
	}
	if err := unmarshalDeviations(mitigated, &rpt.MitigatedDeviations); err != nil {
		return nil, err
	}
	if err := unmarshalDeviations(review, &rpt.ReviewDeviations); err != nil {
		return nil, err
	}
	rpt.CreatedAt = createdAt
	return &rpt, nil
}

func unmarshalDeviations(raw []byte, out *[]adjudicate.AdjudicatedDeviation) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal stored deviations: %w", err)
	}
	return nil
}
