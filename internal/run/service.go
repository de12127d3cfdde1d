package run

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	dErrors "debrief/pkg/domain-errors"

	"debrief/internal/adjudicate"
	"debrief/internal/audit"
	"debrief/internal/compare"
	"debrief/internal/graph"
	"debrief/internal/report"
	"debrief/internal/run/metrics"
	"debrief/internal/timeline"
)

// ProcedureStore is the slice of the storage layer the service reads
// procedures and graphs from.
type ProcedureStore interface {
	UpsertProcedure(ctx context.Context, procedure Procedure) error
	GetProcedure(ctx context.Context, procedureID string) (*Procedure, error)
	ReplaceGraph(ctx context.Context, procedureID string, nodes []graph.Node, edges []graph.Edge) error
	GetGraph(ctx context.Context, procedureID string) ([]graph.Node, []graph.Edge, error)
}

// EventStore holds runs and observed events.
type EventStore interface {
	CreateRun(ctx context.Context, procRun *ProcedureRun) error
	GetRun(ctx context.Context, runID string) (*ProcedureRun, error)
	AppendEvents(ctx context.Context, runID string, events []timeline.ObservedEvent) error
	ListEvents(ctx context.Context, runID string) ([]timeline.ObservedEvent, error)
}

// ReportStore persists analysis output.
type ReportStore interface {
	Upsert(ctx context.Context, rpt *report.ComplianceReport) error
	Get(ctx context.Context, runID string) (*report.ComplianceReport, error)
}

// Comparator detects raw deviations between a graph and a timeline.
type Comparator interface {
	Compare(model *graph.Model, observed timeline.Timeline) []compare.RawDeviation
}

// Adjudicator classifies raw deviations against evidence.
type Adjudicator interface {
	Adjudicate(ctx context.Context, deviations []compare.RawDeviation, procedureName string) ([]adjudicate.AdjudicatedDeviation, error)
}

// AuditTrail records analysis lifecycle events.
type AuditTrail interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the analysis pipeline: load, compare, adjudicate,
// report, persist.
type Service struct {
	procedures  ProcedureStore
	events      EventStore
	reports     ReportStore
	comparator  Comparator
	adjudicator Adjudicator
	builder     *report.Builder
	auditor     AuditTrail
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditTrail(auditor AuditTrail) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func NewService(
	procedures ProcedureStore,
	events EventStore,
	reports ReportStore,
	comparator Comparator,
	adjudicator Adjudicator,
	builder *report.Builder,
	opts ...Option,
) (*Service, error) {
	if procedures == nil {
		return nil, fmt.Errorf("procedure store is required")
	}
	if events == nil {
		return nil, fmt.Errorf("event store is required")
	}
	if reports == nil {
		return nil, fmt.Errorf("report store is required")
	}
	if comparator == nil {
		return nil, fmt.Errorf("comparator is required")
	}
	if adjudicator == nil {
		return nil, fmt.Errorf("adjudicator is required")
	}
	if builder == nil {
		return nil, fmt.Errorf("report builder is required")
	}

	s := &Service{
		procedures:  procedures,
		events:      events,
		reports:     reports,
		comparator:  comparator,
		adjudicator: adjudicator,
		builder:     builder,
		tracer:      otel.Tracer("debrief/run"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Analyze runs the full pipeline for a completed run and stores the report.
// Re-analysis overwrites the previous report.
func (s *Service) Analyze(ctx context.Context, runID string) (*report.ComplianceReport, error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "run.Analyze",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	rpt, err := s.analyze(ctx, runID)
	s.metrics.ObserveAnalysisDuration(time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		s.metrics.IncrementAnalysis("error")
		s.emitAudit(ctx, audit.Event{
			RunID:  runID,
			Action: audit.ActionAnalysisFailed,
			Reason: err.Error(),
		})
		return nil, err
	}

	span.SetAttributes(attribute.Float64("run.compliance_score", rpt.ComplianceScore))
	s.metrics.IncrementAnalysis("success")
	s.metrics.ObserveComplianceScore(rpt.ComplianceScore)
	return rpt, nil
}

func (s *Service) analyze(ctx context.Context, runID string) (*report.ComplianceReport, error) {
	procRun, err := s.events.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	procedure, err := s.procedures.GetProcedure(ctx, procRun.ProcedureID)
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.Event{
		RunID:       runID,
		ProcedureID: procedure.ID,
		Action:      audit.ActionAnalysisStarted,
	})

	// Graph and events load independently.
	var (
		nodes  []graph.Node
		edges  []graph.Edge
		events []timeline.ObservedEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nodes, edges, err = s.procedures.GetGraph(gctx, procedure.ID)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = s.events.ListEvents(gctx, runID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	model, err := graph.Load(nodes, edges)
	if err != nil {
		return nil, err
	}
	observed := timeline.New(events)

	_, compareSpan := s.tracer.Start(ctx, "run.Compare")
	deviations := s.comparator.Compare(model, observed)
	compareSpan.SetAttributes(attribute.Int("deviations.raw", len(deviations)))
	compareSpan.End()

	adjCtx, adjSpan := s.tracer.Start(ctx, "run.Adjudicate")
	adjudicated, err := s.adjudicator.Adjudicate(adjCtx, deviations, procedure.Name)
	adjSpan.End()
	if err != nil {
		return nil, fmt.Errorf("adjudicate run %s: %w", runID, err)
	}

	rpt := s.builder.Build(report.Input{
		ProcedureRunID: runID,
		ProcedureID:    procedure.ID,
		ProcedureName:  procedure.Name,
		Adjudicated:    adjudicated,
		TotalExpected:  len(model.MandatoryNodes()),
		TotalObserved:  len(events),
	})

	if err := s.reports.Upsert(ctx, rpt); err != nil {
		return nil, fmt.Errorf("store report for run %s: %w", runID, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "analysis complete",
			"run_id", runID,
			"procedure_id", procedure.ID,
			"compliance_score", rpt.ComplianceScore,
			"confirmed", rpt.ConfirmedCount,
			"mitigated", rpt.MitigatedCount,
			"review", rpt.ReviewCount,
		)
	}

	s.emitAudit(ctx, audit.Event{
		RunID:       runID,
		ProcedureID: procedure.ID,
		Action:      audit.ActionReportGenerated,
		Score:       rpt.ComplianceScore,
	})
	return rpt, nil
}

// GetReport returns the stored report for a run.
func (s *Service) GetReport(ctx context.Context, runID string) (*report.ComplianceReport, error) {
	return s.reports.Get(ctx, runID)
}

// GetReportText returns the plain-text rendering of a stored report.
func (s *Service) GetReportText(ctx context.Context, runID string) (string, error) {
	rpt, err := s.reports.Get(ctx, runID)
	if err != nil {
		return "", err
	}
	if rpt.ReportText == "" {
		return "", dErrors.New(dErrors.CodeNotFound, "report has no text rendering")
	}
	return rpt.ReportText, nil
}

// emitAudit records best-effort lifecycle events; a failed write is logged,
// not propagated, because the report itself is the system of record.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"run_id", event.RunID,
			"action", event.Action,
			"error", err,
		)
	}
}
