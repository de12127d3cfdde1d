package run

import (
	"context"
	"time"

	"github.com/google/uuid"

	"debrief/internal/audit"
	"debrief/internal/graph"
	"debrief/internal/timeline"
)

// DemoProcedureID identifies the built-in reference procedure.
const DemoProcedureID = "laparoscopic_cholecystectomy"

// demoNode keeps the reference graph definition compact.
type demoNode struct {
	id             string
	name           string
	phase          string
	mandatory      bool
	optional       bool
	safetyCritical bool
	preconditions  []string
}

// The gold-standard lap chole graph. Node order is the reference sequence;
// sequential edges chain consecutive steps.
var demoNodes = []demoNode{
	{id: "who_sign_in", name: "WHO sign in", phase: "preparation", mandatory: true},
	{id: "general_anesthesia", name: "General anesthesia", phase: "preparation", mandatory: true},
	{id: "patient_positioning", name: "Patient positioning", phase: "preparation", mandatory: true},
	{id: "who_time_out", name: "WHO time out", phase: "preparation", mandatory: true},
	{id: "antibiotic_prophylaxis", name: "Antibiotic prophylaxis", phase: "preparation", mandatory: true},
	{id: "establish_pneumoperitoneum", name: "Establish pneumoperitoneum", phase: "access", mandatory: true},
	{id: "trocar_placement", name: "Trocar placement", phase: "access", mandatory: true},
	{id: "diagnostic_laparoscopy", name: "Diagnostic laparoscopy", phase: "access", optional: true},
	{id: "gallbladder_retraction", name: "Gallbladder retraction", phase: "dissection", mandatory: true},
	{id: "calot_triangle_dissection", name: "Calot triangle dissection", phase: "dissection", mandatory: true},
	{id: "critical_view_of_safety", name: "Critical view of safety", phase: "dissection", mandatory: true, safetyCritical: true},
	{id: "clip_cystic_artery", name: "Clip cystic artery", phase: "clipping", mandatory: true, preconditions: []string{"critical_view_of_safety"}},
	{id: "clip_cystic_duct", name: "Clip cystic duct", phase: "clipping", mandatory: true, preconditions: []string{"critical_view_of_safety"}},
	{id: "divide_cystic_duct", name: "Divide cystic duct", phase: "clipping", mandatory: true, preconditions: []string{"clip_cystic_duct"}},
	{id: "divide_cystic_artery", name: "Divide cystic artery", phase: "clipping", mandatory: true, preconditions: []string{"clip_cystic_artery"}},
	{id: "gallbladder_dissection_from_liver_bed", name: "Gallbladder dissection from liver bed", phase: "removal", mandatory: true},
	{id: "hemostasis_check", name: "Hemostasis check", phase: "removal", mandatory: true},
	{id: "specimen_extraction", name: "Specimen extraction", phase: "removal", mandatory: true},
	{id: "desufflation", name: "Desufflation", phase: "closure", mandatory: true},
	{id: "port_site_closure", name: "Port site closure", phase: "closure", mandatory: true},
	{id: "who_sign_out", name: "WHO sign out", phase: "closure", mandatory: true},
}

// Simulated event timeline with deliberate deviations:
//   - antibiotic_prophylaxis never observed
//   - critical_view_of_safety never observed
//   - clip_cystic_duct observed before clip_cystic_artery
var demoTimeline = []struct {
	nodeID    string
	offsetMin int
}{
	{"who_sign_in", 0},
	{"general_anesthesia", 3},
	{"patient_positioning", 8},
	{"who_time_out", 12},
	{"establish_pneumoperitoneum", 14},
	{"trocar_placement", 17},
	{"diagnostic_laparoscopy", 19},
	{"gallbladder_retraction", 21},
	{"calot_triangle_dissection", 24},
	{"clip_cystic_duct", 30},
	{"clip_cystic_artery", 32},
	{"divide_cystic_duct", 34},
	{"divide_cystic_artery", 35},
	{"gallbladder_dissection_from_liver_bed", 38},
	{"hemostasis_check", 43},
	{"specimen_extraction", 45},
	{"desufflation", 47},
	{"port_site_closure", 49},
	{"who_sign_out", 52},
}

// DemoGraph returns the reference graph for the built-in procedure.
func DemoGraph() ([]graph.Node, []graph.Edge) {
	nodes := make([]graph.Node, 0, len(demoNodes))
	for _, n := range demoNodes {
		nodes = append(nodes, graph.Node{
			ID:             n.id,
			ProcedureID:    DemoProcedureID,
			Name:           n.name,
			Phase:          n.phase,
			Mandatory:      n.mandatory,
			Optional:       n.optional,
			SafetyCritical: n.safetyCritical,
			Preconditions:  n.preconditions,
		})
	}

	edges := make([]graph.Edge, 0, len(demoNodes)-1)
	for i := 1; i < len(demoNodes); i++ {
		edges = append(edges, graph.Edge{
			From: demoNodes[i-1].id,
			To:   demoNodes[i].id,
			Type: graph.EdgeSequential,
		})
	}
	return nodes, edges
}

// SeedDemoResult describes a seeded demo run.
type SeedDemoResult struct {
	ProcedureRunID string   `json:"procedure_run_id"`
	EventCount     int      `json:"event_count"`
	BakedIn        []string `json:"deviations_baked_in"`
}

// SeedDemo creates the reference procedure, its graph, and a completed run
// whose timeline carries the baked-in deviations.
func (s *Service) SeedDemo(ctx context.Context, surgeonName string) (*SeedDemoResult, error) {
	if surgeonName == "" {
		surgeonName = "Dr. Demo"
	}

	if err := s.procedures.UpsertProcedure(ctx, Procedure{
		ID:   DemoProcedureID,
		Name: "Laparoscopic Cholecystectomy",
	}); err != nil {
		return nil, err
	}

	nodes, edges := DemoGraph()
	if err := s.procedures.ReplaceGraph(ctx, DemoProcedureID, nodes, edges); err != nil {
		return nil, err
	}

	base := time.Now().UTC()
	procRun := &ProcedureRun{
		ID:          uuid.NewString(),
		ProcedureID: DemoProcedureID,
		SurgeonName: surgeonName,
		StartedAt:   base,
		EndedAt:     base.Add(52 * time.Minute),
		Status:      StatusCompleted,
	}
	if err := s.events.CreateRun(ctx, procRun); err != nil {
		return nil, err
	}

	events := make([]timeline.ObservedEvent, 0, len(demoTimeline))
	for _, entry := range demoTimeline {
		events = append(events, timeline.ObservedEvent{
			NodeID:     entry.nodeID,
			Timestamp:  base.Add(time.Duration(entry.offsetMin) * time.Minute),
			Confidence: 1.0,
			Source:     "mock",
		})
	}
	if err := s.events.AppendEvents(ctx, procRun.ID, events); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.Event{
		RunID:       procRun.ID,
		ProcedureID: DemoProcedureID,
		Action:      audit.ActionRunIngested,
		Reason:      "demo seed",
	})

	return &SeedDemoResult{
		ProcedureRunID: procRun.ID,
		EventCount:     len(events),
		BakedIn: []string{
			"critical_view_of_safety — MISSING",
			"clip_cystic_duct before clip_cystic_artery — OUT OF ORDER",
			"antibiotic_prophylaxis — MISSING",
		},
	}, nil
}
