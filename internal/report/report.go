// Package report turns adjudicated deviations into a compliance report: a
// weighted score, per-verdict partitions, and a human-readable text digest.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"debrief/internal/adjudicate"
)

const (
	confirmedPenalty = 1.0
	reviewPenalty    = 0.25

	evidenceTruncateChars = 300
	citationLimit         = 5
)

// ComplianceReport is the final analysis artifact for one procedure run.
type ComplianceReport struct {
	ProcedureRunID  string  `json:"procedure_run_id"`
	ProcedureID     string  `json:"procedure_id"`
	ProcedureName   string  `json:"procedure_name"`
	ComplianceScore float64 `json:"compliance_score"`
	TotalExpected   int     `json:"total_expected"`
	TotalObserved   int     `json:"total_observed"`

	ConfirmedCount int `json:"confirmed_count"`
	MitigatedCount int `json:"mitigated_count"`
	ReviewCount    int `json:"review_count"`

	ConfirmedDeviations []adjudicate.AdjudicatedDeviation `json:"confirmed_deviations"`
	MitigatedDeviations []adjudicate.AdjudicatedDeviation `json:"mitigated_deviations"`
	ReviewDeviations    []adjudicate.AdjudicatedDeviation `json:"review_deviations"`

	ReportText string    `json:"report_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// ComputeScore weighs deviations against the expected step count. Confirmed
// deviations carry a full penalty, review verdicts a quarter penalty, and
// mitigated deviations none. The score floors at zero and is rounded to four
// decimal places.
func ComputeScore(adjudicated []adjudicate.AdjudicatedDeviation, totalExpected int) float64 {
	if totalExpected == 0 {
		return 1.0
	}

	var confirmed, review int
	for _, dev := range adjudicated {
		switch dev.Verdict {
		case adjudicate.VerdictConfirmed:
			confirmed++
		case adjudicate.VerdictContextDependent:
			review++
		}
	}

	penalty := confirmedPenalty*float64(confirmed) + reviewPenalty*float64(review)
	score := math.Max(0, (float64(totalExpected)-penalty)/float64(totalExpected))
	return math.Round(score*10000) / 10000
}

// Builder assembles compliance reports. The clock is injectable so tests can
// pin the generated timestamp.
type Builder struct {
	now func() time.Time
}

type Option func(b *Builder)

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Input carries everything the builder needs for one run.
type Input struct {
	ProcedureRunID string
	ProcedureID    string
	ProcedureName  string
	Adjudicated    []adjudicate.AdjudicatedDeviation
	TotalExpected  int
	TotalObserved  int
}

// Build partitions deviations by verdict, scores the run, and renders the
// text report. Partition order within each verdict follows input order.
func (b *Builder) Build(in Input) *ComplianceReport {
	var confirmed, mitigated, review []adjudicate.AdjudicatedDeviation
	for _, dev := range in.Adjudicated {
		switch dev.Verdict {
		case adjudicate.VerdictConfirmed:
			confirmed = append(confirmed, dev)
		case adjudicate.VerdictMitigated:
			mitigated = append(mitigated, dev)
		default:
			review = append(review, dev)
		}
	}

	score := ComputeScore(in.Adjudicated, in.TotalExpected)
	createdAt := b.now().UTC()

	rpt := &ComplianceReport{
		ProcedureRunID:      in.ProcedureRunID,
		ProcedureID:         in.ProcedureID,
		ProcedureName:       in.ProcedureName,
		ComplianceScore:     score,
		TotalExpected:       in.TotalExpected,
		TotalObserved:       in.TotalObserved,
		ConfirmedCount:      len(confirmed),
		MitigatedCount:      len(mitigated),
		ReviewCount:         len(review),
		ConfirmedDeviations: confirmed,
		MitigatedDeviations: mitigated,
		ReviewDeviations:    review,
		CreatedAt:           createdAt,
	}
	rpt.ReportText = renderText(rpt, createdAt)
	return rpt
}

func renderText(rpt *ComplianceReport, createdAt time.Time) string {
	divider := strings.Repeat("=", 60)
	section := strings.Repeat("-", 60)

	lines := []string{
		divider,
		"POST-OPERATIVE COMPLIANCE REPORT",
		fmt.Sprintf("Procedure: %s", rpt.ProcedureName),
		fmt.Sprintf("Run ID: %s", rpt.ProcedureRunID),
		fmt.Sprintf("Generated: %s", createdAt.Format("2006-01-02 15:04 UTC")),
		fmt.Sprintf("Compliance Score: %.0f%%", rpt.ComplianceScore*100),
		divider,
		"",
		fmt.Sprintf("Steps expected: %d", rpt.TotalExpected),
		fmt.Sprintf("Steps observed: %d", rpt.TotalObserved),
		fmt.Sprintf("Deviations found: %d", rpt.ConfirmedCount+rpt.MitigatedCount+rpt.ReviewCount),
		fmt.Sprintf("  Confirmed: %d", rpt.ConfirmedCount),
		fmt.Sprintf("  Mitigated: %d", rpt.MitigatedCount),
		fmt.Sprintf("  Needs review: %d", rpt.ReviewCount),
		"",
	}

	appendSection := func(title string, devs []adjudicate.AdjudicatedDeviation) {
		if len(devs) == 0 {
			return
		}
		lines = append(lines, section, title, section)
		for _, dev := range devs {
			lines = append(lines, formatDeviationBlock(dev), "")
		}
	}

	appendSection("CONFIRMED DEVIATIONS", rpt.ConfirmedDeviations)
	appendSection("DEVIATIONS PENDING REVIEW", rpt.ReviewDeviations)
	appendSection("MITIGATED DEVIATIONS (no score penalty)", rpt.MitigatedDeviations)

	if rpt.ConfirmedCount+rpt.MitigatedCount+rpt.ReviewCount == 0 {
		lines = append(lines, "No deviations detected. Full compliance.")
	}

	lines = append(lines, divider)
	return strings.Join(lines, "\n")
}

func formatDeviationBlock(dev adjudicate.AdjudicatedDeviation) string {
	lines := []string{
		fmt.Sprintf("  [%s] %s", dev.Verdict.Label(), dev.NodeName),
		fmt.Sprintf("    Type: %s", dev.Type),
		fmt.Sprintf("    Phase: %s", dev.Phase),
		fmt.Sprintf("    Safety-critical: %t", dev.SafetyCritical),
	}
	if dev.EvidenceSummary != "" {
		summary := dev.EvidenceSummary
		if len(summary) > evidenceTruncateChars {
			summary = summary[:evidenceTruncateChars] + "..."
		}
		lines = append(lines, fmt.Sprintf("    Evidence: %s", summary))
	}
	if len(dev.Citations) > 0 {
		cited := dev.Citations
		if len(cited) > citationLimit {
			cited = cited[:citationLimit]
		}
		lines = append(lines, fmt.Sprintf("    Citations: %s", strings.Join(cited, ", ")))
	}
	return strings.Join(lines, "\n")
}
