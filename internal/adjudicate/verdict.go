package adjudicate

import "debrief/internal/compare"

// Verdict is the adjudicated classification of a deviation. The set is
// closed; Label keeps unmapped values visible instead of defaulting.
type Verdict string

const (
	// VerdictConfirmed marks a deviation the evidence supports as
	// significant. Full score penalty.
	VerdictConfirmed Verdict = "confirmed"

	// VerdictMitigated marks a deviation the evidence shows to be
	// acceptable. No score penalty.
	VerdictMitigated Verdict = "mitigated"

	// VerdictContextDependent marks a deviation that needs human review.
	VerdictContextDependent Verdict = "context_dependent"
)

// Label renders a human-readable severity label for report output.
func (v Verdict) Label() string {
	switch v {
	case VerdictConfirmed:
		return "CONFIRMED"
	case VerdictMitigated:
		return "MITIGATED"
	case VerdictContextDependent:
		return "REVIEW NEEDED"
	default:
		return "UNMAPPED VERDICT (" + string(v) + ")"
	}
}

// AdjudicatedDeviation pairs a raw deviation with its verdict and the
// evidence behind it. Created once per raw deviation; never mutated.
type AdjudicatedDeviation struct {
	NodeID          string                `json:"node_id"`
	NodeName        string                `json:"node_name"`
	Phase           string                `json:"phase"`
	Type            compare.DeviationType `json:"deviation_type"`
	Verdict         Verdict               `json:"verdict"`
	EvidenceSummary string                `json:"evidence_summary"`
	Citations       []string              `json:"citations"`
	Mandatory       bool                  `json:"original_mandatory"`
	SafetyCritical  bool                  `json:"original_safety_critical"`
}
