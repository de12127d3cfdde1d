package compare

// DeviationType classifies one detected discrepancy between the observed
// timeline and the reference graph. The set is closed; labels map through
// Label so an unmapped value is visible instead of silently defaulting.
type DeviationType string

const (
	DeviationMissing                DeviationType = "missing"
	DeviationOutOfOrder             DeviationType = "out_of_order"
	DeviationSkippedSafety          DeviationType = "skipped_safety"
	DeviationUnhandledComplication  DeviationType = "unhandled_complication"
)

// Label renders a human-readable name for report output.
func (d DeviationType) Label() string {
	switch d {
	case DeviationMissing:
		return "Missing step"
	case DeviationOutOfOrder:
		return "Out-of-order step"
	case DeviationSkippedSafety:
		return "Skipped safety-critical step"
	case DeviationUnhandledComplication:
		return "Unhandled complication"
	default:
		return "Unmapped deviation (" + string(d) + ")"
	}
}

// Valid reports whether d is one of the known deviation types.
func (d DeviationType) Valid() bool {
	switch d {
	case DeviationMissing, DeviationOutOfOrder, DeviationSkippedSafety, DeviationUnhandledComplication:
		return true
	}
	return false
}

// RawDeviation is one detected discrepancy, prior to adjudication. Created by
// the engine and never mutated afterwards.
type RawDeviation struct {
	NodeID         string        `json:"node_id"`
	NodeName       string        `json:"node_name"`
	Phase          string        `json:"phase"`
	Type           DeviationType `json:"deviation_type"`
	Mandatory      bool          `json:"mandatory"`
	SafetyCritical bool          `json:"safety_critical"`
	Context        string        `json:"context"`
}
