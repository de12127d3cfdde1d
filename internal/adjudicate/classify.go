package adjudicate

import (
	"debrief/internal/compare"
	"debrief/internal/evidence"
)

// dominance marks which hypothesis a scored snippet leans toward.
type dominance string

const (
	dominantRisk    dominance = "risk"
	dominantSafe    dominance = "safe"
	dominantNeutral dominance = "neutral"
)

// scoredSnippet pairs a retrieved snippet with its classifier scores.
type scoredSnippet struct {
	evidence.Snippet
	RiskScore float64
	SafeScore float64
	Dominant  dominance
}

// dominantFor applies the dominance rule: a side wins only when it both
// beats the other side and clears 0.5 on its own.
func dominantFor(risk, safe float64) dominance {
	switch {
	case risk > safe && risk > 0.5:
		return dominantRisk
	case safe > risk && safe > 0.5:
		return dominantSafe
	default:
		return dominantNeutral
	}
}

// Classification thresholds. Safety-critical deviations need less evidence
// to confirm and more evidence to dismiss; the asymmetry is policy, not
// tuning.
const (
	safetyConfirmThreshold  = 0.55
	safetyMitigateThreshold = 0.30

	defaultConfirmThreshold  = 0.60
	defaultMitigateThreshold = 0.35

	// Citation-type counts are a secondary signal, capped so they cannot
	// dominate snippet evidence.
	countSignalCap = 2.0
)

// classifyVerdict turns scored snippets plus citation-type counts into a
// verdict. Pure domain logic: no I/O, no side effects.
func classifyVerdict(scored []scoredSnippet, supCount, conCount int, dev compare.RawDeviation) Verdict {
	if len(scored) == 0 {
		return precautionaryVerdict(dev)
	}

	var totalRisk, totalSafe float64
	for _, s := range scored {
		totalRisk += s.RiskScore
		totalSafe += s.SafeScore
	}

	if supCount+conCount > 0 {
		ratio := float64(supCount) / float64(supCount+conCount)
		totalRisk += ratio * countSignalCap
		totalSafe += (1 - ratio) * countSignalCap
	}

	total := totalRisk + totalSafe
	if total == 0 {
		return precautionaryVerdict(dev)
	}

	riskRatio := totalRisk / total

	if dev.SafetyCritical {
		switch {
		case riskRatio >= safetyConfirmThreshold:
			return VerdictConfirmed
		case riskRatio < safetyMitigateThreshold:
			return VerdictMitigated
		default:
			return VerdictContextDependent
		}
	}
	switch {
	case riskRatio >= defaultConfirmThreshold:
		return VerdictConfirmed
	case riskRatio < defaultMitigateThreshold:
		return VerdictMitigated
	default:
		return VerdictContextDependent
	}
}

// precautionaryVerdict is the fallback when evidence is absent: assume the
// worst for safety-critical steps, defer to a human otherwise.
func precautionaryVerdict(dev compare.RawDeviation) Verdict {
	if dev.SafetyCritical {
		return VerdictConfirmed
	}
	return VerdictContextDependent
}
