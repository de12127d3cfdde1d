package adjudicate

import (
	"fmt"
	"strings"

	"debrief/internal/compare"
)

// stop-words stripped from step names before building ordering queries; the
// action verbs add noise when searching for sequencing evidence.
var orderingStopWords = []string{"clip ", "divide ", "cut ", "place ", "remove "}

// buildSearchQueries derives 1-2 literature queries for a deviation. Query
// shape depends on the deviation type: safety skips emphasize injury terms,
// omissions emphasize outcomes, ordering violations emphasize sequence.
func buildSearchQueries(dev compare.RawDeviation, procedureName string) []string {
	step := dev.NodeName

	switch dev.Type {
	case compare.DeviationSkippedSafety:
		return []string{
			fmt.Sprintf("%q injury complication risk", step),
			fmt.Sprintf("%q prevention adverse event", step),
		}
	case compare.DeviationMissing:
		return []string{
			fmt.Sprintf("%q omission complication %s", step, procedureName),
			fmt.Sprintf("without %q outcome risk", step),
		}
	case compare.DeviationOutOfOrder:
		terms := strings.ToLower(step)
		for _, word := range orderingStopWords {
			terms = strings.ReplaceAll(terms, word, "")
		}
		return []string{
			fmt.Sprintf("%q order sequence technique %s", terms, procedureName),
			fmt.Sprintf("%q timing before after", terms),
		}
	case compare.DeviationUnhandledComplication:
		return []string{
			fmt.Sprintf("%q uncontrolled complication outcome", step),
		}
	default:
		return []string{
			fmt.Sprintf("%q %s outcome risk", step, procedureName),
		}
	}
}
