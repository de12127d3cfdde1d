package adjudicate

import (
	"fmt"
	"sort"
	"strings"

	"debrief/internal/compare"
)

const (
	maxRiskQuotes    = 3
	maxSafeQuotes    = 2
	maxNeutralQuotes = 2
	maxCitations     = 7
	quoteLength      = 280
	titleLength      = 80
)

// buildEvidenceSummary renders a deterministic textual digest of the scored
// evidence: risk-dominant quotes first, then safety-dominant, with neutral
// and no-evidence fallbacks.
func buildEvidenceSummary(scored []scoredSnippet, supCount, conCount int, dev compare.RawDeviation) string {
	lines := []string{
		fmt.Sprintf("Evidence analysis for: %q (%s)", dev.NodeName, dev.Type),
		fmt.Sprintf("  Citation landscape: %d supporting, %d contrasting", supCount, conCount),
		fmt.Sprintf("  Snippets scored: %d", len(scored)),
		"",
	}

	riskItems := filterByDominance(scored, dominantRisk)
	safeItems := filterByDominance(scored, dominantSafe)

	sort.SliceStable(riskItems, func(i, j int) bool {
		return riskItems[i].RiskScore > riskItems[j].RiskScore
	})
	sort.SliceStable(safeItems, func(i, j int) bool {
		return safeItems[i].SafeScore > safeItems[j].SafeScore
	})

	if len(riskItems) > 0 {
		lines = append(lines, "Evidence this deviation is significant:")
		for _, item := range head(riskItems, maxRiskQuotes) {
			lines = append(lines,
				fmt.Sprintf("  - [confidence: %.0f%%] %q", item.RiskScore*100, truncate(item.Text, quoteLength)),
				fmt.Sprintf("    Source: %s (DOI: %s)", truncate(item.Title, titleLength), item.DocumentID),
			)
		}
	}

	if len(safeItems) > 0 {
		lines = append(lines, "", "Evidence this deviation may be acceptable:")
		for _, item := range head(safeItems, maxSafeQuotes) {
			lines = append(lines,
				fmt.Sprintf("  - [confidence: %.0f%%] %q", item.SafeScore*100, truncate(item.Text, quoteLength)),
				fmt.Sprintf("    Source: %s (DOI: %s)", truncate(item.Title, titleLength), item.DocumentID),
			)
		}
	}

	if len(riskItems) == 0 && len(safeItems) == 0 {
		neutral := filterByDominance(scored, dominantNeutral)
		if len(neutral) > 0 {
			lines = append(lines, "Snippets found but the classifier was inconclusive:")
			for _, item := range head(neutral, maxNeutralQuotes) {
				lines = append(lines, fmt.Sprintf("  - %q", truncate(item.Text, 200)))
			}
		}
	}

	if len(scored) == 0 {
		lines = append(lines, "No relevant citation snippets found for this deviation.")
	}

	return strings.Join(lines, "\n")
}

// extractCitations builds the capped citation list: the count summary first,
// then source titles deduplicated by document id.
func extractCitations(scored []scoredSnippet, supCount, conCount int) []string {
	citations := []string{
		fmt.Sprintf("[evidence: %d supporting, %d contrasting]", supCount, conCount),
	}
	seen := make(map[string]struct{})
	for _, item := range scored {
		if len(citations) >= maxCitations {
			break
		}
		if item.DocumentID == "" {
			continue
		}
		if _, dup := seen[item.DocumentID]; dup {
			continue
		}
		seen[item.DocumentID] = struct{}{}
		citations = append(citations, fmt.Sprintf("%s (DOI: %s)", truncate(item.Title, titleLength), item.DocumentID))
	}
	return citations
}

func filterByDominance(scored []scoredSnippet, d dominance) []scoredSnippet {
	var out []scoredSnippet
	for _, s := range scored {
		if s.Dominant == d {
			out = append(out, s)
		}
	}
	return out
}

func head(items []scoredSnippet, n int) []scoredSnippet {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
