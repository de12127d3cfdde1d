// Package evidence defines the collaborator contracts the adjudication
// engine consumes: a literature snippet source and a risk scorer. Concrete
// implementations (HTTP clients, cached wrappers, test stubs) satisfy these
// interfaces structurally.
package evidence

//go:generate mockgen -source=evidence.go -destination=mocks/mocks.go -package=mocks Source,Scorer

import "context"

// CitationType values the snippet source understands.
const (
	CitationSupporting  = "supporting"
	CitationContrasting = "contrasting"
	CitationMentioning  = "mentioning"
)

// Snippet is one retrieved literature excerpt with its provenance.
type Snippet struct {
	Text         string `json:"text"`
	DocumentID   string `json:"document_id"`
	Title        string `json:"title"`
	Section      string `json:"section,omitempty"`
	CitationType string `json:"citation_type,omitempty"`
}

// Source retrieves ranked literature snippets for a query. Implementations
// must return an empty result, not an error, once their internal retry
// policy is exhausted; errors are reserved for caller mistakes.
type Source interface {
	// Search returns up to limit snippets matching the query.
	Search(ctx context.Context, query string, limit int) ([]Snippet, error)

	// CountByType returns how many citations of the given type match the
	// query.
	CountByType(ctx context.Context, query string, citationType string) (int, error)

	// Configured reports whether a credential is available. When false the
	// aggregator skips retrieval entirely and falls back to review verdicts.
	Configured() bool
}

// Scorer classifies one snippet against risk/safety hypotheses. Safe for
// concurrent use; callers truncate input to the scorer's context limit.
type Scorer interface {
	Score(ctx context.Context, text string) (risk float64, safe float64, err error)
}
