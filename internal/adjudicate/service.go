package adjudicate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"debrief/internal/adjudicate/metrics"
	"debrief/internal/compare"
	"debrief/internal/evidence"
	"debrief/internal/evidence/nli"

	"log/slog"
)

const (
	snippetLimit     = 5
	defaultWorkers   = 4
	perCallTimeout   = 20 * time.Second
	dedupPrefixChars = 50
)

// Service adjudicates raw deviations against literature evidence. Each
// deviation is independent; the service fans out up to its worker limit and
// reassembles results in input order.
type Service struct {
	source  evidence.Source
	scorer  evidence.Scorer
	logger  *slog.Logger
	metrics *metrics.Metrics
	workers int
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

// WithWorkers bounds concurrent per-deviation adjudication.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewService constructs the adjudication service.
func NewService(source evidence.Source, scorer evidence.Scorer, opts ...Option) *Service {
	s := &Service{
		source:  source,
		scorer:  scorer,
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Adjudicate classifies every deviation. The returned slice matches the
// input order. On caller cancellation the whole batch fails; no partial
// result is returned.
func (s *Service) Adjudicate(ctx context.Context, deviations []compare.RawDeviation, procedureName string) ([]AdjudicatedDeviation, error) {
	if len(deviations) == 0 {
		return []AdjudicatedDeviation{}, nil
	}

	// Credential-level failure is decided once per run, before any network
	// activity, not rediscovered per deviation.
	if !s.source.Configured() {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "no evidence source credential - marking all deviations for review",
				"deviations", len(deviations),
			)
		}
		results := make([]AdjudicatedDeviation, len(deviations))
		for i, dev := range deviations {
			results[i] = s.newAdjudicated(dev, VerdictContextDependent,
				"Evidence source credential not configured; deviation requires manual review.", nil)
		}
		return results, nil
	}

	results := make([]AdjudicatedDeviation, len(deviations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, dev := range deviations {
		g.Go(func() error {
			adjudicated, err := s.adjudicateOne(gctx, dev, procedureName)
			if err != nil {
				return err
			}
			results[i] = adjudicated
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("adjudication batch failed: %w", err)
	}

	for _, r := range results {
		s.metrics.IncrementVerdict(string(r.Verdict), string(r.Type))
	}
	return results, nil
}

// adjudicateOne runs the full evidence pipeline for a single deviation.
// Every failure mode except cancellation degrades toward the precautionary
// fallback rather than erroring.
func (s *Service) adjudicateOne(ctx context.Context, dev compare.RawDeviation, procedureName string) (AdjudicatedDeviation, error) {
	queries := buildSearchQueries(dev, procedureName)

	snippets, err := s.collectSnippets(ctx, queries)
	if err != nil {
		return AdjudicatedDeviation{}, err
	}
	s.metrics.ObserveSnippetCount(len(snippets))

	scored, err := s.scoreSnippets(ctx, snippets)
	if err != nil {
		return AdjudicatedDeviation{}, err
	}

	supCount := s.countByType(ctx, queries[0], evidence.CitationSupporting)
	conCount := s.countByType(ctx, queries[0], evidence.CitationContrasting)

	if err := ctx.Err(); err != nil {
		return AdjudicatedDeviation{}, err
	}

	verdict := classifyVerdict(scored, supCount, conCount, dev)
	summary := buildEvidenceSummary(scored, supCount, conCount, dev)
	citations := extractCitations(scored, supCount, conCount)

	return s.newAdjudicated(dev, verdict, summary, citations), nil
}

// collectSnippets runs every query and deduplicates results by document id
// plus snippet prefix, preserving retrieval order. A failed search counts as
// an empty result.
func (s *Service) collectSnippets(ctx context.Context, queries []string) ([]evidence.Snippet, error) {
	var unique []evidence.Snippet
	seen := make(map[string]struct{})

	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
		start := time.Now()
		snippets, err := s.source.Search(callCtx, query, snippetLimit)
		s.metrics.ObserveEvidenceLatency("search", time.Since(start))
		cancel()

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if s.logger != nil {
				s.logger.WarnContext(ctx, "evidence search failed, treating as empty",
					"query", query,
					"error", err,
				)
			}
			continue
		}

		for _, snippet := range snippets {
			key := snippet.DocumentID + ":" + truncate(snippet.Text, dedupPrefixChars)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			unique = append(unique, snippet)
		}
	}
	return unique, nil
}

// scoreSnippets classifies each snippet. A snippet whose scoring fails is
// excluded; if all fail the caller falls through to the zero-total fallback.
func (s *Service) scoreSnippets(ctx context.Context, snippets []evidence.Snippet) ([]scoredSnippet, error) {
	var scored []scoredSnippet
	for _, snippet := range snippets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := truncate(snippet.Text, nli.MaxInputChars)
		start := time.Now()
		risk, safe, err := s.scorer.Score(ctx, text)
		s.metrics.ObserveEvidenceLatency("score", time.Since(start))

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if s.logger != nil {
				s.logger.WarnContext(ctx, "snippet scoring failed, excluding snippet",
					"document_id", snippet.DocumentID,
					"error", err,
				)
			}
			continue
		}

		scored = append(scored, scoredSnippet{
			Snippet:   snippet,
			RiskScore: risk,
			SafeScore: safe,
			Dominant:  dominantFor(risk, safe),
		})
	}
	return scored, nil
}

// countByType fetches the citation-type count for the primary query,
// degrading to zero on any failure.
func (s *Service) countByType(ctx context.Context, query, citationType string) int {
	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	start := time.Now()
	count, err := s.source.CountByType(callCtx, query, citationType)
	s.metrics.ObserveEvidenceLatency("count", time.Since(start))

	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "citation count failed, treating as zero",
				"citation_type", citationType,
				"error", err,
			)
		}
		return 0
	}
	return count
}

func (s *Service) newAdjudicated(dev compare.RawDeviation, verdict Verdict, summary string, citations []string) AdjudicatedDeviation {
	if citations == nil {
		citations = []string{}
	}
	return AdjudicatedDeviation{
		NodeID:          dev.NodeID,
		NodeName:        dev.NodeName,
		Phase:           dev.Phase,
		Type:            dev.Type,
		Verdict:         verdict,
		EvidenceSummary: summary,
		Citations:       citations,
		Mandatory:       dev.Mandatory,
		SafetyCritical:  dev.SafetyCritical,
	}
}
