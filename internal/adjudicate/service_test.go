package adjudicate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"debrief/internal/compare"
	"debrief/internal/evidence"
	"debrief/internal/evidence/mocks"
)

// =============================================================================
// Adjudication Service Test Suite
// =============================================================================
// Justification for unit tests: the service owns the evidence pipeline
// orchestration (fan-out, dedup, degradation). Tests verify verdict outcomes
// for canonical evidence shapes, ordering guarantees, and failure handling
// without any network dependency.

type AdjudicateServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	mockSource *mocks.MockSource
	mockScorer *mocks.MockScorer
	service    *Service
}

func TestAdjudicateServiceSuite(t *testing.T) {
	suite.Run(t, new(AdjudicateServiceSuite))
}

func (s *AdjudicateServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockSource = mocks.NewMockSource(s.ctrl)
	s.mockScorer = mocks.NewMockScorer(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.mockSource, s.mockScorer, WithLogger(logger), WithWorkers(2))
}

func (s *AdjudicateServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func safetyDeviation() compare.RawDeviation {
	return compare.RawDeviation{
		NodeID:         "clip_cystic_duct",
		NodeName:       "Clip cystic duct",
		Phase:          "dissection",
		Type:           compare.DeviationSkippedSafety,
		Mandatory:      true,
		SafetyCritical: true,
		Context:        `Mandatory step "Clip cystic duct" was not observed during the procedure.`,
	}
}

func orderingDeviation() compare.RawDeviation {
	return compare.RawDeviation{
		NodeID:   "divide_duct",
		NodeName: "Divide cystic duct",
		Phase:    "dissection",
		Type:     compare.DeviationOutOfOrder,
		Context:  `"Divide cystic duct" was observed before "Clip cystic duct", violating expected sequential order.`,
	}
}

// =============================================================================
// Empty Input and Degraded Mode
// =============================================================================

func (s *AdjudicateServiceSuite) TestAdjudicateEmptyInput() {
	result, err := s.service.Adjudicate(context.Background(), nil, "cholecystectomy")
	s.NoError(err)
	s.Empty(result)
}

func (s *AdjudicateServiceSuite) TestAdjudicateNoCredential() {
	// No Search, CountByType, or Score expectations: any network attempt
	// fails the test via the mock controller.
	s.mockSource.EXPECT().Configured().Return(false)

	deviations := []compare.RawDeviation{safetyDeviation(), orderingDeviation()}
	result, err := s.service.Adjudicate(context.Background(), deviations, "cholecystectomy")
	s.NoError(err)
	s.Len(result, 2)

	for i, adj := range result {
		s.Equal(deviations[i].NodeID, adj.NodeID)
		s.Equal(deviations[i].Type, adj.Type)
		s.Equal(VerdictContextDependent, adj.Verdict)
		s.Contains(adj.EvidenceSummary, "manual review")
		s.Empty(adj.Citations)
	}
}

// =============================================================================
// Precautionary Fallback (Zero Evidence)
// =============================================================================

func (s *AdjudicateServiceSuite) TestSafetyCriticalWithNoEvidenceIsConfirmed() {
	s.mockSource.EXPECT().Configured().Return(true)
	s.mockSource.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil).AnyTimes()
	s.mockSource.EXPECT().CountByType(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(0, nil).AnyTimes()

	result, err := s.service.Adjudicate(context.Background(),
		[]compare.RawDeviation{safetyDeviation()}, "cholecystectomy")
	s.NoError(err)
	s.Require().Len(result, 1)
	s.Equal(VerdictConfirmed, result[0].Verdict)
	s.Contains(result[0].EvidenceSummary, "No relevant citation snippets")
}

func (s *AdjudicateServiceSuite) TestNonSafetyWithNoEvidenceNeedsReview() {
	s.mockSource.EXPECT().Configured().Return(true)
	s.mockSource.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil).AnyTimes()
	s.mockSource.EXPECT().CountByType(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(0, nil).AnyTimes()

	result, err := s.service.Adjudicate(context.Background(),
		[]compare.RawDeviation{orderingDeviation()}, "cholecystectomy")
	s.NoError(err)
	s.Require().Len(result, 1)
	s.Equal(VerdictContextDependent, result[0].Verdict)
}

// =============================================================================
// Evidence-Driven Verdicts
// =============================================================================

func (s *AdjudicateServiceSuite) TestRiskDominantEvidenceConfirms() {
	s.mockSource.EXPECT().Configured().Return(true)
	s.mockSource.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, query string, _ int) ([]evidence.Snippet, error) {
			return []evidence.Snippet{{
				Text:       "Failure to secure the duct is strongly associated with bile leak and reoperation in published series.",
				DocumentID: "10.1000/risk-study",
				Title:      "Outcomes of duct control technique",
			}}, nil
		}).AnyTimes()
	s.mockSource.EXPECT().CountByType(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(0, nil).AnyTimes()
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any()).
		Return(0.9, 0.1, nil).AnyTimes()

	result, err := s.service.Adjudicate(context.Background(),
		[]compare.RawDeviation{orderingDeviation()}, "cholecystectomy")
	s.NoError(err)
	s.Require().Len(result, 1)
	s.Equal(VerdictConfirmed, result[0].Verdict)
	s.Contains(result[0].EvidenceSummary, "bile leak")
	s.NotEmpty(result[0].Citations)
}

func (s *AdjudicateServiceSuite) TestSafeDominantEvidenceMitigates() {
	s.mockSource.EXPECT().Configured().Return(true)
	s.mockSource.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]evidence.Snippet{{
			Text:       "Variation in step ordering showed no difference in complication rates across the randomized cohort.",
			DocumentID: "10.1000/safe-study",
			Title:      "Sequence variation and outcomes",
		}}, nil).AnyTimes()
	s.mockSource.EXPECT().CountByType(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(0, nil).AnyTimes()
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any()).
		Return(0.1, 0.9, nil).AnyTimes()

	result, err := s.service.Adjudicate(context.Background(),
		[]compare.RawDeviation{orderingDeviation()}, "cholecystectomy")
	s.NoError(err)
	s.Require().Len(result, 1)
	s.Equal(VerdictMitigated, result[0].Verdict)
}

// =============================================================================
// Determinism and Ordering
// =============================================================================

func (s *AdjudicateServiceSuite) TestAdjudicateIsDeterministic() {
	searchFn := func(_ context.Context, query string, _ int) ([]evidence.Snippet, error) {
		return []evidence.Snippet{{
			Text:       "Deterministic snippet about complication risk for query " + query + " with sufficient length.",
			DocumentID: "10.1000/det",
			Title:      "Deterministic study",
		}}, nil
	}
	s.mockSource.EXPECT().Configured().Return(true).Times(2)
	s.mockSource.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(searchFn).AnyTimes()
	s.mockSource.EXPECT().CountByType(gomock.Any(), gomock.Any(), evidence.CitationSupporting).
		Return(3, nil).AnyTimes()
	s.mockSource.EXPECT().CountByType(gomock.Any(), gomock.Any(), evidence.CitationContrasting).
		Return(1, nil).AnyTimes()
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any()).
		Return(0.7, 0.3, nil).AnyTimes()

	deviations := []compare.RawDeviation{safetyDeviation(), orderingDeviation()}

	first, err := s.service.Adjudicate(context.Background(), deviations, "cholecystectomy")
	s.NoError(err)
	second, err := s.service.Adjudicate(context.Background(), deviations, "cholecystectomy")
	s.NoError(err)
	s.Equal(first, second)
}

func (s *AdjudicateServiceSuite) TestResultsPreserveInputOrder() {
	s.mockSource.EXPECT().Configured().Return(true)
	s.mockSource.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil).AnyTimes()
	s.mockSource.EXPECT().CountByType(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(0, nil).AnyTimes()

	var deviations []compare.RawDeviation
	for i := 0; i < 10; i++ {
		deviations = append(deviations, compare.RawDeviation{
			NodeID:   fmt.Sprintf("step_%02d", i),
			NodeName: fmt.Sprintf("Step %02d", i),
			Type:     compare.DeviationMissing,
		})
	}

	result, err := s.service.Adjudicate(context.Background(), deviations, "cholecystectomy")
	s.NoError(err)
	s.Require().Len(result, 10)
	for i, adj := range result {
		s.Equal(deviations[i].NodeID, adj.NodeID)
	}
}

// =============================================================================
// Failure Handling
// =============================================================================

func (s *AdjudicateServiceSuite) TestSearchFailureDegradesToFallback() {
	s.mockSource.EXPECT().Configured().Return(true)
	s.mockSource.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("upstream unavailable")).AnyTimes()
	s.mockSource.EXPECT().CountByType(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(0, fmt.Errorf("upstream unavailable")).AnyTimes()

	result, err := s.service.Adjudicate(context.Background(),
		[]compare.RawDeviation{safetyDeviation()}, "cholecystectomy")
	s.NoError(err)
	s.Require().Len(result, 1)
	s.Equal(VerdictConfirmed, result[0].Verdict)
}

func (s *AdjudicateServiceSuite) TestScoringFailureExcludesSnippet() {
	s.mockSource.EXPECT().Configured().Return(true)
	s.mockSource.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]evidence.Snippet{{
			Text:       "A snippet whose classification request will fail at the scorer.",
			DocumentID: "10.1000/unscorable",
			Title:      "Unscorable study",
		}}, nil).AnyTimes()
	s.mockSource.EXPECT().CountByType(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(0, nil).AnyTimes()
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any()).
		Return(0.0, 0.0, fmt.Errorf("classifier overloaded")).AnyTimes()

	result, err := s.service.Adjudicate(context.Background(),
		[]compare.RawDeviation{orderingDeviation()}, "cholecystectomy")
	s.NoError(err)
	s.Require().Len(result, 1)
	s.Equal(VerdictContextDependent, result[0].Verdict)
	s.Contains(result[0].EvidenceSummary, "No relevant citation snippets")
}

func (s *AdjudicateServiceSuite) TestCancelledContextFailsBatch() {
	s.mockSource.EXPECT().Configured().Return(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.service.Adjudicate(ctx,
		[]compare.RawDeviation{safetyDeviation(), orderingDeviation()}, "cholecystectomy")
	s.Error(err)
	s.Nil(result)
}

// =============================================================================
// Snippet Deduplication
// =============================================================================

func (s *AdjudicateServiceSuite) TestDuplicateSnippetsCountedOnce() {
	// Both queries for a skipped_safety deviation return the same snippet;
	// the summary must quote it once.
	snippet := evidence.Snippet{
		Text:       "Omitting the safety step carries a documented risk of major vascular injury.",
		DocumentID: "10.1000/dup",
		Title:      "Safety step omission outcomes",
	}
	s.mockSource.EXPECT().Configured().Return(true)
	s.mockSource.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]evidence.Snippet{snippet}, nil).Times(2)
	s.mockSource.EXPECT().CountByType(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(0, nil).AnyTimes()
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any()).
		Return(0.8, 0.2, nil).Times(1)

	result, err := s.service.Adjudicate(context.Background(),
		[]compare.RawDeviation{safetyDeviation()}, "cholecystectomy")
	s.NoError(err)
	s.Require().Len(result, 1)
	s.Equal(VerdictConfirmed, result[0].Verdict)
}
