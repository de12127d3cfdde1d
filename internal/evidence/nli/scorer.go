// Package nli implements the evidence.Scorer contract against a zero-shot
// NLI inference endpoint. The underlying model is a process-wide resource:
// it is initialized at most once, lazily, and is safe for concurrent
// read-only scoring afterwards.
package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	dErrors "debrief/pkg/domain-errors"
)

// MaxInputChars is the scorer's known context limit. Callers truncate
// snippet text to this length before scoring.
const MaxInputChars = 500

// Hypotheses the model scores each snippet against.
const (
	riskHypothesis = "Omitting or misordering this procedural step increases the risk of harm, injury, or complications."
	safeHypothesis = "This procedural step can be safely omitted, reordered, or varied without increasing risk."
)

// Scorer scores snippets via a remote zero-shot classification endpoint.
type Scorer struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger

	initOnce sync.Once
	initErr  error
}

type Option func(s *Scorer)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Scorer) {
		s.httpClient = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// NewScorer constructs a scorer for the given inference endpoint.
func NewScorer(endpoint string, opts ...Option) *Scorer {
	s := &Scorer{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ensureReady performs the one-time model warm-up. Initialization failure is
// sticky and surfaces as an unavailability error, never a crash.
func (s *Scorer) ensureReady(ctx context.Context) error {
	s.initOnce.Do(func() {
		if s.endpoint == "" {
			s.initErr = dErrors.New(dErrors.CodeUnavailable, "scorer endpoint not configured")
			return
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "warming up NLI scorer", "endpoint", s.endpoint)
		}
		// Score a short probe so the remote side loads its model now rather
		// than on the first real snippet.
		if _, _, err := s.classify(ctx, "warm-up probe"); err != nil {
			s.initErr = dErrors.Newf(dErrors.CodeUnavailable, "scorer initialization failed: %v", err)
		}
	})
	return s.initErr
}

// Score classifies text against the risk/safe hypotheses.
func (s *Scorer) Score(ctx context.Context, text string) (float64, float64, error) {
	if err := s.ensureReady(ctx); err != nil {
		return 0, 0, err
	}
	if len(text) > MaxInputChars {
		text = text[:MaxInputChars]
	}
	return s.classify(ctx, text)
}

type classifyRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"candidate_labels"`
}

type classifyResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

func (s *Scorer) classify(ctx context.Context, text string) (float64, float64, error) {
	body, err := json.Marshal(classifyRequest{
		Text:   text,
		Labels: []string{riskHypothesis, safeHypothesis},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("classify call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("classify call: unexpected status %s", resp.Status)
	}

	var parsed classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, 0, fmt.Errorf("decode classify response: %w", err)
	}

	var risk, safe float64
	for i, label := range parsed.Labels {
		if i >= len(parsed.Scores) {
			break
		}
		switch label {
		case riskHypothesis:
			risk = parsed.Scores[i]
		case safeHypothesis:
			safe = parsed.Scores[i]
		}
	}
	return risk, safe, nil
}
