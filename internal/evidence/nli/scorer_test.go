package nli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "debrief/pkg/domain-errors"
)

func TestScore(t *testing.T) {
	var warmups atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if strings.Contains(req.Text, "warm-up") {
			warmups.Add(1)
		}
		require.Len(t, req.Labels, 2)
		_ = json.NewEncoder(w).Encode(classifyResponse{
			Labels: []string{req.Labels[1], req.Labels[0]},
			Scores: []float64{0.2, 0.8},
		})
	}))
	defer srv.Close()

	scorer := NewScorer(srv.URL)

	risk, safe, err := scorer.Score(context.Background(), "snippet text")
	require.NoError(t, err)
	// Scores follow label identity, not response position.
	assert.InDelta(t, 0.8, risk, 1e-9)
	assert.InDelta(t, 0.2, safe, 1e-9)

	_, _, err = scorer.Score(context.Background(), "another")
	require.NoError(t, err)
	assert.Equal(t, int32(1), warmups.Load(), "warm-up must run exactly once")
}

func TestScore_TruncatesLongInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Text), MaxInputChars)
		_ = json.NewEncoder(w).Encode(classifyResponse{})
	}))
	defer srv.Close()

	scorer := NewScorer(srv.URL)
	_, _, err := scorer.Score(context.Background(), strings.Repeat("x", 5000))
	require.NoError(t, err)
}

func TestScore_NoEndpoint(t *testing.T) {
	scorer := NewScorer("")
	_, _, err := scorer.Score(context.Background(), "text")
	require.Error(t, err)

	var domainErr *dErrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, dErrors.CodeUnavailable, domainErr.Code)
}

func TestScore_InitFailureIsSticky(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close() // endpoint unreachable from the start

	scorer := NewScorer(srv.URL)
	_, _, first := scorer.Score(context.Background(), "text")
	require.Error(t, first)

	_, _, second := scorer.Score(context.Background(), "text")
	require.Error(t, second)
	assert.Equal(t, first.Error(), second.Error())
}
