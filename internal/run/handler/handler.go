// Package handler exposes the analysis pipeline over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "debrief/pkg/domain-errors"
	"debrief/pkg/platform/httputil"

	"debrief/internal/platform/middleware"
	"debrief/internal/report"
	"debrief/internal/run"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the interface for run analysis operations.
type Service interface {
	Analyze(ctx context.Context, runID string) (*report.ComplianceReport, error)
	GetReport(ctx context.Context, runID string) (*report.ComplianceReport, error)
	GetReportText(ctx context.Context, runID string) (string, error)
	SeedDemo(ctx context.Context, surgeonName string) (*run.SeedDemoResult, error)
}

// Handler handles run analysis endpoints.
type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
	apiKeyHash   string
}

type Option func(h *Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithJWTValidator protects report reads with bearer auth.
func WithJWTValidator(validator middleware.JWTValidator) Option {
	return func(h *Handler) {
		h.jwtValidator = validator
	}
}

// WithAPIKeyHash protects mutating routes with an API key check. Empty hash
// disables the check.
func WithAPIKeyHash(hash string) Option {
	return func(h *Handler) {
		h.apiKeyHash = hash
	}
}

func New(service Service, opts ...Option) *Handler {
	h := &Handler{service: service}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the run routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.apiKeyHash != "" {
			r.Use(middleware.RequireAPIKey(h.apiKeyHash, h.logger))
		}
		r.Post("/runs/{runID}/analyze", h.handleAnalyze)
		r.Post("/mock", h.handleSeedDemo)
	})

	r.Group(func(r chi.Router) {
		if h.jwtValidator != nil {
			r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		}
		r.Get("/reports/{runID}", h.handleGetReport)
		r.Get("/reports/{runID}/text", h.handleGetReportText)
	})
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "run id is required"))
		return
	}

	rpt, err := h.service.Analyze(ctx, runID)
	if err != nil {
		h.writeServiceError(w, r, "analysis failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rpt)
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "runID")

	rpt, err := h.service.GetReport(ctx, runID)
	if err != nil {
		h.writeServiceError(w, r, "report fetch failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rpt)
}

func (h *Handler) handleGetReportText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "runID")

	text, err := h.service.GetReportText(ctx, runID)
	if err != nil {
		h.writeServiceError(w, r, "report fetch failed", err)
		return
	}
	httputil.WriteText(w, http.StatusOK, text)
}

type seedDemoRequest struct {
	SurgeonName string `json:"surgeon_name"`
}

func (r *seedDemoRequest) Validate() error {
	if len(r.SurgeonName) > 120 {
		return dErrors.New(dErrors.CodeValidation, "surgeon name exceeds 120 characters")
	}
	return nil
}

type seedDemoResponse struct {
	Status string `json:"status"`
	*run.SeedDemoResult
}

func (h *Handler) handleSeedDemo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	// Body is optional; an empty body seeds with defaults.
	req, ok := httputil.DecodeAndPrepare[seedDemoRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.SeedDemo(ctx, req.SurgeonName)
	if err != nil {
		h.writeServiceError(w, r, "demo seed failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, seedDemoResponse{
		Status:         "created",
		SeedDemoResult: result,
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if dErrors.Is(err, dErrors.CodeNotFound) || dErrors.Is(err, dErrors.CodeBadRequest) || dErrors.Is(err, dErrors.CodeValidation) {
		if h.logger != nil {
			h.logger.WarnContext(ctx, msg,
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	if h.logger != nil {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
}
