package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	dErrors "debrief/pkg/domain-errors"
	"debrief/pkg/testutil"

	"debrief/internal/report"
	"debrief/internal/run"
	"debrief/internal/run/handler/mocks"
)

// =============================================================================
// Run Handler Test Suite
// =============================================================================
// Justification for unit tests: the handler owns routing, status mapping,
// and error redaction. Tests verify each route against a mocked service
// without touching stores or the evidence pipeline.

type HandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	router      chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(s.mockService, WithLogger(logger))
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, path string) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.NewRequest(s.T(), method, path))
}

func (s *HandlerSuite) doBody(method, path, body string) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), method, path, body))
}

func (s *HandlerSuite) TestAnalyze() {
	s.Run("returns the report", func() {
		s.mockService.EXPECT().Analyze(gomock.Any(), "run-1").
			Return(&report.ComplianceReport{
				ProcedureRunID:  "run-1",
				ComplianceScore: 0.775,
			}, nil)

		rec := s.do(http.MethodPost, "/runs/run-1/analyze")
		s.Equal(http.StatusOK, rec.Code)

		var got report.ComplianceReport
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
		s.Equal("run-1", got.ProcedureRunID)
		s.Equal(0.775, got.ComplianceScore)
	})

	s.Run("unknown run maps to 404", func() {
		s.mockService.EXPECT().Analyze(gomock.Any(), "missing").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "procedure run missing not found"))

		rec := s.do(http.MethodPost, "/runs/missing/analyze")
		s.Equal(http.StatusNotFound, rec.Code)
		s.Contains(rec.Body.String(), "not_found")
	})

	s.Run("internal failures are redacted", func() {
		s.mockService.EXPECT().Analyze(gomock.Any(), "run-1").
			Return(nil, dErrors.New(dErrors.CodeInternal, "pq: connection refused"))

		rec := s.do(http.MethodPost, "/runs/run-1/analyze")
		s.Equal(http.StatusInternalServerError, rec.Code)
		s.NotContains(rec.Body.String(), "connection refused")
	})
}

func (s *HandlerSuite) TestGetReport() {
	s.Run("returns stored report", func() {
		s.mockService.EXPECT().GetReport(gomock.Any(), "run-1").
			Return(&report.ComplianceReport{ProcedureRunID: "run-1", ConfirmedCount: 2}, nil)

		rec := s.do(http.MethodGet, "/reports/run-1")
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"confirmed_count":2`)
	})

	s.Run("missing report maps to 404", func() {
		s.mockService.EXPECT().GetReport(gomock.Any(), "run-1").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "report not found, run analysis first"))

		rec := s.do(http.MethodGet, "/reports/run-1")
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerSuite) TestGetReportText() {
	s.mockService.EXPECT().GetReportText(gomock.Any(), "run-1").
		Return("POST-OPERATIVE COMPLIANCE REPORT", nil)

	rec := s.do(http.MethodGet, "/reports/run-1/text")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get("Content-Type"), "text/plain")
	s.Contains(rec.Body.String(), "POST-OPERATIVE COMPLIANCE REPORT")
}

func (s *HandlerSuite) TestSeedDemo() {
	s.Run("empty body uses defaults", func() {
		s.mockService.EXPECT().SeedDemo(gomock.Any(), "").
			Return(&run.SeedDemoResult{ProcedureRunID: "run-9", EventCount: 19}, nil)

		rec := s.do(http.MethodPost, "/mock")
		s.Equal(http.StatusCreated, rec.Code)
		s.Contains(rec.Body.String(), `"status":"created"`)
		s.Contains(rec.Body.String(), `"event_count":19`)
	})

	s.Run("passes surgeon name through", func() {
		s.mockService.EXPECT().SeedDemo(gomock.Any(), "Dr. Example").
			Return(&run.SeedDemoResult{ProcedureRunID: "run-10", EventCount: 19}, nil)

		rec := s.doBody(http.MethodPost, "/mock", `{"surgeon_name":"Dr. Example"}`)
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("rejects malformed body", func() {
		rec := s.doBody(http.MethodPost, "/mock", `{not json`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("rejects oversized surgeon name", func() {
		body := `{"surgeon_name":"` + strings.Repeat("x", 200) + `"}`
		rec := s.doBody(http.MethodPost, "/mock", body)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}
