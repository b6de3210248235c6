package transport

import (
	"errors"
	"net/http"
	"time"

	"caixa-pos/internal/middleware"
	"caixa-pos/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const reportDateLayout = "2006-01-02"

// ReportHandler handles HTTP requests for sales reports
type ReportHandler struct {
	reportService service.ReportService
	logger        *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// RegisterRoutes registers all report routes. Reports are manager-only.
func (h *ReportHandler) RegisterRoutes(r chi.Router, authMiddleware, managerOnly func(http.Handler) http.Handler) {
	r.Route("/api/reports", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(managerOnly)

		r.Get("/daily", h.Daily)
		r.Get("/period", h.Period)
	})
}

// Daily builds the report for one calendar day. The date query parameter
// defaults to today when absent.
func (h *ReportHandler) Daily(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(reportDateLayout, raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
			return
		}
		day = parsed
	}

	report, err := h.reportService.Daily(r.Context(), day)
	if err != nil {
		h.logger.Error("Daily report failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, report)
}

// Period builds the report for an inclusive date range.
func (h *ReportHandler) Period(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(reportDateLayout, r.URL.Query().Get("from"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "from must be in YYYY-MM-DD format")
		return
	}
	to, err := time.Parse(reportDateLayout, r.URL.Query().Get("to"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "to must be in YYYY-MM-DD format")
		return
	}

	report, err := h.reportService.Period(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPeriod) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Period report failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, report)
}
