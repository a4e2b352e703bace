package reliability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bissquit/incident-metrics/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for metric recalculation and weekly reports.
type Handler struct {
	recalculator *Recalculator
	reporter     *WeeklyReporter
	validator    *validator.Validate
	now          func() time.Time
}

// NewHandler creates a new reliability handler.
func NewHandler(recalculator *Recalculator, reporter *WeeklyReporter) *Handler {
	return &Handler{
		recalculator: recalculator,
		reporter:     reporter,
		validator:    validator.New(),
		now:          time.Now,
	}
}

// RegisterRoutes registers metrics and report routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/metrics/recalculate", h.Recalculate)
	r.Get("/reports/weeks", h.ListWeeks)
	r.Get("/reports/weekly", h.WeeklySummary)
}

// RecalculateRequest represents the request body for a recalculation run.
type RecalculateRequest struct {
	Year   *int `json:"year" validate:"omitempty,min=1970,max=9999"`
	DryRun bool `json:"dry_run"`
	Force  bool `json:"force"`
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrInvalidYear, Status: http.StatusBadRequest},
	{Error: ErrRecalculationInProgress, Status: http.StatusConflict},
	{Error: ErrMissingIncidentDate, Status: http.StatusUnprocessableEntity},
	{Error: ErrLoadIncidents, Status: http.StatusServiceUnavailable, Message: "incidents could not be loaded"},
}

// Recalculate handles POST /metrics/recalculate request.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	// Client disconnects must not abort a run halfway.
	ctx := context.WithoutCancel(r.Context())

	result, err := h.recalculator.Recalculate(ctx, Options{
		Year:   req.Year,
		DryRun: req.DryRun,
		Force:  req.Force,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// ListWeeks handles GET /reports/weeks request.
func (h *Handler) ListWeeks(w http.ResponseWriter, r *http.Request) {
	year, ok := h.parseYear(w, r)
	if !ok {
		return
	}

	weeks, err := h.reporter.Weeks(year)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, weeks)
}

// WeeklySummary handles GET /reports/weekly request.
func (h *Handler) WeeklySummary(w http.ResponseWriter, r *http.Request) {
	year, ok := h.parseYear(w, r)
	if !ok {
		return
	}

	summaries, err := h.reporter.Summary(r.Context(), year)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, summaries)
}

// parseYear reads the year query parameter, defaulting to the current year.
func (h *Handler) parseYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	y := r.URL.Query().Get("year")
	if y == "" {
		return h.now().Year(), true
	}

	year, err := strconv.Atoi(y)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "year must be an integer")
		return 0, false
	}
	if errors.Is(validateYear(year), ErrInvalidYear) {
		httputil.Error(w, http.StatusBadRequest, ErrInvalidYear.Error())
		return 0, false
	}
	return year, true
}
