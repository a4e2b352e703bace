package incidents

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/bissquit/incident-metrics/internal/domain"
	"github.com/bissquit/incident-metrics/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Pagination constants.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Handler handles HTTP requests for incident intake.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers incident routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.Post("/", h.CreateIncident)
		r.Get("/{id}", h.GetIncident)
		r.Patch("/{id}", h.UpdateIncident)
	})
}

// CreateIncidentRequest represents the request body for creating an incident.
type CreateIncidentRequest struct {
	Title          string     `json:"title" validate:"max=500"`
	IncidentDate   time.Time  `json:"incident_date" validate:"required"`
	StopBleedingAt *time.Time `json:"stop_bleeding_at"`
	FundStatus     *string    `json:"fund_status" validate:"omitempty,oneof='Non fundLoss' 'Confirmed loss' 'Potential recovery'"`
	Severity       string     `json:"severity" validate:"required,oneof=P1 P2 P3 P4 G X1 X2 X3 X4 'Non Incident'"`
	Status         string     `json:"incident_status" validate:"omitempty,oneof=Open 'In progress' Finalization Completed"`
	Classification string     `json:"classification" validate:"omitempty,oneof=Incident Issue"`
}

// ToInput converts the request to service input.
func (r *CreateIncidentRequest) ToInput() CreateIncidentInput {
	input := CreateIncidentInput{
		Title:          r.Title,
		IncidentDate:   r.IncidentDate,
		StopBleedingAt: r.StopBleedingAt,
		Severity:       domain.Severity(r.Severity),
		Status:         domain.IncidentStatus(r.Status),
		Classification: domain.Classification(r.Classification),
	}
	if r.FundStatus != nil {
		fs := domain.FundStatus(*r.FundStatus)
		input.FundStatus = &fs
	}
	return input
}

// UpdateIncidentRequest represents the request body for updating an incident.
// Explicit JSON null clears stop_bleeding_at and fund_status.
type UpdateIncidentRequest struct {
	Title          *string         `json:"title" validate:"omitempty,max=500"`
	IncidentDate   *time.Time      `json:"incident_date"`
	StopBleedingAt json.RawMessage `json:"stop_bleeding_at"`
	FundStatus     json.RawMessage `json:"fund_status"`
	Severity       *string         `json:"severity" validate:"omitempty,oneof=P1 P2 P3 P4 G X1 X2 X3 X4 'Non Incident'"`
	Status         *string         `json:"incident_status" validate:"omitempty,oneof=Open 'In progress' Finalization Completed"`
	Classification *string         `json:"classification" validate:"omitempty,oneof=Incident Issue"`
}

// ToInput converts the request to service input.
func (r *UpdateIncidentRequest) ToInput() (UpdateIncidentInput, error) {
	input := UpdateIncidentInput{
		Title:        r.Title,
		IncidentDate: r.IncidentDate,
	}

	if isJSONNull(r.StopBleedingAt) {
		input.ClearStopBleeding = true
	} else if len(r.StopBleedingAt) > 0 {
		var t time.Time
		if err := json.Unmarshal(r.StopBleedingAt, &t); err != nil {
			return input, err
		}
		input.StopBleedingAt = &t
	}

	if isJSONNull(r.FundStatus) {
		input.ClearFundStatus = true
	} else if len(r.FundStatus) > 0 {
		var s string
		if err := json.Unmarshal(r.FundStatus, &s); err != nil {
			return input, err
		}
		fs := domain.FundStatus(s)
		input.FundStatus = &fs
	}

	if r.Severity != nil {
		s := domain.Severity(*r.Severity)
		input.Severity = &s
	}
	if r.Status != nil {
		s := domain.IncidentStatus(*r.Status)
		input.Status = &s
	}
	if r.Classification != nil {
		c := domain.Classification(*r.Classification)
		input.Classification = &c
	}
	return input, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidSeverity, Status: http.StatusBadRequest},
	{Error: ErrInvalidFundStatus, Status: http.StatusBadRequest},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	{Error: ErrInvalidClassification, Status: http.StatusBadRequest},
	{Error: ErrMissingIncidentDate, Status: http.StatusBadRequest},
	{Error: ErrStopBeforeStart, Status: http.StatusBadRequest},
}

// CreateIncident handles POST /incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// GetIncident handles GET /incidents/{id} request.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	incident, err := h.service.GetIncident(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// ListIncidents handles GET /incidents request.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Limit: DefaultListLimit}

	if l := q.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(parsed, MaxListLimit)
	}

	if o := q.Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			httputil.Error(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = parsed
	}

	if y := q.Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		filter.Year = &parsed
	}

	if c := q.Get("classification"); c != "" {
		classification := domain.Classification(c)
		if !classification.IsValid() {
			httputil.Error(w, http.StatusBadRequest, ErrInvalidClassification.Error())
			return
		}
		filter.Classification = &classification
	}

	if s := q.Get("incident_status"); s != "" {
		status := domain.IncidentStatus(s)
		if !status.IsValid() {
			httputil.Error(w, http.StatusBadRequest, ErrInvalidStatus.Error())
			return
		}
		filter.Status = &status
	}

	list, total, err := h.service.ListIncidents(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]any{
		"incidents": list,
		"total":     total,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})
}

// UpdateIncident handles PATCH /incidents/{id} request.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input, err := req.ToInput()
	if err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.UpdateIncident(r.Context(), id, input)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		httputil.Error(w, http.StatusBadRequest, "invalid incident id")
		return 0, false
	}
	return id, true
}
