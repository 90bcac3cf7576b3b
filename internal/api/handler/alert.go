package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewatch/pulsewatch/internal/alert"
	"github.com/pulsewatch/pulsewatch/internal/api/models"
	"github.com/pulsewatch/pulsewatch/internal/api/response"
	"github.com/pulsewatch/pulsewatch/internal/indicator"
)

// AlertHandler handles alert endpoints.
type AlertHandler struct {
	alerts     *alert.Service
	indicators *indicator.Service
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alerts *alert.Service, indicators *indicator.Service) *AlertHandler {
	return &AlertHandler{alerts: alerts, indicators: indicators}
}

// List handles GET /api/v1/alerts. Supports page, pageSize, unresolvedOnly
// and indicatorId query parameters.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := alert.ListOptions{
		Page:           queryInt(r, "page", 1),
		PageSize:       queryInt(r, "pageSize", defaultPageSize),
		UnresolvedOnly: r.URL.Query().Get("unresolvedOnly") == "true",
		IndicatorID:    r.URL.Query().Get("indicatorId"),
	}

	result, err := h.alerts.List(r.Context(), opts)
	if err != nil {
		response.Failure(w, r, http.StatusInternalServerError, "listing alerts failed")
		return
	}

	items := make([]models.Alert, len(result.Items))
	for i, a := range result.Items {
		items[i] = toAlertModel(a)
	}
	response.Success(w, r, models.PagedAlerts{
		Items: items,
		Meta:  models.NewPagedResponseMeta(result.Page, opts.PageSize, result.TotalCount),
	})
}

// Create handles POST /api/v1/alerts - raise an alert by hand, outside the
// execution pipeline.
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.AlertCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Failure(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ind, err := h.indicators.Get(r.Context(), req.IndicatorID)
	if err != nil {
		if errors.Is(err, indicator.ErrIndicatorNotFound) {
			response.Failure(w, r, http.StatusNotFound, "indicator not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "loading indicator failed")
		return
	}

	a, err := h.alerts.Raise(r.Context(), ind.ID, ind.Name, req.ThresholdField, req.TriggeredValue, req.ThresholdValue)
	if err != nil {
		response.Failure(w, r, http.StatusInternalServerError, "raising alert failed")
		return
	}
	response.Success(w, r, toAlertModel(a))
}

// Get handles GET /api/v1/alerts/{alertId}.
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.alerts.Get(r.Context(), chi.URLParam(r, "alertId"))
	if err != nil {
		if errors.Is(err, alert.ErrAlertNotFound) {
			response.Failure(w, r, http.StatusNotFound, "alert not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "loading alert failed")
		return
	}
	response.Success(w, r, toAlertModel(a))
}

// Resolve handles POST /api/v1/alerts/{alertId}/resolve.
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req models.AlertResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Failure(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	a, err := h.alerts.Resolve(r.Context(), chi.URLParam(r, "alertId"), req.ResolvedBy)
	if err != nil {
		switch {
		case errors.Is(err, alert.ErrAlertNotFound):
			response.Failure(w, r, http.StatusNotFound, "alert not found")
		case errors.Is(err, alert.ErrAlreadyResolved):
			response.Failure(w, r, http.StatusConflict, "alert is already resolved")
		case errors.Is(err, alert.ErrResolverRequired):
			response.Failure(w, r, http.StatusBadRequest, "resolvedBy is required")
		default:
			response.Failure(w, r, http.StatusInternalServerError, "resolving alert failed")
		}
		return
	}
	response.Success(w, r, toAlertModel(a))
}

func toAlertModel(a *alert.Alert) models.Alert {
	m := models.Alert{
		ID:             a.ID,
		IndicatorID:    a.IndicatorID,
		IndicatorName:  a.IndicatorName,
		Severity:       string(a.Severity),
		Message:        a.Message,
		TriggeredValue: a.TriggeredValue,
		ThresholdField: a.ThresholdField,
		ThresholdValue: a.ThresholdValue,
		Resolved:       a.Resolved,
		ResolvedBy:     a.ResolvedBy,
		CreatedAt:      models.Timestamp(a.CreatedAt),
	}
	if a.ResolvedAt != nil {
		ts := models.Timestamp(*a.ResolvedAt)
		m.ResolvedAt = &ts
	}
	return m
}
