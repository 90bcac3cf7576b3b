package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewatch/pulsewatch/internal/api/models"
	"github.com/pulsewatch/pulsewatch/internal/api/response"
	"github.com/pulsewatch/pulsewatch/internal/indicator"
	"github.com/pulsewatch/pulsewatch/internal/worker"
)

const defaultPageSize = 20

// IndicatorHandler handles indicator endpoints.
type IndicatorHandler struct {
	indicators *indicator.Service
	executor   *worker.Executor
}

// NewIndicatorHandler creates a new IndicatorHandler. The executor is
// used by the on-demand execute endpoint and may be nil when manual
// execution is disabled.
func NewIndicatorHandler(indicators *indicator.Service, executor *worker.Executor) *IndicatorHandler {
	return &IndicatorHandler{
		indicators: indicators,
		executor:   executor,
	}
}

// List handles GET /api/v1/indicators.
func (h *IndicatorHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", defaultPageSize)
	activeOnly := r.URL.Query().Get("activeOnly") == "true"

	result, err := h.indicators.List(r.Context(), indicator.ListOptions{
		Page:       page,
		PageSize:   pageSize,
		ActiveOnly: activeOnly,
	})
	if err != nil {
		response.Failure(w, r, http.StatusInternalServerError, "listing indicators failed")
		return
	}

	items := make([]models.Indicator, len(result.Items))
	for i, ind := range result.Items {
		items[i] = toIndicatorModel(ind)
	}

	response.Success(w, r, models.PagedIndicators{
		Items: items,
		Meta:  models.NewPagedResponseMeta(result.Page, pageSize, result.TotalCount),
	})
}

// Get handles GET /api/v1/indicators/{indicatorId}.
func (h *IndicatorHandler) Get(w http.ResponseWriter, r *http.Request) {
	ind, err := h.indicators.Get(r.Context(), chi.URLParam(r, "indicatorId"))
	if err != nil {
		if errors.Is(err, indicator.ErrIndicatorNotFound) {
			response.Failure(w, r, http.StatusNotFound, "indicator not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "loading indicator failed")
		return
	}
	response.Success(w, r, toIndicatorModel(ind))
}

// Create handles POST /api/v1/indicators.
func (h *IndicatorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.IndicatorCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Failure(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ind := &indicator.Indicator{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     GetUserID(r.Context()),
		CollectorID: req.CollectorID,
		ItemName:    req.ItemName,
		Threshold: indicator.Threshold{
			Field:      req.Threshold.Field,
			Comparison: indicator.Comparison(req.Threshold.Comparison),
			Value:      req.Threshold.Value,
		},
		ScheduleID: req.ScheduleID,
		Active:     true,
	}

	created, err := h.indicators.Create(r.Context(), ind)
	if err != nil {
		response.Failure(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.ContactIDs) > 0 {
		if err := h.indicators.SetContacts(r.Context(), created.ID, req.ContactIDs); err != nil {
			response.Failure(w, r, http.StatusInternalServerError, "assigning contacts failed")
			return
		}
	}

	response.Success(w, r, toIndicatorModel(created))
}

// Update handles PUT /api/v1/indicators/{indicatorId}.
func (h *IndicatorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "indicatorId")

	var req models.IndicatorUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Failure(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ind, err := h.indicators.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, indicator.ErrIndicatorNotFound) {
			response.Failure(w, r, http.StatusNotFound, "indicator not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "loading indicator failed")
		return
	}

	if req.Name != nil {
		ind.Name = *req.Name
	}
	if req.Description != nil {
		ind.Description = *req.Description
	}
	if req.CollectorID != nil {
		ind.CollectorID = *req.CollectorID
	}
	if req.ItemName != nil {
		ind.ItemName = *req.ItemName
	}
	if req.Threshold != nil {
		ind.Threshold = indicator.Threshold{
			Field:      req.Threshold.Field,
			Comparison: indicator.Comparison(req.Threshold.Comparison),
			Value:      req.Threshold.Value,
		}
	}
	if req.ScheduleID != nil {
		ind.ScheduleID = *req.ScheduleID
	}

	updated, err := h.indicators.Update(r.Context(), ind)
	if err != nil {
		response.Failure(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.ContactIDs != nil {
		if err := h.indicators.SetContacts(r.Context(), id, req.ContactIDs); err != nil {
			response.Failure(w, r, http.StatusInternalServerError, "assigning contacts failed")
			return
		}
	}

	response.Success(w, r, toIndicatorModel(updated))
}

// Delete handles DELETE /api/v1/indicators/{indicatorId}.
func (h *IndicatorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "indicatorId")
	if err := h.indicators.Delete(r.Context(), id); err != nil {
		if errors.Is(err, indicator.ErrIndicatorNotFound) {
			response.Failure(w, r, http.StatusNotFound, "indicator not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "deleting indicator failed")
		return
	}
	response.Success(w, r, nil)
}

// Deactivate handles POST /api/v1/indicators/{indicatorId}/deactivate.
// Deactivation is the primary removal flow; hard delete is for cleanup.
func (h *IndicatorHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "indicatorId")
	if err := h.indicators.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, indicator.ErrIndicatorNotFound) {
			response.Failure(w, r, http.StatusNotFound, "indicator not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "deactivating indicator failed")
		return
	}
	response.Success(w, r, nil)
}

// Execute handles POST /api/v1/indicators/{indicatorId}/execute - run now.
func (h *IndicatorHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "indicatorId")

	if h.executor == nil {
		response.Failure(w, r, http.StatusServiceUnavailable, "manual execution is not available")
		return
	}

	ind, err := h.indicators.Claim(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, indicator.ErrIndicatorNotFound):
			response.Failure(w, r, http.StatusNotFound, "indicator not found")
		case errors.Is(err, indicator.ErrIndicatorInactive):
			response.Failure(w, r, http.StatusBadRequest, "indicator is deactivated")
		case errors.Is(err, indicator.ErrAlreadyRunning):
			response.Failure(w, r, http.StatusConflict, "indicator is already running")
		default:
			response.Failure(w, r, http.StatusInternalServerError, "starting execution failed")
		}
		return
	}

	// Run detached from the request lifetime; progress arrives over the
	// realtime hub.
	h.executor.Dispatch(context.WithoutCancel(r.Context()), ind)

	response.Success(w, r, models.ExecutionResult{
		IndicatorID: id,
		Started:     true,
		RequestedAt: models.Timestamp(time.Now()),
	})
}

// SetContacts handles PUT /api/v1/indicators/{indicatorId}/contacts.
func (h *IndicatorHandler) SetContacts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "indicatorId")

	var req struct {
		ContactIDs []string `json:"contactIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Failure(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.indicators.SetContacts(r.Context(), id, req.ContactIDs); err != nil {
		if errors.Is(err, indicator.ErrIndicatorNotFound) {
			response.Failure(w, r, http.StatusNotFound, "indicator not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "assigning contacts failed")
		return
	}
	response.Success(w, r, nil)
}

func toIndicatorModel(ind *indicator.Indicator) models.Indicator {
	m := models.Indicator{
		ID:          ind.ID,
		Name:        ind.Name,
		Description: ind.Description,
		OwnerID:     ind.OwnerID,
		CollectorID: ind.CollectorID,
		ItemName:    ind.ItemName,
		Threshold: models.Threshold{
			Field:      ind.Threshold.Field,
			Comparison: string(ind.Threshold.Comparison),
			Value:      ind.Threshold.Value,
		},
		ScheduleID: ind.ScheduleID,
		Active:     ind.Active,
		IsRunning:  ind.IsRunning,
		LastRun: models.LastRun{
			Value:  ind.LastRun.Value,
			Result: string(ind.LastRun.Result),
		},
		CreatedAt: models.Timestamp(ind.CreatedAt),
		UpdatedAt: models.Timestamp(ind.UpdatedAt),
	}
	if ind.LastRun.At != nil {
		at := models.Timestamp(*ind.LastRun.At)
		m.LastRun.At = &at
	}
	return m
}

// queryInt parses a positive integer query parameter with a fallback.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
