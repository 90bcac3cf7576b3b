package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewatch/pulsewatch/internal/api/models"
	"github.com/pulsewatch/pulsewatch/internal/api/response"
	"github.com/pulsewatch/pulsewatch/internal/indicator"
	"github.com/pulsewatch/pulsewatch/internal/schedule"
)

// ScheduleHandler handles schedule endpoints.
type ScheduleHandler struct {
	schedules  *schedule.Service
	indicators *indicator.Service
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(schedules *schedule.Service, indicators *indicator.Service) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, indicators: indicators}
}

// List handles GET /api/v1/schedules.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	scheds, err := h.schedules.List(r.Context())
	if err != nil {
		response.Failure(w, r, http.StatusInternalServerError, "listing schedules failed")
		return
	}

	items := make([]models.Schedule, len(scheds))
	for i, s := range scheds {
		items[i] = toScheduleModel(s)
	}
	response.Success(w, r, items)
}

// Get handles GET /api/v1/schedules/{scheduleId}.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.schedules.Get(r.Context(), chi.URLParam(r, "scheduleId"))
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			response.Failure(w, r, http.StatusNotFound, "schedule not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "loading schedule failed")
		return
	}
	response.Success(w, r, toScheduleModel(s))
}

// Create handles POST /api/v1/schedules.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.ScheduleCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Failure(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sched := &schedule.Schedule{
		Name:     req.Name,
		CronSpec: req.CronSpec,
		Enabled:  true,
	}
	if req.Enabled != nil {
		sched.Enabled = *req.Enabled
	}

	created, err := h.schedules.Create(r.Context(), sched)
	if err != nil {
		response.Failure(w, r, http.StatusBadRequest, err.Error())
		return
	}
	response.Success(w, r, toScheduleModel(created))
}

// Update handles PUT /api/v1/schedules/{scheduleId}.
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.ScheduleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Failure(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s, err := h.schedules.Get(r.Context(), chi.URLParam(r, "scheduleId"))
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			response.Failure(w, r, http.StatusNotFound, "schedule not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "loading schedule failed")
		return
	}

	if req.Name != nil {
		s.Name = *req.Name
	}
	if req.CronSpec != nil {
		s.CronSpec = *req.CronSpec
	}
	if req.Enabled != nil {
		s.Enabled = *req.Enabled
	}

	updated, err := h.schedules.Update(r.Context(), s)
	if err != nil {
		response.Failure(w, r, http.StatusBadRequest, err.Error())
		return
	}
	response.Success(w, r, toScheduleModel(updated))
}

// Delete handles DELETE /api/v1/schedules/{scheduleId}.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.schedules.Delete(r.Context(), chi.URLParam(r, "scheduleId")); err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			response.Failure(w, r, http.StatusNotFound, "schedule not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "deleting schedule failed")
		return
	}
	response.Success(w, r, nil)
}

// Due handles GET /api/v1/schedules/due - indicators the scheduler would
// pick up on its next tick.
func (h *ScheduleHandler) Due(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)

	due, err := h.indicators.ListDue(r.Context(), limit)
	if err != nil {
		response.Failure(w, r, http.StatusInternalServerError, "listing due indicators failed")
		return
	}

	items := make([]models.Indicator, len(due))
	for i, ind := range due {
		items[i] = toIndicatorModel(ind)
	}
	response.Success(w, r, items)
}

// Enable handles POST /api/v1/schedules/{scheduleId}/enable.
func (h *ScheduleHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// Disable handles POST /api/v1/schedules/{scheduleId}/disable.
func (h *ScheduleHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *ScheduleHandler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "scheduleId")

	var err error
	if enabled {
		err = h.schedules.Enable(r.Context(), id)
	} else {
		err = h.schedules.Disable(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			response.Failure(w, r, http.StatusNotFound, "schedule not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "updating schedule failed")
		return
	}

	s, err := h.schedules.Get(r.Context(), id)
	if err != nil {
		response.Failure(w, r, http.StatusInternalServerError, "loading schedule failed")
		return
	}
	response.Success(w, r, toScheduleModel(s))
}

func toScheduleModel(s *schedule.Schedule) models.Schedule {
	m := models.Schedule{
		ID:        s.ID,
		Name:      s.Name,
		CronSpec:  s.CronSpec,
		Enabled:   s.Enabled,
		CreatedAt: models.Timestamp(s.CreatedAt),
		UpdatedAt: models.Timestamp(s.UpdatedAt),
	}
	if s.Enabled {
		if next, err := s.NextAfter(time.Now()); err == nil {
			ts := models.Timestamp(next)
			m.NextRunAt = &ts
		}
	}
	return m
}
