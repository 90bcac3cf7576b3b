package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewatch/pulsewatch/internal/api/models"
	"github.com/pulsewatch/pulsewatch/internal/api/response"
	"github.com/pulsewatch/pulsewatch/internal/collector"
)

// CollectorHandler handles collector endpoints.
type CollectorHandler struct {
	collectors *collector.Service
}

// NewCollectorHandler creates a new CollectorHandler.
func NewCollectorHandler(collectors *collector.Service) *CollectorHandler {
	return &CollectorHandler{collectors: collectors}
}

// List handles GET /api/v1/collectors.
func (h *CollectorHandler) List(w http.ResponseWriter, r *http.Request) {
	cols, err := h.collectors.List(r.Context())
	if err != nil {
		response.Failure(w, r, http.StatusInternalServerError, "listing collectors failed")
		return
	}

	items := make([]models.Collector, len(cols))
	for i, c := range cols {
		items[i] = toCollectorModel(c)
	}
	response.Success(w, r, items)
}

// Get handles GET /api/v1/collectors/{collectorId}.
func (h *CollectorHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.collectors.Get(r.Context(), chi.URLParam(r, "collectorId"))
	if err != nil {
		if errors.Is(err, collector.ErrCollectorNotFound) {
			response.Failure(w, r, http.StatusNotFound, "collector not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "loading collector failed")
		return
	}
	response.Success(w, r, toCollectorModel(c))
}

// Items handles GET /api/v1/collectors/{collectorId}/items - enumerate
// the item names an indicator can monitor on this collector.
func (h *CollectorHandler) Items(w http.ResponseWriter, r *http.Request) {
	names, err := h.collectors.ItemNames(r.Context(), chi.URLParam(r, "collectorId"))
	if err != nil {
		if errors.Is(err, collector.ErrCollectorNotFound) {
			response.Failure(w, r, http.StatusNotFound, "collector not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "listing collector items failed")
		return
	}
	response.Success(w, r, names)
}

// Create handles POST /api/v1/collectors.
func (h *CollectorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CollectorCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Failure(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := h.collectors.Create(r.Context(), &collector.Collector{
		Name:        req.Name,
		Description: req.Description,
		Query:       req.Query,
	})
	if err != nil {
		response.Failure(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.ItemNames) > 0 {
		if err := h.collectors.SetItemNames(r.Context(), created.ID, req.ItemNames); err != nil {
			response.Failure(w, r, http.StatusInternalServerError, "saving collector items failed")
			return
		}
	}

	response.Success(w, r, toCollectorModel(created))
}

// Update handles PUT /api/v1/collectors/{collectorId}.
func (h *CollectorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "collectorId")

	var req models.CollectorUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Failure(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := h.collectors.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, collector.ErrCollectorNotFound) {
			response.Failure(w, r, http.StatusNotFound, "collector not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "loading collector failed")
		return
	}

	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Query != nil {
		c.Query = *req.Query
	}

	updated, err := h.collectors.Update(r.Context(), c)
	if err != nil {
		response.Failure(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.ItemNames != nil {
		if err := h.collectors.SetItemNames(r.Context(), id, req.ItemNames); err != nil {
			response.Failure(w, r, http.StatusInternalServerError, "saving collector items failed")
			return
		}
	}

	response.Success(w, r, toCollectorModel(updated))
}

// Delete handles DELETE /api/v1/collectors/{collectorId}.
func (h *CollectorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.collectors.Delete(r.Context(), chi.URLParam(r, "collectorId")); err != nil {
		if errors.Is(err, collector.ErrCollectorNotFound) {
			response.Failure(w, r, http.StatusNotFound, "collector not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "deleting collector failed")
		return
	}
	response.Success(w, r, nil)
}

func toCollectorModel(c *collector.Collector) models.Collector {
	return models.Collector{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Query:       c.Query,
		CreatedAt:   models.Timestamp(c.CreatedAt),
		UpdatedAt:   models.Timestamp(c.UpdatedAt),
	}
}
