package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsewatch/pulsewatch/internal/api/models"
	"github.com/pulsewatch/pulsewatch/internal/api/response"
	"github.com/pulsewatch/pulsewatch/internal/contact"
)

// ContactHandler handles notification contact endpoints.
type ContactHandler struct {
	contacts *contact.Service
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(contacts *contact.Service) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// List handles GET /api/v1/contacts.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	cs, err := h.contacts.List(r.Context())
	if err != nil {
		response.Failure(w, r, http.StatusInternalServerError, "listing contacts failed")
		return
	}

	items := make([]models.Contact, len(cs))
	for i, c := range cs {
		items[i] = toContactModel(c)
	}
	response.Success(w, r, items)
}

// Get handles GET /api/v1/contacts/{contactId}.
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.contacts.Get(r.Context(), chi.URLParam(r, "contactId"))
	if err != nil {
		if errors.Is(err, contact.ErrContactNotFound) {
			response.Failure(w, r, http.StatusNotFound, "contact not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "loading contact failed")
		return
	}
	response.Success(w, r, toContactModel(c))
}

// Create handles POST /api/v1/contacts.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Failure(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := h.contacts.Create(r.Context(), &contact.Contact{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		response.Failure(w, r, http.StatusBadRequest, err.Error())
		return
	}
	response.Success(w, r, toContactModel(created))
}

// Update handles PUT /api/v1/contacts/{contactId}.
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Failure(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := h.contacts.Get(r.Context(), chi.URLParam(r, "contactId"))
	if err != nil {
		if errors.Is(err, contact.ErrContactNotFound) {
			response.Failure(w, r, http.StatusNotFound, "contact not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "loading contact failed")
		return
	}

	c.Name = req.Name
	c.Email = req.Email
	c.Phone = req.Phone

	updated, err := h.contacts.Update(r.Context(), c)
	if err != nil {
		response.Failure(w, r, http.StatusBadRequest, err.Error())
		return
	}
	response.Success(w, r, toContactModel(updated))
}

// Delete handles DELETE /api/v1/contacts/{contactId}.
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.contacts.Delete(r.Context(), chi.URLParam(r, "contactId")); err != nil {
		if errors.Is(err, contact.ErrContactNotFound) {
			response.Failure(w, r, http.StatusNotFound, "contact not found")
			return
		}
		response.Failure(w, r, http.StatusInternalServerError, "deleting contact failed")
		return
	}
	response.Success(w, r, nil)
}

func toContactModel(c *contact.Contact) models.Contact {
	return models.Contact{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: models.Timestamp(c.CreatedAt),
		UpdatedAt: models.Timestamp(c.UpdatedAt),
	}
}
