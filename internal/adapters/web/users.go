package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pricing-backend/internal/core"
)

type userBody struct {
	ID     string `json:"id"`
	Name   string `json:"name" validate:"required"`
	Role   string `json:"role" validate:"required"`
	Region string `json:"region"`
}

// listUsers handles GET /api/users.
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if users == nil {
		users = []core.User{}
	}
	writeJSON(w, users)
}

// getUser handles GET /api/users/{id}.
func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, user)
}

// createUser handles POST /api/users.
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var body userBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	user, err := h.svc.CreateUser(r.Context(), core.User{
		ID:     body.ID,
		Name:   body.Name,
		Role:   core.ParseRole(body.Role),
		Region: body.Region,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, user)
}

// updateUser handles PUT /api/users/{id}. The path id wins over any id in
// the body.
func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var body userBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	user, err := h.svc.UpdateUser(r.Context(), core.User{
		ID:     chi.URLParam(r, "id"),
		Name:   body.Name,
		Role:   core.ParseRole(body.Role),
		Region: body.Region,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, user)
}

// deleteUser handles DELETE /api/users/{id}.
func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
