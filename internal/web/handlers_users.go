package web

import (
	"net/http"

	"github.com/justestif/movie-recommender/internal/validation"
)

const credentialsRequired = "Username and password are required"

type credentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type createUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=viewer admin"`
}

// ListUsers handles GET /api/users.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondList(w, users)
}

// GetUser handles GET /api/users/{id}.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "User not found")
		return
	}
	respondData(w, http.StatusOK, user)
}

// CreateUser handles POST /api/users.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := validation.Struct(req, credentialsRequired); err != nil {
		h.fail(w, r, err, "")
		return
	}

	user, err := h.users.Create(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondData(w, http.StatusCreated, user)
}

// UpdateUserRole handles PUT /api/users/{id}/role.
func (h *Handlers) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := validation.Struct(req, "Role must be viewer or admin"); err != nil {
		h.fail(w, r, err, "")
		return
	}

	user, err := h.users.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		h.fail(w, r, err, "User not found")
		return
	}
	respondData(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/users/{id}.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "User not found")
		return
	}
	respondData(w, http.StatusOK, map[string]int{"id": id})
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := validation.Struct(req, credentialsRequired); err != nil {
		h.fail(w, r, err, "")
		return
	}

	user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondData(w, http.StatusOK, user)
}
