package handlers

import (
	"net/http"
	"strconv"

	"procure-backend/internal/services"
	"procure-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListPending handles GET /api/users/pending
func (h *UserHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListPending(r.Context())
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, users)
}

// Approve handles PUT /api/users/{id}/approve
func (h *UserHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.userService.Approve(r.Context(), id); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "user approved"})
}

// Reject handles PUT /api/users/{id}/reject
func (h *UserHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.userService.Reject(r.Context(), id); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "registration rejected"})
}
