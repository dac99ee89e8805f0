package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"procure-backend/internal/middleware"
	"procure-backend/internal/models"
	"procure-backend/internal/services"
	"procure-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type RequestHandler struct {
	requestService *services.RequestService
}

func NewRequestHandler(requestService *services.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// Create handles POST /api/requests
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var input models.CreateRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.requestService.Create(r.Context(), userID, &input)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, req)
}

// Get handles GET /api/requests/{id}
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetRoleFromContext(r.Context())

	req, err := h.requestService.Get(r.Context(), id, userID, role)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, req)
}

// Approve handles PUT /api/requests/{id}/approve
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	parent, leaves, err := h.requestService.ApproveAndSplit(r.Context(), id)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"request":      parent,
		"sub_requests": leaves,
	})
}

// Reject handles PUT /api/requests/{id}/reject
func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var input models.RejectRequestInput
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&input)
	}

	req, err := h.requestService.Reject(r.Context(), id, input.Remarks)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, req)
}

// Publish handles PUT /api/requests/{id}/publish
func (h *RequestHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	req, err := h.requestService.Publish(r.Context(), id)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, req)
}

// AttachAdminQuote handles PUT /api/requests/{id}/admin-quote
func (h *RequestHandler) AttachAdminQuote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var input struct {
		FileURL string `json:"file_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.requestService.AttachAdminQuote(r.Context(), id, input.FileURL)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, req)
}

// ListMine handles GET /api/requests/mine
func (h *RequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	reqs, err := h.requestService.ListMine(r.Context(), userID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqs)
}

// ListLeaves handles GET /api/requests/{id}/sub-requests
func (h *RequestHandler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	leaves, err := h.requestService.ListLeaves(r.Context(), id)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, leaves)
}

// ListAvailable handles GET /api/requests/available
func (h *RequestHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	reqs, err := h.requestService.ListAvailable(r.Context(), userID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqs)
}

// ListVisible handles GET /api/requests/visible
func (h *RequestHandler) ListVisible(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	reqs, err := h.requestService.ListVisible(r.Context(), userID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqs)
}

// ListReceived handles GET /api/requests/received
func (h *RequestHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requestService.ListParents(r.Context())
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqs)
}

// ListPublished handles GET /api/requests/published
func (h *RequestHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requestService.ListPublished(r.Context())
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqs)
}

// VendorItems handles GET /api/requests/vendor-items
func (h *RequestHandler) VendorItems(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	items, err := h.requestService.VendorItems(r.Context(), userID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, items)
}

// ListPendingApproval handles GET /api/requests/pending
func (h *RequestHandler) ListPendingApproval(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requestService.ListPendingApproval(r.Context())
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqs)
}

// ListAll handles GET /api/requests
func (h *RequestHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requestService.ListAll(r.Context())
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqs)
}
