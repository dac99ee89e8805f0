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

type QuoteHandler struct {
	quoteService *services.QuoteService
}

func NewQuoteHandler(quoteService *services.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

// Submit handles POST /api/quotes/{requestId}
// The path variable is the request identifier string, e.g. 2026/2908/0001-ELECTRICAL,
// which contains slashes, so the route uses a catch-all pattern.
func (h *QuoteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["requestId"]
	vendorID, _ := middleware.GetUserIDFromContext(r.Context())

	var input models.SubmitQuoteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quote, err := h.quoteService.Submit(r.Context(), vendorID, requestID, &input)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, quote)
}

// Approve handles PUT /api/quotes/{id}/approve
func (h *QuoteHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid quote id")
		return
	}

	quote, err := h.quoteService.Approve(r.Context(), id)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quote)
}

// Reject handles PUT /api/quotes/{id}/reject
func (h *QuoteHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid quote id")
		return
	}

	quote, err := h.quoteService.Reject(r.Context(), id)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quote)
}

// ListMine handles GET /api/quotes/mine
func (h *QuoteHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	vendorID, _ := middleware.GetUserIDFromContext(r.Context())

	quotes, err := h.quoteService.ListMine(r.Context(), vendorID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quotes)
}

// ListReceived handles GET /api/quotes/received
func (h *QuoteHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	customerID, _ := middleware.GetUserIDFromContext(r.Context())

	quotes, err := h.quoteService.ListReceived(r.Context(), customerID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quotes)
}

// ListByRequest handles GET /api/quotes/by-request/{id}
func (h *QuoteHandler) ListByRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetRoleFromContext(r.Context())

	quotes, err := h.quoteService.ListByRequest(r.Context(), id, userID, role)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quotes)
}

// ListAll handles GET /api/quotes/all
func (h *QuoteHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.quoteService.ListAll(r.Context())
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quotes)
}
