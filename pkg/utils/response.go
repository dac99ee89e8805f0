package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"procure-backend/internal/services"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[Response] encode failed: %v", err)
		}
	}
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteServiceError maps a service error kind to an HTTP status.
func WriteServiceError(w http.ResponseWriter, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		log.Printf("[Response] unclassified error: %v", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch se.Kind {
	case services.KindValidation:
		WriteError(w, http.StatusBadRequest, se.Message)
	case services.KindAuthorization:
		WriteError(w, http.StatusForbidden, se.Message)
	case services.KindNotFound:
		WriteError(w, http.StatusNotFound, se.Message)
	case services.KindConflict:
		WriteError(w, http.StatusConflict, se.Message)
	default:
		log.Printf("[Response] dependency error: %v", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
