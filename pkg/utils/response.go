package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"swmp-backend/internal/services"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// ServiceError maps the service error taxonomy onto HTTP statuses:
// ValidationError -> 400, NotFoundError -> 404, anything else -> 500.
func ServiceError(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		Error(w, http.StatusBadRequest, validationErr.Error())
		return
	}

	var notFoundErr *services.NotFoundError
	if errors.As(err, &notFoundErr) {
		Error(w, http.StatusNotFound, notFoundErr.Error())
		return
	}

	Error(w, http.StatusInternalServerError, "Internal server error")
}
