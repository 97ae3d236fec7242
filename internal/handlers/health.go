package handlers

import (
	"net/http"

	"lmrelay/internal/models"
)

// Health reports liveness only; it never contacts LM Studio.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "online"})
}
