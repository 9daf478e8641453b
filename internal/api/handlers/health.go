package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/momo-tracker/internal/api/middleware"
	"github.com/dvloznov/momo-tracker/internal/store"
)

// HealthHandler reports liveness and the number of stored transactions.
type HealthHandler struct {
	store store.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(s store.Store) *HealthHandler {
	return &HealthHandler{store: s}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteData(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"transactions": h.store.Len(),
		"time":         time.Now().Format(time.RFC3339),
	})
}
