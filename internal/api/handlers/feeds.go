package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/arthasutra/backend/internal/feed"
	"github.com/arthasutra/backend/pkg/logger"
)

// FeedsHandler exposes live-feed diagnostics.
type FeedsHandler struct {
	manager *feed.Manager
	logger  *logger.Logger
}

func NewFeedsHandler(manager *feed.Manager, log *logger.Logger) *FeedsHandler {
	return &FeedsHandler{manager: manager, logger: log}
}

// Stats handles GET /feeds/stats.
func (h *FeedsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		respondError(w, http.StatusServiceUnavailable, "Feeds are not running")
		return
	}
	respondJSON(w, http.StatusOK, h.manager.Stats())
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
