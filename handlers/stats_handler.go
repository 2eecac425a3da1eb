// handlers/stats_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gewnthar/bostondata/database"
	"github.com/gewnthar/bostondata/datasets"
)

// StatsHandler serves stored-data summaries.
type StatsHandler struct {
	Store *database.Store
}

// SummaryHandler handles GET /api/stats/{dataset}.
func (h *StatsHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// Expected path: api/stats/{dataset}
	if len(pathParts) < 3 {
		respondWithError(w, http.StatusBadRequest, "Invalid path. Expected /api/stats/{dataset}")
		return
	}
	kind := datasets.Kind(strings.ToLower(pathParts[2]))

	d, err := datasets.ByKind(kind)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Unknown dataset '%s'.", kind))
		return
	}

	summary, err := h.Store.Summary(r.Context(), d)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to summarize %s: %v", kind, err))
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}
