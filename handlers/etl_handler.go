// handlers/etl_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gewnthar/bostondata/models"
	"github.com/gewnthar/bostondata/services"
	"github.com/gewnthar/bostondata/utils"
)

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshalling JSON response: %v", err)
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, code int, message string) {
	log.Printf("API Error %d: %s", code, message)
	respondWithJSON(w, code, map[string]string{"error": message})
}

// EtlHandler triggers ETL runs over HTTP.
type EtlHandler struct {
	Services map[string]*services.EtlService // keyed by dataset kind
}

// RunHandler handles requests to trigger an ETL run for one dataset.
// Expects POST requests to /api/etl/run/{dataset}
// with optional query params: limit (int), recent (bool).
func (h *EtlHandler) RunHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// Expected path: api/etl/run/{dataset}
	if len(pathParts) < 4 {
		respondWithError(w, http.StatusBadRequest, "Invalid path. Expected /api/etl/run/{dataset}")
		return
	}
	// Accept the same short aliases the CLI does (crime, 311, food, ...).
	dataset := utils.NormalizeDatasetArg(pathParts[3])

	svc, ok := h.Services[dataset]
	if !ok {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Unknown dataset '%s'.", dataset))
		return
	}

	opts := services.RunOptions{Clean: true, Upsert: true}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid limit '%s'.", limitStr))
			return
		}
		opts.Limit = limit
	}
	if recentStr := r.URL.Query().Get("recent"); recentStr != "" {
		opts.Recent = recentStr == "true" || recentStr == "1"
	}

	result, err := svc.Run(r.Context(), opts)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("ETL run for %s failed: %v", dataset, err))
		return
	}

	respondWithJSON(w, http.StatusOK, models.EtlRunResponse{
		Dataset:     result.Dataset,
		State:       string(result.State),
		RowsFetched: result.RowsFetched,
		RowsCleaned: result.RowsCleaned,
		RowsLoaded:  result.RowsLoaded,
		Elapsed:     result.Elapsed.Round(time.Millisecond).String(),
		StartedAt:   result.StartedAt,
	})
}
