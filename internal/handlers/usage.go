package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"sage-engine/internal/utils"
)

// UsageSummaryHandler aggregates model usage per service. The window is
// controlled by the "hours" query parameter, defaulting to 24.
func (a *API) UsageSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.usage == nil {
		writeError(w, http.StatusServiceUnavailable, "Usage tracking is not configured")
		return
	}

	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = parsed
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	summaries, err := a.usage.Summarize(r.Context(), since)
	if err != nil {
		utils.GetLogger().Error("usage summary failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch usage summary")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"since":    since.UTC().Format(time.RFC3339),
			"services": summaries,
		},
	})
}

// UsageFlushHandler forces the buffered usage records to be written.
func (a *API) UsageFlushHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.usage == nil {
		writeError(w, http.StatusServiceUnavailable, "Usage tracking is not configured")
		return
	}

	if err := a.usage.Flush(r.Context()); err != nil {
		utils.GetLogger().Error("usage flush failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to flush usage records")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Usage records flushed"})
}
