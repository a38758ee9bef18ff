// Package handlers provides the HTTP surface. Handlers stay thin; all
// eligibility and reasoning semantics live in the services.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"sage-engine/internal/config"
	"sage-engine/internal/services/chat"
	"sage-engine/internal/services/database"
	"sage-engine/internal/services/fixfinder"
	"sage-engine/internal/services/reasoner"
	"sage-engine/internal/services/rules"
	"sage-engine/internal/services/usage"
)

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// API holds the wired services behind the HTTP surface. Optional
// collaborators may be nil; their endpoints degrade gracefully.
type API struct {
	cfg       *config.Config
	engine    *rules.Engine
	fixFinder *fixfinder.Orchestrator
	reasoner  *reasoner.Reasoner
	chat      *chat.Service
	usage     *usage.Tracker
	db        *database.DB
}

// NewAPI creates the HTTP API over the wired services.
func NewAPI(
	cfg *config.Config,
	engine *rules.Engine,
	fixFinder *fixfinder.Orchestrator,
	ragReasoner *reasoner.Reasoner,
	chatService *chat.Service,
	usageTracker *usage.Tracker,
	db *database.DB,
) *API {
	return &API{
		cfg:       cfg,
		engine:    engine,
		fixFinder: fixFinder,
		reasoner:  ragReasoner,
		chat:      chatService,
		usage:     usageTracker,
		db:        db,
	}
}

// Routes registers all endpoints on the mux.
func (a *API) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", a.HealthHandler)
	mux.HandleFunc("/api/health", a.HealthHandler)
	mux.HandleFunc("/api/eligibility/check", a.EligibilityHandler)
	mux.HandleFunc("/api/chat", a.ChatHandler)
	mux.HandleFunc("/api/usage/summary", a.UsageSummaryHandler)
	mux.HandleFunc("/api/usage/flush", a.UsageFlushHandler)
}

// HealthHandler reports service and database status.
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	dbStatus := "not configured"
	if a.db != nil {
		if err := a.db.HealthCheck(r.Context()); err != nil {
			dbStatus = "disconnected"
		} else {
			dbStatus = "connected"
		}
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "SAGE eligibility engine is running",
		Data: map[string]interface{}{
			"status":    "healthy",
			"database":  dbStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Error: message})
}
