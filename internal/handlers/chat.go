package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"sage-engine/internal/models"
	"sage-engine/internal/services/chat"
	"sage-engine/internal/utils"
)

// ChatHandler answers guideline questions with cited responses.
func (a *API) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.chat == nil {
		writeError(w, http.StatusServiceUnavailable, "Chat is not configured")
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	response, err := a.chat.Chat(r.Context(), req)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrMessageTooLong) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.GetLogger().Error("chat request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "An error occurred processing your message. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: response})
}
