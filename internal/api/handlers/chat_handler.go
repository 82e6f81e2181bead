package handlers

import (
	"encoding/json"
	"net/http"

	middleware "ragchat-backend/internal/api/middlewares"
	"ragchat-backend/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type ChatRequest struct {
	Query  string `json:"query"`
	UseRAG *bool  `json:"use_rag,omitempty"` // defaults to true
}

// Query answers one user turn for the caller's session.
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionID(r.Context())
	if !ok {
		http.Error(w, "session not found in context", http.StatusUnauthorized)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	useRAG := req.UseRAG == nil || *req.UseRAG

	msg, err := h.chat.Answer(r.Context(), sessionID, req.Query, useRAG)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msg)
}

// History returns the caller's full chat history.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionID(r.Context())
	if !ok {
		http.Error(w, "session not found in context", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.chat.History(sessionID))
}
