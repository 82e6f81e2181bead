package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ragchat-backend/internal/services"
)

type SessionHandler struct {
	chat      *services.ChatService
	jwtSecret string
}

func NewSessionHandler(chat *services.ChatService, jwtSecret string) *SessionHandler {
	return &SessionHandler{chat: chat, jwtSecret: jwtSecret}
}

// CreateSession registers a new chat session and returns a signed token for
// it.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := h.chat.NewSession()

	claims := jwt.MapClaims{
		"session_id": sessionID,
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(24 * time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
	if err != nil {
		http.Error(w, "failed to sign session token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"session_id": sessionID,
		"token":      token,
	})
}
