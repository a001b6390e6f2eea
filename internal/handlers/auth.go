package handlers

import (
	"net/http"

	"github.com/xelth-com/cspsgo/internal/middleware"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles user login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := decodeJSON(req, &loginReq); err != nil {
		respondAppError(w, req, err)
		return
	}

	user, tokens, err := r.users.Login(req.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		respondAppError(w, req, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": tokens,
		"user":   user,
	})
}

// me returns the authenticated user
func (r *Router) me(w http.ResponseWriter, req *http.Request) {
	user, _ := middleware.UserFromContext(req.Context())
	respondJSON(w, http.StatusOK, user)
}
