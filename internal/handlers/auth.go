package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"postcatalog/internal/apperr"
	"postcatalog/internal/middleware"
	"postcatalog/internal/models"
	"postcatalog/internal/session"
)

type loginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int          `json:"expires_in"`
	User      *models.User `json:"user"`
}

// Login handles POST /api/v1/auth/login and issues a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.svc.Authenticate(r.Context(), req.Email, req.Password, req.Code)
	if err != nil {
		if statusFor(err) == http.StatusUnauthorized {
			slog.Warn("login failed", "email", req.Email)
		}
		writeError(w, r, err)
		return
	}

	token, err := h.sessions.Create(r.Context(), &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(h.sessions.TTL().Seconds()),
		User:      user,
	})
}

// Logout handles POST /api/v1/auth/logout and revokes the current token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromCtx(r.Context())
	if err := h.sessions.Destroy(r.Context(), token); err != nil {
		slog.Error("failed to destroy session", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	user, err := h.svc.GetUser(r.Context(), sess.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		writeError(w, r, fmt.Errorf("account no longer exists: %w", apperr.ErrUnauthorized))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
