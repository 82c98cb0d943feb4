package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rahat/lenslock/internal/apperror"
	"github.com/rahat/lenslock/internal/auth"
	"github.com/rahat/lenslock/internal/service"
)

// AuthHandler manages registration, login, logout, and the /api/me profile.
type AuthHandler struct {
	svc    *service.AuthService
	secure bool // mark session cookies Secure (behind TLS)
	logger *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, secure: secure, logger: logger}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IsCreator bool   `json:"isCreator"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new account and logs it in.
//
// HTTP: POST /auth/register
// BODY: {"email":"a@b.c","password":"...","isCreator":false}
//
// The session cookie is set on success, so a fresh registration is
// immediately usable without a separate login call.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.svc.Register(r.Context(), req.Email, req.Password, req.IsCreator)
	if err != nil {
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.secure)
	writeJSON(w, http.StatusCreated, result.User)
}

// HandleLogin verifies credentials and sets the session cookie.
//
// HTTP: POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.secure)
	writeJSON(w, http.StatusOK, result.User)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the authenticated user's profile (including the token
// balance — the frontend header reads it from here).
//
// HTTP: GET /api/me (behind RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := h.svc.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
