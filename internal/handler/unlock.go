package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rahat/lenslock/internal/apperror"
	"github.com/rahat/lenslock/internal/auth"
	"github.com/rahat/lenslock/internal/service"
)

// UnlockHandler is the thin HTTP front for the unlock operation.
type UnlockHandler struct {
	svc    *service.UnlockService
	logger *slog.Logger
}

func NewUnlockHandler(svc *service.UnlockService, logger *slog.Logger) *UnlockHandler {
	return &UnlockHandler{svc: svc, logger: logger}
}

type unlockRequest struct {
	PhotoID string `json:"photoId"`
}

// HandleUnlock spends tokens to unlock a photo for the caller.
//
// HTTP: POST /api/unlock (behind RequireAuth)
// BODY: {"photoId":"..."}
//
// Responses:
//
//	200 {"granted":true,"alreadyUnlocked":false,"tokenBalance":70} — charged
//	200 {"granted":true,"alreadyUnlocked":true, "tokenBalance":70} — repeat call, no charge
//	402 insufficient_balance — top up first
//	404 not_found            — unknown photo
//
// Retrying this endpoint is always safe; repeats are idempotent successes.
func (h *UnlockHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.svc.Unlock(r.Context(), userID, req.PhotoID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
