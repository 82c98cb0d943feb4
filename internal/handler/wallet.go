package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rahat/lenslock/internal/apperror"
	"github.com/rahat/lenslock/internal/auth"
	"github.com/rahat/lenslock/internal/service"
)

// WalletHandler exposes the token balance over HTTP. Both routes sit behind
// RequireAuth — the wallet always belongs to the caller, never to a user ID
// from the request body.
type WalletHandler struct {
	svc    *service.WalletService
	logger *slog.Logger
}

func NewWalletHandler(svc *service.WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{svc: svc, logger: logger}
}

type balanceResponse struct {
	TokenBalance int64 `json:"tokenBalance"`
}

type addTokensRequest struct {
	Amount int64 `json:"amount"`
}

// HandleGetBalance returns the caller's balance.
//
// HTTP: GET /api/wallet
func (h *WalletHandler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{TokenBalance: balance})
}

// HandleAddTokens credits the caller's balance.
//
// HTTP: POST /api/wallet/add
// BODY: {"amount": 100}
//
// A non-positive amount is a 400; on success the new balance comes back.
func (h *WalletHandler) HandleAddTokens(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req addTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	balance, err := h.svc.AddTokens(r.Context(), userID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{TokenBalance: balance})
}
