package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rahat/lenslock/internal/apperror"
	"github.com/rahat/lenslock/internal/repository"
)

// MaxCreditAmount caps a single top-up. Token purchases arrive in small
// packs; anything above this is a client bug or mischief.
const MaxCreditAmount = 1_000_000

// WalletService exposes the token balance: read it, and credit it.
// It never touches the unlock ledger — debits belong to UnlockService.
type WalletService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewWalletService(users repository.UserRepository, logger *slog.Logger) *WalletService {
	return &WalletService{
		users:  users,
		logger: logger,
	}
}

// GetBalance returns the user's current token balance.
// Returns apperror.ErrNotFound for an unknown user.
func (s *WalletService) GetBalance(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperror.ValidationFailed("userId", "user ID is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.TokenBalance, nil
}

// AddTokens credits the user's balance and returns the new balance.
//
// The amount must be strictly positive — zero and negative amounts are
// rejected before the store is touched. The credit itself is a single
// atomic increment in the store, so it serializes cleanly against any
// concurrent debit from an unlock.
func (s *WalletService) AddTokens(ctx context.Context, userID string, amount int64) (int64, error) {
	if userID == "" {
		return 0, apperror.ValidationFailed("userId", "user ID is required")
	}
	if amount <= 0 {
		return 0, apperror.ValidationFailed("amount", "amount must be positive")
	}
	if amount > MaxCreditAmount {
		return 0, apperror.ValidationFailed("amount",
			fmt.Sprintf("amount must be %d tokens or less", MaxCreditAmount))
	}

	balance, err := s.users.Credit(ctx, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("adding %d tokens: %w", amount, err)
	}

	s.logger.Info("tokens credited",
		slog.String("userID", userID),
		slog.Int64("amount", amount),
		slog.Int64("balance", balance),
	)

	return balance, nil
}
