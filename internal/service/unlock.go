// Package service contains the business logic layer of the application.
//
// Handlers parse HTTP and write responses; services enforce the rules;
// repositories talk to the database. Services receive repository interfaces
// (never the concrete sqlite types), so tests swap in mocks and the wiring
// in internal/server decides the real implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rahat/lenslock/internal/apperror"
	"github.com/rahat/lenslock/internal/model"
	"github.com/rahat/lenslock/internal/repository"
)

// UnlockService performs the one hard operation in the system: spend tokens
// to permanently unlock a photo, exactly once, under any amount of
// concurrency.
type UnlockService struct {
	users  repository.UserRepository
	photos repository.PhotoRepository
	grants repository.GrantRepository
	logger *slog.Logger
}

func NewUnlockService(
	users repository.UserRepository,
	photos repository.PhotoRepository,
	grants repository.GrantRepository,
	logger *slog.Logger,
) *UnlockService {
	return &UnlockService{
		users:  users,
		photos: photos,
		grants: grants,
		logger: logger,
	}
}

// UnlockResult reports the outcome of an unlock attempt.
//
// A repeated unlock is a success with AlreadyUnlocked=true, never an error —
// callers can retry freely without fear of double charges.
type UnlockResult struct {
	Granted         bool  `json:"granted"`
	AlreadyUnlocked bool  `json:"alreadyUnlocked"`
	TokenBalance    int64 `json:"tokenBalance"`
}

// Unlock spends the photo's price from the user's balance and appends a
// grant to the ledger.
//
// THE ALGORITHM, AND WHY THE ORDER MATTERS:
//
//  1. Look up the price. Unknown photo → not found, nothing touched.
//  2. Fast path: if the ledger already holds a grant for this pair, return
//     "already unlocked" with the current balance. No charge — unlock is
//     idempotent no matter how many times it is called.
//  3. TryDebit the price. The store does this as one conditional decrement,
//     so two racing callers whose combined cost exceeds the balance cannot
//     both pass. A false return means insufficient funds: stop, nothing
//     changed.
//  4. Append the grant. The ledger's unique constraint arbitrates races on
//     the pair itself: if a concurrent unlock inserted first, our insert
//     fails with a conflict and we REFUND the debit from step 3, then
//     report "already unlocked". That compensating credit is the only
//     cross-store cleanup in the system.
//
// Debit-before-append is deliberate. The reverse order (append first, then
// debit) would grant content before payment whenever the debit fails, and
// "check balance first, then debit" is exactly the read-then-write race the
// conditional decrement exists to close. A unique-constraint violation is a
// cheap, well-defined signal to compensate on; an unpaid grant is not.
func (s *UnlockService) Unlock(ctx context.Context, userID, photoID string) (*UnlockResult, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	if photoID == "" {
		return nil, apperror.ValidationFailed("photoId", "photo ID is required")
	}

	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}

	// Idempotency fast path: an existing grant means a previous call (or a
	// concurrent one that already finished) paid for this pair.
	exists, err := s.grants.Exists(ctx, userID, photoID)
	if err != nil {
		return nil, fmt.Errorf("checking existing grant: %w", err)
	}
	if exists {
		return s.alreadyUnlocked(ctx, userID)
	}

	ok, err := s.users.TryDebit(ctx, userID, photo.PriceTokens)
	if err != nil {
		return nil, fmt.Errorf("debiting %d tokens: %w", photo.PriceTokens, err)
	}
	if !ok {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return nil, apperror.InsufficientBalance(user.TokenBalance, photo.PriceTokens)
	}

	// The debit has happened. From here on every path must either land the
	// grant or give the tokens back.
	grant := &model.Grant{
		UserID:      userID,
		PhotoID:     photoID,
		TokensSpent: photo.PriceTokens,
	}
	if err := s.grants.Append(ctx, grant); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// A concurrent unlock won the race between our Exists check and
			// our Append. The photo is paid for (by them) — refund our debit
			// and report the idempotent success.
			if _, crErr := s.users.Credit(ctx, userID, photo.PriceTokens); crErr != nil {
				s.logger.Error("refund after grant conflict failed",
					slog.String("userID", userID),
					slog.String("photoID", photoID),
					slog.Int64("tokens", photo.PriceTokens),
					slog.String("error", crErr.Error()),
				)
				return nil, fmt.Errorf("refunding %d tokens after grant conflict: %w", photo.PriceTokens, crErr)
			}
			s.logger.Info("unlock lost race, debit refunded",
				slog.String("userID", userID),
				slog.String("photoID", photoID),
			)
			return s.alreadyUnlocked(ctx, userID)
		}
		// Any other append failure also leaves a debit with no grant —
		// refund before surfacing, so no caller ever observes a
		// partially-applied unlock.
		if _, crErr := s.users.Credit(ctx, userID, photo.PriceTokens); crErr != nil {
			s.logger.Error("refund after failed grant append failed",
				slog.String("userID", userID),
				slog.String("photoID", photoID),
				slog.Int64("tokens", photo.PriceTokens),
				slog.String("error", crErr.Error()),
			)
		}
		return nil, fmt.Errorf("appending grant: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("photo unlocked",
		slog.String("userID", userID),
		slog.String("photoID", photoID),
		slog.Int64("tokensSpent", photo.PriceTokens),
		slog.Int64("balance", user.TokenBalance),
	)

	return &UnlockResult{
		Granted:         true,
		AlreadyUnlocked: false,
		TokenBalance:    user.TokenBalance,
	}, nil
}

// alreadyUnlocked builds the idempotent success result from the current
// balance. No charge is taken on this path, whether it is the 2nd or the
// Nth repeated call.
func (s *UnlockService) alreadyUnlocked(ctx context.Context, userID string) (*UnlockResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UnlockResult{
		Granted:         true,
		AlreadyUnlocked: true,
		TokenBalance:    user.TokenBalance,
	}, nil
}
