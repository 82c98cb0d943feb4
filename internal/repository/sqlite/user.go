package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/rahat/lenslock/internal/apperror"
	"github.com/rahat/lenslock/internal/model"
	"github.com/rahat/lenslock/internal/repository"
)

// UserStore is the account store. It owns the token_balance column, and its
// Credit/TryDebit methods are the only code paths that change it.
type UserStore struct {
	conn *sql.DB
}

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// Create inserts a new user with a zero token balance.
// A duplicate email surfaces as apperror.ErrConflict.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.TokenBalance = 0 // every account starts empty

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, is_creator, token_balance, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.IsCreator,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getOne(ctx, `WHERE id = ?`, id)
}

// GetByEmail retrieves a user by email, used by the login flow.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getOne(ctx, `WHERE email = ?`, email)
}

func (s *UserStore) getOne(ctx context.Context, where string, arg string) (*model.User, error) {
	var u model.User
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, is_creator, token_balance, created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.IsCreator,
		&u.TokenBalance,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", arg)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", arg, err)
	}
	return &u, nil
}

// Credit atomically adds amount to the user's balance and returns the new
// balance.
//
// The increment happens inside a single UPDATE with RETURNING, so a
// concurrent TryDebit can never interleave between our read and our write —
// there is no separate read. Amount validation (> 0) belongs to the service
// layer; the store only guards against unknown users.
func (s *UserStore) Credit(ctx context.Context, userID string, amount int64) (int64, error) {
	var balance int64
	err := withBusyRetry(ctx, func() error {
		return s.conn.QueryRowContext(ctx,
			`UPDATE users
			 SET token_balance = token_balance + ?, updated_at = ?
			 WHERE id = ?
			 RETURNING token_balance`,
			amount, time.Now().UTC(), userID,
		).Scan(&balance)
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apperror.NotFound("user", userID)
		}
		return 0, fmt.Errorf("sqlite: crediting user %s: %w", userID, err)
	}
	return balance, nil
}

// TryDebit atomically subtracts amount from the balance only if the current
// balance covers it, reporting whether the debit happened.
//
// THE CONDITIONAL UPDATE IS THE WHOLE TRICK:
//
//	UPDATE users SET token_balance = token_balance - ?
//	WHERE id = ? AND token_balance >= ?
//
// SQLite evaluates the WHERE clause and applies the decrement as one
// indivisible step. Two concurrent debits against a balance that only covers
// one of them cannot both match the predicate — exactly one wins, the other
// sees RowsAffected == 0. This replaces the read-check-write sequence that
// would let both callers pass the balance check before either subtracts.
//
// RowsAffected == 0 is ambiguous between "insufficient funds" and "no such
// user", so we look the user up to tell them apart: insufficient funds is a
// normal (false, nil) outcome, an unknown user is an error.
func (s *UserStore) TryDebit(ctx context.Context, userID string, amount int64) (bool, error) {
	if amount < 0 {
		return false, apperror.ValidationFailed("amount", "debit amount must not be negative")
	}

	var res sql.Result
	err := withBusyRetry(ctx, func() error {
		var execErr error
		res, execErr = s.conn.ExecContext(ctx,
			`UPDATE users
			 SET token_balance = token_balance - ?, updated_at = ?
			 WHERE id = ? AND token_balance >= ?`,
			amount, time.Now().UTC(), userID, amount,
		)
		return execErr
	})
	if err != nil {
		return false, fmt.Errorf("sqlite: debiting user %s: %w", userID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	// Distinguish "not enough tokens" from "unknown user".
	if _, err := s.GetByID(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}
