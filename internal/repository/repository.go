// Package repository declares the storage interfaces the services depend on.
//
// The services are written against these interfaces, never against the SQLite
// types directly. Tests inject hand-written mocks; production wires the
// implementations from repository/sqlite.
package repository

import (
	"context"

	"github.com/rahat/lenslock/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository is the account store: one balance record per user.
//
// Credit and TryDebit are the only ways a balance changes, and both must be
// indivisible with respect to each other. A read-then-write pair here would
// reopen the lost-update race the whole design exists to close.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// Credit atomically adds amount (> 0) to the user's balance and returns
	// the new balance. Fails with apperror.ErrNotFound for an unknown user.
	Credit(ctx context.Context, userID string, amount int64) (int64, error)

	// TryDebit atomically subtracts amount from the balance only if the
	// current balance covers it. Returns whether the debit happened; on
	// false the balance is untouched. Never lets the balance go negative.
	TryDebit(ctx context.Context, userID string, amount int64) (bool, error)
}

// PhotoRepository is the catalog store. The wallet core only reads prices
// from it; Create belongs to the catalog management surface.
type PhotoRepository interface {
	Create(ctx context.Context, photo *model.Photo) error
	GetByID(ctx context.Context, id string) (*model.Photo, error)
	List(ctx context.Context, opts ListOptions) ([]model.Photo, error)
}

// GrantRepository is the unlock ledger: an append-only set of grants with a
// uniqueness constraint on (userID, photoID).
//
// Append must make the existence check and the insert one indivisible step —
// two concurrent appends for the same pair must not both succeed. The loser
// gets apperror.ErrConflict, which the unlock service treats as "someone
// else already granted this" rather than a failure.
type GrantRepository interface {
	Exists(ctx context.Context, userID, photoID string) (bool, error)
	Append(ctx context.Context, grant *model.Grant) error
	ListPhotoIDs(ctx context.Context, userID string) (map[string]struct{}, error)
}
