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

// GrantStore is the unlock ledger: append-only, one grant per
// (user, photo) pair.
type GrantStore struct {
	conn *sql.DB
}

var _ repository.GrantRepository = (*GrantStore)(nil)

// Exists reports whether a grant for the pair is already on the ledger.
// This is the cheap idempotency fast path — a plain read, no locking.
func (s *GrantStore) Exists(ctx context.Context, userID, photoID string) (bool, error) {
	var one int
	err := s.conn.QueryRowContext(ctx,
		`SELECT 1 FROM unlocks WHERE user_id = ? AND photo_id = ?`,
		userID, photoID,
	).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("sqlite: checking grant (%s, %s): %w", userID, photoID, err)
	}
	return true, nil
}

// Append inserts a grant for the pair, failing with apperror.ErrConflict if
// one already exists.
//
// The check and the insert are NOT two steps here — the UNIQUE(user_id,
// photo_id) index makes the INSERT itself the check. Under a race, exactly
// one of the concurrent inserts lands; every other one gets the constraint
// violation. The unlock service relies on that conflict to know it lost the
// race and must refund the debit it already took.
func (s *GrantStore) Append(ctx context.Context, grant *model.Grant) error {
	grant.ID = xid.New().String()
	grant.CreatedAt = time.Now().UTC()

	err := withBusyRetry(ctx, func() error {
		_, execErr := s.conn.ExecContext(ctx,
			`INSERT INTO unlocks (id, user_id, photo_id, tokens_spent, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			grant.ID,
			grant.UserID,
			grant.PhotoID,
			grant.TokensSpent,
			grant.CreatedAt,
		)
		return execErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("grant", grant.UserID+"/"+grant.PhotoID)
		}
		return fmt.Errorf("sqlite: appending grant (%s, %s): %w", grant.UserID, grant.PhotoID, err)
	}

	return nil
}

// ListPhotoIDs returns the set of photo IDs the user has unlocked. Used to
// stamp the unlocked flag onto photo listings with one query instead of one
// per photo.
func (s *GrantStore) ListPhotoIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT photo_id FROM unlocks WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing grants for user %s: %w", userID, err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning grant row: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating grants: %w", err)
	}

	return ids, nil
}
