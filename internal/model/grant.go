package model

import "time"

// Grant records that a user has permanently unlocked one photo.
//
// The (UserID, PhotoID) pair is unique — at most one grant ever exists for
// it, enforced by a UNIQUE index in the ledger table. That single constraint
// is what makes unlock idempotent and what stops two racing requests from
// both charging the user.
//
// TokensSpent is the photo's price at the moment of the grant. Grants are
// append-only: never updated, never deleted.
type Grant struct {
	ID          string    `json:"id"          db:"id"`
	UserID      string    `json:"userId"      db:"user_id"`
	PhotoID     string    `json:"photoId"     db:"photo_id"`
	TokensSpent int64     `json:"tokensSpent" db:"tokens_spent"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}
