// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// TokenBalance is an int64: tokens are an integral in-app currency, and
// integer arithmetic avoids float rounding on anything money-adjacent.
//
// The balance is the only field the wallet and unlock services may mutate,
// and it must never be observable below zero. The SQLite schema backs this
// with a CHECK constraint; the repository enforces it with a conditional
// UPDATE (see UserStore.TryDebit).
//
// PasswordHash carries the bcrypt hash, never the plaintext. The `json:"-"`
// tag keeps it out of every API response no matter which handler serializes
// the struct.
type User struct {
	ID           string    `json:"id"           db:"id"`
	Email        string    `json:"email"        db:"email"`
	PasswordHash string    `json:"-"            db:"password_hash"`
	IsCreator    bool      `json:"isCreator"    db:"is_creator"`
	TokenBalance int64     `json:"tokenBalance" db:"token_balance"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}
