package model

import "time"

// Photo is a priced catalog item published by a creator.
//
// OriginalURL points at the full-resolution content a buyer pays for, so it
// is tagged `json:"-"` — it must never ride along in a generic serialization.
// Handlers that are allowed to reveal it (detail view for an unlocked photo)
// copy it into an explicit response type instead.
//
// PriceTokens is fixed by the creator at publish time. Grants record the
// price that was actually paid, so later price edits never rewrite history.
type Photo struct {
	ID          string    `json:"id"          db:"id"`
	CreatorID   string    `json:"creatorId"   db:"creator_id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	PriceTokens int64     `json:"priceTokens" db:"price_tokens"`
	PreviewURL  string    `json:"previewUrl"  db:"preview_url"`
	OriginalURL string    `json:"-"           db:"original_url"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}
