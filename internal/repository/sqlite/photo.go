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

// PhotoStore is the catalog store. From the wallet core's point of view it
// is read-only — writes come from the catalog management surface.
type PhotoStore struct {
	conn *sql.DB
}

var _ repository.PhotoRepository = (*PhotoStore)(nil)

// Create inserts a new photo.
func (s *PhotoStore) Create(ctx context.Context, photo *model.Photo) error {
	photo.ID = xid.New().String()
	now := time.Now().UTC()
	photo.CreatedAt = now
	photo.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO photos (id, creator_id, title, description, price_tokens, preview_url, original_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		photo.ID,
		photo.CreatorID,
		photo.Title,
		photo.Description,
		photo.PriceTokens,
		photo.PreviewURL,
		photo.OriginalURL,
		photo.CreatedAt,
		photo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating photo: %w", err)
	}

	return nil
}

// GetByID retrieves a single photo, including its price and original URL.
// The service layer decides how much of it the caller may see.
func (s *PhotoStore) GetByID(ctx context.Context, id string) (*model.Photo, error) {
	var p model.Photo
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, creator_id, title, description, price_tokens, preview_url, original_url, created_at, updated_at
		 FROM photos
		 WHERE id = ?`,
		id,
	).Scan(
		&p.ID,
		&p.CreatorID,
		&p.Title,
		&p.Description,
		&p.PriceTokens,
		&p.PreviewURL,
		&p.OriginalURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("photo", id)
		}
		return nil, fmt.Errorf("sqlite: getting photo %s: %w", id, err)
	}

	return &p, nil
}

// List retrieves photos newest-first with LIMIT/OFFSET pagination.
func (s *PhotoStore) List(ctx context.Context, opts repository.ListOptions) ([]model.Photo, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, creator_id, title, description, price_tokens, preview_url, original_url, created_at, updated_at
		 FROM photos
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing photos: %w", err)
	}
	defer rows.Close()

	photos := make([]model.Photo, 0, limit)
	for rows.Next() {
		var p model.Photo
		if err := rows.Scan(
			&p.ID, &p.CreatorID, &p.Title, &p.Description, &p.PriceTokens,
			&p.PreviewURL, &p.OriginalURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning photo row: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating photos: %w", err)
	}

	return photos, nil
}
