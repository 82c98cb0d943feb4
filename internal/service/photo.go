package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rahat/lenslock/internal/apperror"
	"github.com/rahat/lenslock/internal/model"
	"github.com/rahat/lenslock/internal/repository"
)

const (
	MaxPhotoTitleLength = 200
	DefaultListLimit    = 20
	MaxListLimit        = 100
)

// PhotoService is the catalog surface: creators publish photos, everyone
// browses them, and the detail view reveals the original URL only to users
// who hold a grant.
type PhotoService struct {
	photos repository.PhotoRepository
	grants repository.GrantRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewPhotoService(
	photos repository.PhotoRepository,
	grants repository.GrantRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *PhotoService {
	return &PhotoService{
		photos: photos,
		grants: grants,
		users:  users,
		logger: logger,
	}
}

// PhotoListing is one row of the gallery: the public photo fields plus
// whether this viewer has unlocked it. model.Photo keeps OriginalURL out of
// JSON on its own, so embedding is safe here.
type PhotoListing struct {
	model.Photo
	Unlocked bool `json:"unlocked"`
}

// PhotoDetail is the single-photo view. Exactly one of PreviewURL /
// OriginalURL is set: the preview for locked photos, the original for
// unlocked ones. Never both — handing the original URL to a viewer without
// a grant would give the content away for free.
type PhotoDetail struct {
	ID          string `json:"id"`
	CreatorID   string `json:"creatorId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PriceTokens int64  `json:"priceTokens"`
	PreviewURL  string `json:"previewUrl,omitempty"`
	OriginalURL string `json:"originalUrl,omitempty"`
	Unlocked    bool   `json:"unlocked"`
}

// Create publishes a new photo. Only creator accounts may publish.
func (s *PhotoService) Create(ctx context.Context, creatorID, title, description string, priceTokens int64, previewURL, originalURL string) (*model.Photo, error) {
	creator, err := s.users.GetByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !creator.IsCreator {
		return nil, apperror.Forbidden("only creators can publish photos")
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "photo title is required")
	}
	if len(title) > MaxPhotoTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("photo title must be %d characters or less", MaxPhotoTitleLength))
	}
	if priceTokens < 0 {
		return nil, apperror.ValidationFailed("priceTokens", "price must not be negative")
	}
	if strings.TrimSpace(previewURL) == "" {
		return nil, apperror.ValidationFailed("previewUrl", "preview URL is required")
	}
	if strings.TrimSpace(originalURL) == "" {
		return nil, apperror.ValidationFailed("originalUrl", "original URL is required")
	}

	photo := &model.Photo{
		CreatorID:   creatorID,
		Title:       title,
		Description: strings.TrimSpace(description),
		PriceTokens: priceTokens,
		PreviewURL:  strings.TrimSpace(previewURL),
		OriginalURL: strings.TrimSpace(originalURL),
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		s.logger.Error("failed to create photo",
			slog.String("creatorID", creatorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating photo: %w", err)
	}

	s.logger.Info("photo published",
		slog.String("id", photo.ID),
		slog.String("creatorID", creatorID),
		slog.Int64("priceTokens", photo.PriceTokens),
	)

	return photo, nil
}

// ListFor returns the gallery with the unlocked flag computed for viewerID.
// An empty viewerID means an anonymous browser: everything shows as locked.
func (s *PhotoService) ListFor(ctx context.Context, viewerID string, limit, offset int) ([]PhotoListing, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	photos, err := s.photos.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to list photos", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing photos: %w", err)
	}

	// One ledger query for the whole page, not one per photo.
	unlocked := map[string]struct{}{}
	if viewerID != "" {
		unlocked, err = s.grants.ListPhotoIDs(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("listing grants: %w", err)
		}
	}

	listings := make([]PhotoListing, 0, len(photos))
	for _, p := range photos {
		_, has := unlocked[p.ID]
		listings = append(listings, PhotoListing{Photo: p, Unlocked: has})
	}
	return listings, nil
}

// DetailFor returns the single-photo view for viewerID.
//
// The confidentiality rule lives here: OriginalURL is copied into the
// response only when the ledger holds a grant for (viewer, photo). Handlers
// get a struct that already has the right fields blanked — there is no
// "full" object for them to leak by accident.
func (s *PhotoService) DetailFor(ctx context.Context, viewerID, photoID string) (*PhotoDetail, error) {
	if photoID == "" {
		return nil, apperror.ValidationFailed("photoId", "photo ID is required")
	}

	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}

	unlocked := false
	if viewerID != "" {
		unlocked, err = s.grants.Exists(ctx, viewerID, photoID)
		if err != nil {
			return nil, fmt.Errorf("checking grant: %w", err)
		}
	}

	detail := &PhotoDetail{
		ID:          photo.ID,
		CreatorID:   photo.CreatorID,
		Title:       photo.Title,
		Description: photo.Description,
		PriceTokens: photo.PriceTokens,
		Unlocked:    unlocked,
	}
	if unlocked {
		detail.OriginalURL = photo.OriginalURL
	} else {
		detail.PreviewURL = photo.PreviewURL
	}
	return detail, nil
}
