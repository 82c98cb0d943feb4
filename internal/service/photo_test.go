package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rahat/lenslock/internal/apperror"
	"github.com/rahat/lenslock/internal/model"
)

func newTestPhotoService() (*PhotoService, *mockUserRepo, *mockPhotoRepo, *mockGrantRepo) {
	users := newMockUserRepo()
	photos := newMockPhotoRepo()
	grants := newMockGrantRepo()
	svc := NewPhotoService(photos, grants, users, testLogger())
	return svc, users, photos, grants
}

func TestPhotoCreate(t *testing.T) {
	svc, users, _, _ := newTestPhotoService()
	creatorID := users.addUser(0, true)

	photo, err := svc.Create(context.Background(), creatorID,
		"  Sunset  ", "over the bay", 30,
		"https://cdn.example.com/p/1", "https://cdn.example.com/o/1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if photo.Title != "Sunset" {
		t.Errorf("Title = %q, want trimmed %q", photo.Title, "Sunset")
	}
	if photo.PriceTokens != 30 {
		t.Errorf("PriceTokens = %d, want 30", photo.PriceTokens)
	}
}

func TestPhotoCreate_NonCreatorForbidden(t *testing.T) {
	svc, users, _, _ := newTestPhotoService()
	viewerID := users.addUser(0, false)

	_, err := svc.Create(context.Background(), viewerID,
		"Nope", "", 10, "https://p", "https://o")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestPhotoCreate_Validation(t *testing.T) {
	svc, users, _, _ := newTestPhotoService()
	creatorID := users.addUser(0, true)

	cases := []struct {
		name                            string
		title, preview, original        string
		price                           int64
	}{
		{"empty title", "", "https://p", "https://o", 10},
		{"negative price", "t", "https://p", "https://o", -1},
		{"missing preview", "t", "", "https://o", 10},
		{"missing original", "t", "https://p", "", 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), creatorID,
				tc.title, "", tc.price, tc.preview, tc.original)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestListFor_UnlockedFlags(t *testing.T) {
	svc, users, photos, grants := newTestPhotoService()
	viewerID := users.addUser(0, false)
	owned := photos.addPhoto("creator-1", 10)
	locked := photos.addPhoto("creator-1", 10)

	if err := grants.Append(context.Background(),
		&model.Grant{UserID: viewerID, PhotoID: owned, TokensSpent: 10}); err != nil {
		t.Fatalf("setup grant: %v", err)
	}

	listings, err := svc.ListFor(context.Background(), viewerID, 10, 0)
	if err != nil {
		t.Fatalf("ListFor() error = %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("len = %d, want 2", len(listings))
	}
	for _, l := range listings {
		switch l.ID {
		case owned:
			if !l.Unlocked {
				t.Error("granted photo should be flagged unlocked")
			}
		case locked:
			if l.Unlocked {
				t.Error("ungranted photo should not be flagged unlocked")
			}
		}
	}
}

func TestListFor_AnonymousSeesEverythingLocked(t *testing.T) {
	svc, _, photos, _ := newTestPhotoService()
	photos.addPhoto("creator-1", 10)

	listings, err := svc.ListFor(context.Background(), "", 10, 0)
	if err != nil {
		t.Fatalf("ListFor() error = %v", err)
	}
	for _, l := range listings {
		if l.Unlocked {
			t.Error("anonymous viewer must not see unlocked photos")
		}
	}
}

// The confidentiality invariant: originalUrl appears if and only if a grant
// exists, and previewUrl fills the other case.
func TestDetailFor_Confidentiality(t *testing.T) {
	svc, users, photos, grants := newTestPhotoService()
	viewerID := users.addUser(0, false)
	photoID := photos.addPhoto("creator-1", 10)

	detail, err := svc.DetailFor(context.Background(), viewerID, photoID)
	if err != nil {
		t.Fatalf("DetailFor() error = %v", err)
	}
	if detail.Unlocked {
		t.Error("Unlocked = true without a grant")
	}
	if detail.OriginalURL != "" {
		t.Error("originalUrl leaked to a viewer without a grant")
	}
	if detail.PreviewURL == "" {
		t.Error("locked detail should carry the preview URL")
	}

	if err := grants.Append(context.Background(),
		&model.Grant{UserID: viewerID, PhotoID: photoID, TokensSpent: 10}); err != nil {
		t.Fatalf("setup grant: %v", err)
	}

	detail, err = svc.DetailFor(context.Background(), viewerID, photoID)
	if err != nil {
		t.Fatalf("DetailFor() error = %v", err)
	}
	if !detail.Unlocked {
		t.Error("Unlocked = false with a grant")
	}
	if detail.OriginalURL == "" {
		t.Error("unlocked detail should carry the original URL")
	}
	if detail.PreviewURL != "" {
		t.Error("unlocked detail should not carry the preview URL")
	}
}

func TestDetailFor_PhotoNotFound(t *testing.T) {
	svc, users, _, _ := newTestPhotoService()
	viewerID := users.addUser(0, false)

	_, err := svc.DetailFor(context.Background(), viewerID, "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
