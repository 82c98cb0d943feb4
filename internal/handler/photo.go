package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rahat/lenslock/internal/apperror"
	"github.com/rahat/lenslock/internal/auth"
	"github.com/rahat/lenslock/internal/service"
)

// PhotoHandler serves the catalog: publishing (creators), the gallery
// listing, and the conditional detail view.
type PhotoHandler struct {
	svc    *service.PhotoService
	logger *slog.Logger
}

func NewPhotoHandler(svc *service.PhotoService, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{svc: svc, logger: logger}
}

type createPhotoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PriceTokens int64  `json:"priceTokens"`
	PreviewURL  string `json:"previewUrl"`
	OriginalURL string `json:"originalUrl"`
}

// HandleCreate publishes a new photo.
//
// HTTP: POST /api/photos (behind RequireAuth; creator accounts only)
func (h *PhotoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req createPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	photo, err := h.svc.Create(r.Context(), userID,
		req.Title, req.Description, req.PriceTokens, req.PreviewURL, req.OriginalURL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, photo)
}

// HandleList returns the gallery with unlocked flags for the viewer.
//
// HTTP: GET /api/photos?limit=20&offset=0 (OptionalAuth — anonymous
// browsers see everything locked)
func (h *PhotoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	listings, err := h.svc.ListFor(r.Context(), viewerID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listings)
}

// HandleGetByID returns the detail view for one photo: the original URL if
// the caller has unlocked it, the preview otherwise.
//
// HTTP: GET /api/photos/{id} (behind RequireAuth)
func (h *PhotoHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	photoID := r.PathValue("id")
	if photoID == "" {
		writeError(w, apperror.ValidationFailed("id", "photo ID is required"))
		return
	}

	detail, err := h.svc.DetailFor(r.Context(), userID, photoID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}
