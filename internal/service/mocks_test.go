package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rahat/lenslock/internal/apperror"
	"github.com/rahat/lenslock/internal/model"
	"github.com/rahat/lenslock/internal/repository"
)

// Hand-written in-memory mocks for the repository interfaces, shared by the
// service tests in this package.
//
// They are mutex-guarded and their Credit/TryDebit/Append are atomic under
// that mutex, mirroring the contract the SQLite stores provide. That makes
// them safe to hammer from goroutines in the race tests.

type mockUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

// addUser seeds an account with a balance, bypassing Create's zero-balance
// rule. Returns the generated ID.
func (m *mockUserRepo) addUser(balance int64, isCreator bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("user-%d", m.nextID)
	m.users[id] = &model.User{
		ID:           id,
		Email:        id + "@example.com",
		TokenBalance: balance,
		IsCreator:    isCreator,
	}
	return id
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.TokenBalance = 0
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copy := *u
	return &copy, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) Credit(_ context.Context, userID string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return 0, apperror.NotFound("user", userID)
	}
	u.TokenBalance += amount
	return u.TokenBalance, nil
}

func (m *mockUserRepo) TryDebit(_ context.Context, userID string, amount int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, apperror.NotFound("user", userID)
	}
	if u.TokenBalance < amount {
		return false, nil
	}
	u.TokenBalance -= amount
	return true, nil
}

type mockPhotoRepo struct {
	mu     sync.Mutex
	photos map[string]*model.Photo
	nextID int
}

func newMockPhotoRepo() *mockPhotoRepo {
	return &mockPhotoRepo{photos: make(map[string]*model.Photo)}
}

func (m *mockPhotoRepo) addPhoto(creatorID string, price int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("photo-%d", m.nextID)
	m.photos[id] = &model.Photo{
		ID:          id,
		CreatorID:   creatorID,
		Title:       id,
		PriceTokens: price,
		PreviewURL:  "https://cdn.example.com/preview/" + id,
		OriginalURL: "https://cdn.example.com/original/" + id,
	}
	return id
}

func (m *mockPhotoRepo) Create(_ context.Context, photo *model.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	photo.ID = fmt.Sprintf("photo-%d", m.nextID)
	stored := *photo
	m.photos[photo.ID] = &stored
	return nil
}

func (m *mockPhotoRepo) GetByID(_ context.Context, id string) (*model.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return nil, apperror.NotFound("photo", id)
	}
	copy := *p
	return &copy, nil
}

func (m *mockPhotoRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Photo, 0, len(m.photos))
	for _, p := range m.photos {
		result = append(result, *p)
	}
	if opts.Offset >= len(result) {
		return []model.Photo{}, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

type mockGrantRepo struct {
	mu     sync.Mutex
	grants map[string]*model.Grant // keyed by userID+"/"+photoID
	nextID int

	// appendErr, when set, is returned by the next Append call and then
	// cleared. Used to force the compensation path.
	appendErr error
}

func newMockGrantRepo() *mockGrantRepo {
	return &mockGrantRepo{grants: make(map[string]*model.Grant)}
}

func (m *mockGrantRepo) Exists(_ context.Context, userID, photoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.grants[userID+"/"+photoID]
	return ok, nil
}

func (m *mockGrantRepo) Append(_ context.Context, grant *model.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		err := m.appendErr
		m.appendErr = nil
		return err
	}
	key := grant.UserID + "/" + grant.PhotoID
	if _, ok := m.grants[key]; ok {
		return apperror.Conflict("grant", key)
	}
	m.nextID++
	grant.ID = fmt.Sprintf("grant-%d", m.nextID)
	stored := *grant
	m.grants[key] = &stored
	return nil
}

func (m *mockGrantRepo) ListPhotoIDs(_ context.Context, userID string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]struct{})
	for _, g := range m.grants {
		if g.UserID == userID {
			ids[g.PhotoID] = struct{}{}
		}
	}
	return ids, nil
}

// grantCount reports how many grants exist for the pair (0 or 1 if the
// uniqueness contract holds).
func (m *mockGrantRepo) grantCount(userID, photoID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.grants[userID+"/"+photoID]; ok {
		return 1
	}
	return 0
}
