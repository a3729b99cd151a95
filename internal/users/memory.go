package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"graintrade.org/internal/ids"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps accounts in process memory. Used in dev mode and tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]User
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]User), now: time.Now}
}

func (r *MemoryRepository) FindByUsername(_ context.Context, username string) (User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Username == username {
			return u, true, nil
		}
	}
	return User{}, false, nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	return u, ok, nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Email == email {
			return u, true, nil
		}
	}
	return User{}, false, nil
}

func (r *MemoryRepository) Create(_ context.Context, u *User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUnique(u, ""); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := r.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = *u
	return nil
}

func (r *MemoryRepository) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]User, 0, len(r.byID))
	for _, u := range r.byID {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *MemoryRepository) Update(_ context.Context, u *User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[u.ID]
	if !ok {
		return ErrNotFound
	}
	if err := r.checkUnique(u, u.ID); err != nil {
		return err
	}
	u.Disabled = existing.Disabled
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = r.now().UTC()
	r.byID[u.ID] = *u
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// checkUnique must be called with r.mu held.
func (r *MemoryRepository) checkUnique(u *User, selfID string) error {
	for id, other := range r.byID {
		if id == selfID {
			continue
		}
		if other.Username == u.Username {
			return ErrUsernameTaken
		}
		if other.Email == u.Email {
			return ErrEmailTaken
		}
	}
	return nil
}
