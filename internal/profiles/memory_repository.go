package profiles

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type profileKey struct {
	user uuid.UUID
	name string
}

// InMemoryRepository keeps profiles in process memory.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[profileKey]*Profile
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{profiles: make(map[profileKey]*Profile)}
}

func (r *InMemoryRepository) List(_ context.Context, userID uuid.UUID) ([]*Profile, error) {
	r.mu.RLock()
	out := make([]*Profile, 0)
	for key, p := range r.profiles {
		if key.user == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ProfileName < out[j].ProfileName })
	return out, nil
}

func (r *InMemoryRepository) Get(_ context.Context, userID uuid.UUID, profileName string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[profileKey{userID, profileName}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *InMemoryRepository) Create(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := profileKey{p.UserID, p.ProfileName}
	if _, exists := r.profiles[key]; exists {
		return ErrDuplicateProfile
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	r.profiles[key] = &cp
	return nil
}

func (r *InMemoryRepository) Update(_ context.Context, currentName string, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	oldKey := profileKey{p.UserID, currentName}
	if _, ok := r.profiles[oldKey]; !ok {
		return ErrNotFound
	}
	newKey := profileKey{p.UserID, p.ProfileName}
	if newKey != oldKey {
		if _, taken := r.profiles[newKey]; taken {
			return ErrDuplicateProfile
		}
		delete(r.profiles, oldKey)
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	r.profiles[newKey] = &cp
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, userID uuid.UUID, profileName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := profileKey{userID, profileName}
	if _, ok := r.profiles[key]; !ok {
		return ErrNotFound
	}
	delete(r.profiles, key)
	return nil
}
