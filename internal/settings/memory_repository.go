package settings

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
)

// MemoryRepository holds the configuration in process memory.
type MemoryRepository struct {
	mu  sync.RWMutex
	cfg Config
}

func NewMemoryRepository(defaults scheduling.Limits) *MemoryRepository {
	if defaults.Validate() != nil {
		defaults = scheduling.DefaultLimits()
	}
	return &MemoryRepository{cfg: Config{Limits: defaults, UpdatedAt: time.Now().UTC()}}
}

func (r *MemoryRepository) Get(context.Context) (*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg := r.cfg
	return &cfg, nil
}

func (r *MemoryRepository) Set(_ context.Context, limits scheduling.Limits) (*Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = Config{Limits: limits, UpdatedAt: time.Now().UTC()}
	cfg := r.cfg
	return &cfg, nil
}
