// Package settings stores the hospital-wide appointment capacity limits.
package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
)

// Config is the single appointment configuration record.
type Config struct {
	scheduling.Limits
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository loads and saves the configuration record.
type Repository interface {
	// Get returns the record, creating it from defaults when absent.
	Get(ctx context.Context) (*Config, error)
	Set(ctx context.Context, limits scheduling.Limits) (*Config, error)
}

// Service validates changes and satisfies appointments.LimitsSource.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	if repo == nil {
		panic("settings: repository required")
	}
	return &Service{repo: repo}
}

// Get returns the current limits.
func (s *Service) Get(ctx context.Context) (scheduling.Limits, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return scheduling.Limits{}, err
	}
	return cfg.Limits, nil
}

// Current returns the full record including its last update time.
func (s *Service) Current(ctx context.Context) (*Config, error) {
	return s.repo.Get(ctx)
}

// Set replaces both limits. Each must be positive.
func (s *Service) Set(ctx context.Context, limits scheduling.Limits) (*Config, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	cfg, err := s.repo.Set(ctx, limits)
	if err != nil {
		return nil, fmt.Errorf("settings: set: %w", err)
	}
	return cfg, nil
}
