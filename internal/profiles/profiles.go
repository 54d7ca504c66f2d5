// Package profiles stores saved patient details used to pre-fill bookings.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/hospital-booking-platform/internal/appointments"
)

var (
	ErrNotFound         = errors.New("profiles: profile not found")
	ErrDuplicateProfile = errors.New("profiles: you already have a profile with this name")
	ErrInvalidProfile   = errors.New("profiles: invalid profile")
)

// Profile is a named set of patient details owned by one user.
type Profile struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"-"`
	ProfileName string           `json:"profile_name"`
	Name        string           `json:"name"`
	Age         int              `json:"age"`
	Sex         appointments.Sex `json:"sex"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Input is the editable part of a profile.
type Input struct {
	ProfileName string `json:"profile_name"`
	Name        string `json:"name"`
	Age         int    `json:"age"`
	Sex         string `json:"sex"`
}

func (in Input) normalize() (Input, appointments.Sex, error) {
	in.ProfileName = strings.TrimSpace(in.ProfileName)
	in.Name = strings.TrimSpace(in.Name)
	if in.ProfileName == "" {
		return in, "", fmt.Errorf("%w: profile_name is required", ErrInvalidProfile)
	}
	if in.Name == "" {
		return in, "", fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if in.Age <= 0 {
		return in, "", fmt.Errorf("%w: age must be positive", ErrInvalidProfile)
	}
	sex, err := appointments.ParseSex(in.Sex)
	if err != nil {
		return in, "", fmt.Errorf("%w: sex must be one of M, F, O", ErrInvalidProfile)
	}
	return in, sex, nil
}

// Repository persists profiles. Names are unique per user.
type Repository interface {
	List(ctx context.Context, userID uuid.UUID) ([]*Profile, error)
	Get(ctx context.Context, userID uuid.UUID, profileName string) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	// Update rewrites the profile stored under currentName.
	Update(ctx context.Context, currentName string, p *Profile) error
	Delete(ctx context.Context, userID uuid.UUID, profileName string) error
}

// Service applies validation on top of a Repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	if repo == nil {
		panic("profiles: repository required")
	}
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Profile, error) {
	return s.repo.List(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID, profileName string) (*Profile, error) {
	return s.repo.Get(ctx, userID, strings.TrimSpace(profileName))
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (*Profile, error) {
	in, sex, err := in.normalize()
	if err != nil {
		return nil, err
	}
	p := &Profile{
		ID:          uuid.New(),
		UserID:      userID,
		ProfileName: in.ProfileName,
		Name:        in.Name,
		Age:         in.Age,
		Sex:         sex,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces the profile stored under profileName. Renaming onto another
// existing profile name fails with ErrDuplicateProfile.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, profileName string, in Input) (*Profile, error) {
	profileName = strings.TrimSpace(profileName)
	if strings.TrimSpace(in.ProfileName) == "" {
		in.ProfileName = profileName
	}
	in, sex, err := in.normalize()
	if err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, userID, profileName)
	if err != nil {
		return nil, err
	}
	current.ProfileName = in.ProfileName
	current.Name = in.Name
	current.Age = in.Age
	current.Sex = sex
	if err := s.repo.Update(ctx, profileName, current); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *Service) Delete(ctx context.Context, userID uuid.UUID, profileName string) error {
	return s.repo.Delete(ctx, userID, strings.TrimSpace(profileName))
}

// PrefillFor returns the patient block for a booking. A missing profile is
// reported as appointments.ErrProfileNotFound.
func (s *Service) PrefillFor(ctx context.Context, userID uuid.UUID, profileName string) (appointments.Patient, error) {
	p, err := s.Get(ctx, userID, profileName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return appointments.Patient{}, fmt.Errorf("%w: %w", appointments.ErrProfileNotFound, err)
		}
		return appointments.Patient{}, err
	}
	return appointments.Patient{Name: p.Name, Age: p.Age, Sex: p.Sex}, nil
}
