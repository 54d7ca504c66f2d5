package settings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
)

type countingRepo struct {
	*MemoryRepository
	gets int
	err  error
}

func (c *countingRepo) Get(ctx context.Context) (*Config, error) {
	c.gets++
	if c.err != nil {
		return nil, c.err
	}
	return c.MemoryRepository.Get(ctx)
}

func TestServiceSetValidates(t *testing.T) {
	svc := NewService(NewMemoryRepository(scheduling.DefaultLimits()))

	_, err := svc.Set(context.Background(), scheduling.Limits{MaxDailyAppointments: 0, MaxPerHour: 3})
	assert.ErrorIs(t, err, scheduling.ErrInvalidLimits)
	_, err = svc.Set(context.Background(), scheduling.Limits{MaxDailyAppointments: 10, MaxPerHour: -1})
	assert.ErrorIs(t, err, scheduling.ErrInvalidLimits)

	cfg, err := svc.Set(context.Background(), scheduling.Limits{MaxDailyAppointments: 12, MaxPerHour: 2})
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.MaxDailyAppointments)

	limits, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scheduling.Limits{MaxDailyAppointments: 12, MaxPerHour: 2}, limits)
}

func TestMemoryRepositoryFallsBackToDefaults(t *testing.T) {
	repo := NewMemoryRepository(scheduling.Limits{})
	cfg, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scheduling.DefaultLimits(), cfg.Limits)
}

func TestCachedRepositoryReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	backing := &countingRepo{MemoryRepository: NewMemoryRepository(scheduling.DefaultLimits())}
	cache := NewCachedRepository(backing, client, time.Minute, nil)
	ctx := context.Background()

	first, err := cache.Get(ctx)
	require.NoError(t, err)
	second, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Limits, second.Limits)
	assert.Equal(t, 1, backing.gets)
	assert.True(t, mr.Exists(cacheKey))
	assert.Equal(t, time.Minute, mr.TTL(cacheKey))

	_, err = cache.Set(ctx, scheduling.Limits{MaxDailyAppointments: 8, MaxPerHour: 1})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cacheKey), "set must invalidate")

	third, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, third.MaxDailyAppointments)
	assert.Equal(t, 2, backing.gets)
}

func TestCachedRepositorySurvivesRedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	backing := &countingRepo{MemoryRepository: NewMemoryRepository(scheduling.DefaultLimits())}
	cache := NewCachedRepository(backing, client, time.Minute, nil)
	mr.Close()

	cfg, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scheduling.DefaultLimits(), cfg.Limits)

	_, err = cache.Set(context.Background(), scheduling.Limits{MaxDailyAppointments: 5, MaxPerHour: 1})
	require.NoError(t, err)
}

func TestCachedRepositoryDiscardsCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set(cacheKey, "{not json"))
	backing := &countingRepo{MemoryRepository: NewMemoryRepository(scheduling.DefaultLimits())}
	cache := NewCachedRepository(backing, client, time.Minute, nil)

	cfg, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.MaxDailyAppointments)
	assert.Equal(t, 1, backing.gets)
}

func TestCachedRepositoryPropagatesBackingError(t *testing.T) {
	backing := &countingRepo{MemoryRepository: NewMemoryRepository(scheduling.DefaultLimits()), err: errors.New("db down")}
	cache := NewCachedRepository(backing, nil, 0, nil)
	_, err := cache.Get(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestPostgresRepositorySeedsDefaults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newPostgresRepositoryWithDB(mock, scheduling.Limits{MaxDailyAppointments: 40, MaxPerHour: 4})
	now := time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT max_daily_appointments").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO appointment_config").WithArgs(40, 4).
		WillReturnRows(pgxmock.NewRows([]string{"max_daily_appointments", "max_per_hour", "updated_at"}).AddRow(40, 4, now))

	cfg, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.MaxDailyAppointments)
	assert.Equal(t, 4, cfg.MaxPerHour)

	mock.ExpectQuery("SELECT max_daily_appointments").
		WillReturnRows(pgxmock.NewRows([]string{"max_daily_appointments", "max_per_hour", "updated_at"}).AddRow(25, 2, now))
	cfg, err = repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.MaxDailyAppointments)

	mock.ExpectQuery("ON CONFLICT").WithArgs(20, 5).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))
	cfg, err = repo.Set(context.Background(), scheduling.Limits{MaxDailyAppointments: 20, MaxPerHour: 5})
	require.NoError(t, err)
	assert.Equal(t, now, cfg.UpdatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerUpdate(t *testing.T) {
	h := NewHandler(NewService(NewMemoryRepository(scheduling.DefaultLimits())), nil)

	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPut, "/admin/appointments/config", strings.NewReader(`{"max_daily_appointments":0,"max_per_hour":3}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPut, "/admin/appointments/config", strings.NewReader(`{"max_daily_appointments":50,"max_per_hour":6}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/appointments/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"max_daily_appointments":50`)
	assert.Contains(t, rec.Body.String(), `"max_per_hour":6`)
}
