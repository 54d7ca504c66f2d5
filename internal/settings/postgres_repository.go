package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository keeps the configuration in a single-row table.
type PostgresRepository struct {
	db       rowQuerier
	defaults scheduling.Limits
}

func NewPostgresRepository(pool *pgxpool.Pool, defaults scheduling.Limits) *PostgresRepository {
	if pool == nil {
		panic("settings: pgx pool required")
	}
	return newPostgresRepositoryWithDB(pool, defaults)
}

func newPostgresRepositoryWithDB(db rowQuerier, defaults scheduling.Limits) *PostgresRepository {
	if defaults.Validate() != nil {
		defaults = scheduling.DefaultLimits()
	}
	return &PostgresRepository{db: db, defaults: defaults}
}

func (r *PostgresRepository) Get(ctx context.Context) (*Config, error) {
	var cfg Config
	err := r.db.QueryRow(ctx, `SELECT max_daily_appointments, max_per_hour, updated_at FROM appointment_config WHERE id = 1`).
		Scan(&cfg.MaxDailyAppointments, &cfg.MaxPerHour, &cfg.UpdatedAt)
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("settings: get: %w", err)
	}

	// First read: seed the row. A concurrent seed wins and is re-read.
	query := `
		INSERT INTO appointment_config (id, max_daily_appointments, max_per_hour, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET id = appointment_config.id
		RETURNING max_daily_appointments, max_per_hour, updated_at
	`
	err = r.db.QueryRow(ctx, query, r.defaults.MaxDailyAppointments, r.defaults.MaxPerHour).
		Scan(&cfg.MaxDailyAppointments, &cfg.MaxPerHour, &cfg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("settings: seed: %w", err)
	}
	return &cfg, nil
}

func (r *PostgresRepository) Set(ctx context.Context, limits scheduling.Limits) (*Config, error) {
	query := `
		INSERT INTO appointment_config (id, max_daily_appointments, max_per_hour, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET max_daily_appointments = EXCLUDED.max_daily_appointments,
			max_per_hour = EXCLUDED.max_per_hour,
			updated_at = now()
		RETURNING updated_at
	`
	cfg := Config{Limits: limits}
	if err := r.db.QueryRow(ctx, query, limits.MaxDailyAppointments, limits.MaxPerHour).Scan(&cfg.UpdatedAt); err != nil {
		return nil, fmt.Errorf("settings: save: %w", err)
	}
	return &cfg, nil
}
