package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/hospital-booking-platform/internal/appointments"
)

const profileColumns = `id, user_id, profile_name, patient_name, age, sex, created_at, updated_at`

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores profiles in patient_profiles, with a unique
// index on (user_id, profile_name).
type PostgresRepository struct {
	db rowQuerier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("profiles: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db rowQuerier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, userID uuid.UUID) ([]*Profile, error) {
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM patient_profiles WHERE user_id = $1 ORDER BY profile_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("profiles: list: %w", err)
	}
	defer rows.Close()

	out := make([]*Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("profiles: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, userID uuid.UUID, profileName string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM patient_profiles WHERE user_id = $1 AND profile_name = $2`
	p, err := scanProfile(r.db.QueryRow(ctx, query, userID, profileName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("profiles: get: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO patient_profiles (id, user_id, profile_name, patient_name, age, sex)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, p.ID, p.UserID, p.ProfileName, p.Name, p.Age, string(p.Sex)).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapWriteErr("create", err)
}

func (r *PostgresRepository) Update(ctx context.Context, currentName string, p *Profile) error {
	query := `
		UPDATE patient_profiles
		SET profile_name = $3, patient_name = $4, age = $5, sex = $6, updated_at = now()
		WHERE user_id = $1 AND profile_name = $2
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, p.UserID, currentName, p.ProfileName, p.Name, p.Age, string(p.Sex)).Scan(&p.UpdatedAt)
	return mapWriteErr("update", err)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID uuid.UUID, profileName string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM patient_profiles WHERE user_id = $1 AND profile_name = $2`, userID, profileName)
	if err != nil {
		return fmt.Errorf("profiles: delete: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateProfile
	}
	return fmt.Errorf("profiles: %s: %w", op, err)
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var (
		p   Profile
		sex string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.ProfileName, &p.Name, &p.Age, &sex, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Sex = appointments.Sex(sex)
	return &p, nil
}
