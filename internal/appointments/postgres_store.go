package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
)

const appointmentColumns = `id, user_id, patient_name, age, sex, appointment_date, appointment_time,
	department, doctor, token_number, payment_status, payment_ref, created_at`

// retryable SQLSTATEs: unique_violation, serialization_failure, deadlock_detected.
var conflictCodes = map[string]struct{}{
	"23505": {},
	"40001": {},
	"40P01": {},
}

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txBeginner interface {
	rowQuerier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore persists appointments in Postgres. Booking transactions take
// a transaction-scoped advisory lock keyed by the appointment date.
type PostgresStore struct {
	db txBeginner
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithDB(db txBeginner) *PostgresStore {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithDateLock(ctx context.Context, day scheduling.Day, fn func(ctx context.Context, tx DayTx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return classify("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey(day)); err != nil {
		return classify("lock date", err)
	}
	if err := fn(ctx, &pgDayTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit", err)
	}
	return nil
}

func (s *PostgresStore) GetForUser(ctx context.Context, userID, id uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND user_id = $2`
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return appt, nil
}

func (s *PostgresStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE user_id = $1
		ORDER BY appointment_date, appointment_time`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	out := make([]*Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetPaymentRef(ctx context.Context, userID, id uuid.UUID, ref string) error {
	query := `
		UPDATE appointments SET payment_ref = $3
		WHERE id = $1 AND user_id = $2 AND payment_status = 'Pending'
		RETURNING id
	`
	var got uuid.UUID
	if err := s.db.QueryRow(ctx, query, id, userID, ref).Scan(&got); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("appointments: set payment ref: %w", err)
		}
		appt, getErr := s.GetForUser(ctx, userID, id)
		if getErr != nil {
			return getErr
		}
		if appt.PaymentStatus == PaymentPaid {
			return ErrAlreadyPaid
		}
		return fmt.Errorf("appointments: set payment ref: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkPaid(ctx context.Context, userID uuid.UUID, ref string) (*Appointment, error) {
	query := `
		UPDATE appointments SET payment_status = 'Paid'
		WHERE ($1::uuid = '00000000-0000-0000-0000-000000000000' OR user_id = $1)
			AND payment_ref = $2 AND payment_status = 'Pending'
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, userID, ref))
	if err == nil {
		return appt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("appointments: mark paid: %w", err)
	}

	var status string
	err = s.db.QueryRow(ctx, `SELECT payment_status FROM appointments
		WHERE ($1::uuid = '00000000-0000-0000-0000-000000000000' OR user_id = $1) AND payment_ref = $2`, userID, ref).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: mark paid lookup: %w", err)
	}
	if PaymentStatus(status) == PaymentPaid {
		return nil, ErrAlreadyPaid
	}
	return nil, fmt.Errorf("appointments: mark paid: unexpected status %q", status)
}

type pgDayTx struct {
	q rowQuerier
}

func (t *pgDayTx) CountOnDate(ctx context.Context, day scheduling.Day, excludeID uuid.UUID) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM appointments WHERE appointment_date = $1 AND id <> $2`
	if err := t.q.QueryRow(ctx, query, day.Time(), excludeID).Scan(&n); err != nil {
		return 0, classify("count date", err)
	}
	return n, nil
}

func (t *pgDayTx) CountInHour(ctx context.Context, day scheduling.Day, hour int, excludeID uuid.UUID) (int, error) {
	var n int
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE appointment_date = $1 AND EXTRACT(HOUR FROM appointment_time) = $2 AND id <> $3
	`
	if err := t.q.QueryRow(ctx, query, day.Time(), hour, excludeID).Scan(&n); err != nil {
		return 0, classify("count hour", err)
	}
	return n, nil
}

func (t *pgDayTx) MaxToken(ctx context.Context, day scheduling.Day) (int, error) {
	var highest int
	query := `SELECT COALESCE(MAX(token_number), 0) FROM appointments WHERE appointment_date = $1`
	if err := t.q.QueryRow(ctx, query, day.Time()).Scan(&highest); err != nil {
		return 0, classify("max token", err)
	}
	return highest, nil
}

func (t *pgDayTx) LockAppointment(ctx context.Context, userID, id uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND user_id = $2 FOR UPDATE`
	appt, err := scanAppointment(t.q.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("lock appointment", err)
	}
	return appt, nil
}

func (t *pgDayTx) Insert(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments (id, user_id, patient_name, age, sex, appointment_date, appointment_time,
			department, doctor, token_number, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err := t.q.QueryRow(ctx, query,
		appt.ID, appt.UserID, appt.Name, appt.Age, string(appt.Sex), appt.Date.Time(), toPGClock(appt.Time),
		appt.Department, appt.Doctor, appt.TokenNumber, string(appt.PaymentStatus),
	).Scan(&appt.CreatedAt)
	if err != nil {
		return classify("insert", err)
	}
	return nil
}

func (t *pgDayTx) Reschedule(ctx context.Context, appt *Appointment) error {
	query := `
		UPDATE appointments
		SET appointment_date = $3, appointment_time = $4, token_number = $5
		WHERE id = $1 AND user_id = $2
	`
	ct, err := t.q.Exec(ctx, query, appt.ID, appt.UserID, appt.Date.Time(), toPGClock(appt.Time), appt.TokenNumber)
	if err != nil {
		return classify("reschedule", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt   Appointment
		sex    string
		date   time.Time
		clock  pgtype.Time
		token  pgtype.Int4
		status string
		ref    pgtype.Text
	)
	err := row.Scan(&appt.ID, &appt.UserID, &appt.Name, &appt.Age, &sex, &date, &clock,
		&appt.Department, &appt.Doctor, &token, &status, &ref, &appt.CreatedAt)
	if err != nil {
		return nil, err
	}
	appt.Sex = Sex(sex)
	appt.Date = scheduling.DayOf(date)
	appt.Time = scheduling.ClockFromSeconds(clock.Microseconds / int64(time.Second/time.Microsecond))
	if token.Valid {
		appt.TokenNumber = int(token.Int32)
	}
	appt.PaymentStatus = PaymentStatus(status)
	if ref.Valid {
		s := ref.String
		appt.PaymentRef = &s
	}
	return &appt, nil
}

func toPGClock(c scheduling.Clock) pgtype.Time {
	return pgtype.Time{Microseconds: c.Seconds() * int64(time.Second/time.Microsecond), Valid: true}
}

func lockKey(day scheduling.Day) string {
	return "appointments:" + day.String()
}

// classify wraps err, marking retryable Postgres conflicts with ErrStoreConflict.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := conflictCodes[pgErr.Code]; ok {
			return fmt.Errorf("appointments: %s: %w: %s", op, ErrStoreConflict, pgErr.Message)
		}
	}
	return fmt.Errorf("appointments: %s: %w", op, err)
}
