package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
)

// InMemoryStore keeps appointments in process memory. Each day has its own
// mutex so bookings for different dates never wait on each other.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*Appointment

	dayLocks sync.Map // scheduling.Day -> *sync.Mutex
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[uuid.UUID]*Appointment)}
}

func (s *InMemoryStore) dayLock(day scheduling.Day) *sync.Mutex {
	lock, _ := s.dayLocks.LoadOrStore(day, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// WithDateLock serialises fn against other bookings for the same day. Writes
// are staged and only applied when fn succeeds.
func (s *InMemoryStore) WithDateLock(ctx context.Context, day scheduling.Day, fn func(ctx context.Context, tx DayTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := s.dayLock(day)
	lock.Lock()
	defer lock.Unlock()

	tx := &memDayTx{store: s, locked: make(map[uuid.UUID]*Appointment)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range tx.staged {
		if err := w.check(s.rows); err != nil {
			return err
		}
	}
	for _, w := range tx.staged {
		w.apply(s.rows)
	}
	return nil
}

func (s *InMemoryStore) GetForUser(ctx context.Context, userID, id uuid.UUID) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.rows[id]
	if !ok || appt.UserID != userID {
		return nil, ErrNotFound
	}
	return clone(appt), nil
}

func (s *InMemoryStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Appointment, error) {
	s.mu.RLock()
	out := make([]*Appointment, 0)
	for _, appt := range s.rows {
		if appt.UserID == userID {
			out = append(out, clone(appt))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time.Seconds() < out[j].Time.Seconds()
	})
	return out, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.rows[id]
	if !ok || appt.UserID != userID {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *InMemoryStore) SetPaymentRef(ctx context.Context, userID, id uuid.UUID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.rows[id]
	if !ok || appt.UserID != userID {
		return ErrNotFound
	}
	if appt.PaymentStatus == PaymentPaid {
		return ErrAlreadyPaid
	}
	appt.PaymentRef = &ref
	return nil
}

func (s *InMemoryStore) MarkPaid(ctx context.Context, userID uuid.UUID, ref string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, appt := range s.rows {
		if (userID != uuid.Nil && appt.UserID != userID) || appt.PaymentRef == nil || *appt.PaymentRef != ref {
			continue
		}
		if appt.PaymentStatus == PaymentPaid {
			return nil, ErrAlreadyPaid
		}
		appt.PaymentStatus = PaymentPaid
		return clone(appt), nil
	}
	return nil, ErrNotFound
}

// stagedWrite is applied at commit only if check passes for every write in
// the transaction.
type stagedWrite struct {
	check func(rows map[uuid.UUID]*Appointment) error
	apply func(rows map[uuid.UUID]*Appointment)
}

type memDayTx struct {
	store  *InMemoryStore
	locked map[uuid.UUID]*Appointment
	staged []stagedWrite
}

func (t *memDayTx) CountOnDate(ctx context.Context, day scheduling.Day, excludeID uuid.UUID) (int, error) {
	return t.count(func(a *Appointment) bool {
		return a.Date == day && a.ID != excludeID
	}), nil
}

func (t *memDayTx) CountInHour(ctx context.Context, day scheduling.Day, hour int, excludeID uuid.UUID) (int, error) {
	return t.count(func(a *Appointment) bool {
		return a.Date == day && a.Time.Hour == hour && a.ID != excludeID
	}), nil
}

func (t *memDayTx) MaxToken(ctx context.Context, day scheduling.Day) (int, error) {
	highest := 0
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for _, appt := range t.store.rows {
		if appt.Date == day && appt.TokenNumber > highest {
			highest = appt.TokenNumber
		}
	}
	return highest, nil
}

func (t *memDayTx) count(match func(*Appointment) bool) int {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	n := 0
	for _, appt := range t.store.rows {
		if match(appt) {
			n++
		}
	}
	return n
}

// LockAppointment snapshots the row. The commit fails with ErrStoreConflict
// if another transaction changed it in the meantime, or ErrNotFound if it
// was cancelled.
func (t *memDayTx) LockAppointment(ctx context.Context, userID, id uuid.UUID) (*Appointment, error) {
	appt, err := t.store.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	t.locked[id] = clone(appt)
	return appt, nil
}

func (t *memDayTx) Insert(ctx context.Context, appt *Appointment) error {
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	row := clone(appt)
	t.staged = append(t.staged, stagedWrite{
		check: func(rows map[uuid.UUID]*Appointment) error {
			for _, existing := range rows {
				if existing.ID == row.ID || (existing.Date == row.Date && existing.TokenNumber == row.TokenNumber) {
					return ErrStoreConflict
				}
			}
			return nil
		},
		apply: func(rows map[uuid.UUID]*Appointment) {
			rows[row.ID] = row
		},
	})
	return nil
}

func (t *memDayTx) Reschedule(ctx context.Context, appt *Appointment) error {
	seen, ok := t.locked[appt.ID]
	if !ok {
		var err error
		if seen, err = t.store.GetForUser(ctx, appt.UserID, appt.ID); err != nil {
			return err
		}
	}
	id, day, clock, token := appt.ID, appt.Date, appt.Time, appt.TokenNumber
	t.staged = append(t.staged, stagedWrite{
		check: func(rows map[uuid.UUID]*Appointment) error {
			row, ok := rows[id]
			if !ok || row.UserID != seen.UserID {
				return ErrNotFound
			}
			if row.Date != seen.Date || row.Time != seen.Time || row.TokenNumber != seen.TokenNumber {
				return ErrStoreConflict
			}
			if row.Date != day {
				for _, other := range rows {
					if other.ID != id && other.Date == day && other.TokenNumber == token {
						return ErrStoreConflict
					}
				}
			}
			return nil
		},
		apply: func(rows map[uuid.UUID]*Appointment) {
			row := rows[id]
			row.Date, row.Time, row.TokenNumber = day, clock, token
		},
	})
	return nil
}

func clone(appt *Appointment) *Appointment {
	cp := *appt
	if appt.PaymentRef != nil {
		ref := *appt.PaymentRef
		cp.PaymentRef = &ref
	}
	return &cp
}
