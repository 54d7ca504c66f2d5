package events

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestProcessedStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newProcessedStoreWithDB(mock)
	ctx := context.Background()

	mock.ExpectQuery("SELECT EXISTS").WithArgs("razorpay", "evt").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	processed, err := store.AlreadyProcessed(ctx, "razorpay", "evt")
	if err != nil || !processed {
		t.Fatalf("expected existing row, got processed=%v err=%v", processed, err)
	}

	mock.ExpectQuery("SELECT EXISTS").WithArgs("razorpay", "evt-miss").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	processed, err = store.AlreadyProcessed(ctx, "razorpay", "evt-miss")
	if err != nil || processed {
		t.Fatalf("expected missing row, got processed=%v err=%v", processed, err)
	}

	mock.ExpectQuery("SELECT EXISTS").WithArgs("razorpay", "evt-err").WillReturnError(errors.New("conn closed"))
	if _, err := store.AlreadyProcessed(ctx, "razorpay", "evt-err"); err == nil {
		t.Fatal("expected lookup error")
	}

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("razorpay", "evt-new").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ok, err := store.MarkProcessed(ctx, "razorpay", "evt-new")
	if err != nil || !ok {
		t.Fatalf("expected mark processed success, got %v %v", ok, err)
	}

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("razorpay", "evt-new").WillReturnResult(pgxmock.NewResult("INSERT", 0))
	ok, err = store.MarkProcessed(ctx, "razorpay", "evt-new")
	if err != nil || ok {
		t.Fatalf("expected duplicate mark to report false, got %v %v", ok, err)
	}

	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM processed_events").WithArgs(cutoff).WillReturnResult(pgxmock.NewResult("DELETE", 3))
	removed, err := store.PruneBefore(ctx, cutoff)
	if err != nil || removed != 3 {
		t.Fatalf("expected 3 pruned rows, got %d %v", removed, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMemoryProcessedStore(t *testing.T) {
	store := NewMemoryProcessedStore()
	ctx := context.Background()

	if seen, _ := store.AlreadyProcessed(ctx, "razorpay", "evt"); seen {
		t.Fatal("fresh store reported event as processed")
	}
	if ok, _ := store.MarkProcessed(ctx, "razorpay", "evt"); !ok {
		t.Fatal("first mark should succeed")
	}
	if ok, _ := store.MarkProcessed(ctx, "razorpay", "evt"); ok {
		t.Fatal("second mark should report duplicate")
	}
	if seen, _ := store.AlreadyProcessed(ctx, "razorpay", "evt"); !seen {
		t.Fatal("expected event to be processed")
	}
	if seen, _ := store.AlreadyProcessed(ctx, "other", "evt"); seen {
		t.Fatal("providers must not share ids")
	}
}

func TestMemoryProcessedStorePrune(t *testing.T) {
	store := NewMemoryProcessedStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base }
	store.MarkProcessed(ctx, "razorpay", "old")
	store.now = func() time.Time { return base.Add(48 * time.Hour) }
	store.MarkProcessed(ctx, "razorpay", "fresh")

	removed, err := store.PruneBefore(ctx, base.Add(24*time.Hour))
	if err != nil || removed != 1 {
		t.Fatalf("expected one pruned id, got %d %v", removed, err)
	}
	if seen, _ := store.AlreadyProcessed(ctx, "razorpay", "old"); seen {
		t.Fatal("old id should be forgotten")
	}
	if seen, _ := store.AlreadyProcessed(ctx, "razorpay", "fresh"); !seen {
		t.Fatal("fresh id should survive")
	}
}
