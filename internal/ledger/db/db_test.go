package db_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ms-queueskip/internal/ledger"
	"ms-queueskip/internal/ledger/db"
	"ms-queueskip/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	// Create a new SQLite in-memory database. A single connection keeps
	// concurrent transactions queued on the pool instead of failing with
	// SQLITE_BUSY.
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Venue)(nil),
		(*models.DaySchedule)(nil),
		(*models.PendingHold)(nil),
		(*models.ConfirmedSale)(nil),
	} {
		if err := bunDB.ResetModel(ctx, model); err != nil {
			t.Fatalf("Failed to create table for %T: %v", model, err)
		}
	}

	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB}
}

func seedVenueAndSchedule(t *testing.T, d *db.DB, slots int, active bool) {
	t.Helper()
	ctx := context.Background()

	venue := &models.Venue{
		ID:       "velvet-room",
		Name:     "The Velvet Room",
		Price:    decimal.NewFromInt(25),
		TimeZone: "UTC",
	}
	if _, err := d.Bun.NewInsert().Model(venue).Exec(ctx); err != nil {
		t.Fatalf("Failed to seed venue: %v", err)
	}

	schedule := &models.DaySchedule{
		VenueID:        "velvet-room",
		DayOfWeek:      5,
		SlotsPerPeriod: slots,
		IsActive:       active,
	}
	if _, err := d.Bun.NewInsert().Model(schedule).Exec(ctx); err != nil {
		t.Fatalf("Failed to seed day schedule: %v", err)
	}
}

var testNow = time.Date(2026, time.June, 5, 22, 5, 0, 0, time.UTC)
var periodStart = time.Date(2026, time.June, 5, 22, 0, 0, 0, time.UTC)
var periodEnd = periodStart.Add(15 * time.Minute)

func makeHold(sessionID string) *models.PendingHold {
	return &models.PendingHold{
		ID:            "hold-" + sessionID,
		SessionID:     sessionID,
		VenueID:       "velvet-room",
		CustomerEmail: "guest@example.com",
		CustomerName:  "Guest",
		AmountTotal:   2500,
		Status:        models.HoldPending,
		ExpiresAt:     testNow.Add(15 * time.Minute),
		CreatedAt:     testNow,
	}
}

func TestCreateHoldAndPromote(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 3, true)
	ctx := context.Background()

	hold := makeHold("cs_test_1")
	if err := d.CreateHold(ctx, hold, 5, periodStart, periodEnd, testNow, 0); err != nil {
		t.Fatalf("Failed to create hold: %v", err)
	}

	sale, err := d.PromoteHold(ctx, "cs_test_1", testNow.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Failed to promote hold: %v", err)
	}
	if sale.SessionID != "cs_test_1" {
		t.Errorf("Expected session cs_test_1, got %s", sale.SessionID)
	}
	if sale.PaymentStatus != models.PaymentStatusPaid {
		t.Errorf("Expected payment status paid, got %s", sale.PaymentStatus)
	}
	if !sale.CreatedAt.Equal(hold.CreatedAt) {
		t.Errorf("Sale created_at should carry over from the hold: want %v, got %v", hold.CreatedAt, sale.CreatedAt)
	}

	// The hold row is gone after promotion.
	if _, err := d.GetHoldBySession(ctx, "cs_test_1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Expected hold to be deleted after promotion, got err=%v", err)
	}
}

func TestCreateHoldSoldOut(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 2, true)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		hold := makeHold(fmt.Sprintf("cs_fill_%d", i))
		if err := d.CreateHold(ctx, hold, 5, periodStart, periodEnd, testNow, 0); err != nil {
			t.Fatalf("Hold %d should fit within capacity: %v", i, err)
		}
	}

	err := d.CreateHold(ctx, makeHold("cs_overflow"), 5, periodStart, periodEnd, testNow, 0)
	if !errors.Is(err, ledger.ErrSoldOut) {
		t.Fatalf("Expected ErrSoldOut, got %v", err)
	}
}

func TestCreateHoldCountsConfirmedSales(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 2, true)
	ctx := context.Background()

	// One promoted sale plus one live hold fills a capacity of two.
	if err := d.CreateHold(ctx, makeHold("cs_a"), 5, periodStart, periodEnd, testNow, 0); err != nil {
		t.Fatalf("Failed to create first hold: %v", err)
	}
	if _, err := d.PromoteHold(ctx, "cs_a", testNow); err != nil {
		t.Fatalf("Failed to promote hold: %v", err)
	}
	if err := d.CreateHold(ctx, makeHold("cs_b"), 5, periodStart, periodEnd, testNow, 0); err != nil {
		t.Fatalf("Failed to create second hold: %v", err)
	}

	err := d.CreateHold(ctx, makeHold("cs_c"), 5, periodStart, periodEnd, testNow, 0)
	if !errors.Is(err, ledger.ErrSoldOut) {
		t.Fatalf("Expected ErrSoldOut with one sale and one hold, got %v", err)
	}
}

func TestCreateHoldSlotsOverride(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 3, true)
	ctx := context.Background()

	// Hour-window override of 1 beats the day rate of 3.
	if err := d.CreateHold(ctx, makeHold("cs_first"), 5, periodStart, periodEnd, testNow, 1); err != nil {
		t.Fatalf("First hold should fit override capacity: %v", err)
	}
	err := d.CreateHold(ctx, makeHold("cs_second"), 5, periodStart, periodEnd, testNow, 1)
	if !errors.Is(err, ledger.ErrSoldOut) {
		t.Fatalf("Expected ErrSoldOut at override capacity, got %v", err)
	}
}

func TestCreateHoldNoSchedule(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 3, true)
	ctx := context.Background()

	// Day 2 has no schedule row at all.
	err := d.CreateHold(ctx, makeHold("cs_wrong_day"), 2, periodStart, periodEnd, testNow, 0)
	if !errors.Is(err, ledger.ErrScheduleNotConfigured) {
		t.Fatalf("Expected ErrScheduleNotConfigured, got %v", err)
	}
}

func TestCreateHoldInactiveSchedule(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 3, false)
	ctx := context.Background()

	err := d.CreateHold(ctx, makeHold("cs_inactive"), 5, periodStart, periodEnd, testNow, 0)
	if !errors.Is(err, ledger.ErrScheduleNotConfigured) {
		t.Fatalf("Expected ErrScheduleNotConfigured for inactive day, got %v", err)
	}
}

func TestConcurrentReserveNoOversell(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 3, true)
	ctx := context.Background()

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hold := makeHold(fmt.Sprintf("cs_racer_%d", i))
			errs[i] = d.CreateHold(ctx, hold, 5, periodStart, periodEnd, testNow, 0)
		}(i)
	}
	wg.Wait()

	var created, soldOut int
	for i, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ledger.ErrSoldOut):
			soldOut++
		default:
			t.Errorf("Attempt %d failed unexpectedly: %v", i, err)
		}
	}
	if created != 3 {
		t.Errorf("Expected exactly 3 holds created, got %d", created)
	}
	if soldOut != attempts-3 {
		t.Errorf("Expected %d sold-out rejections, got %d", attempts-3, soldOut)
	}

	count, err := d.CountPendingInRange(ctx, "velvet-room", periodStart, periodEnd, testNow)
	if err != nil {
		t.Fatalf("Failed to count pending holds: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 pending holds in store, got %d", count)
	}
}

func TestPromoteHoldIdempotent(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 3, true)
	ctx := context.Background()

	if err := d.CreateHold(ctx, makeHold("cs_repeat"), 5, periodStart, periodEnd, testNow, 0); err != nil {
		t.Fatalf("Failed to create hold: %v", err)
	}

	first, err := d.PromoteHold(ctx, "cs_repeat", testNow)
	if err != nil {
		t.Fatalf("First promotion failed: %v", err)
	}
	second, err := d.PromoteHold(ctx, "cs_repeat", testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("Second promotion should succeed: %v", err)
	}
	if first.SessionID != second.SessionID {
		t.Errorf("Redelivered promotion returned a different sale")
	}

	count, err := d.Bun.NewSelect().Model((*models.ConfirmedSale)(nil)).Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count sales: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 sale after duplicate promotion, got %d", count)
	}
}

func TestPromoteHoldUnknownSession(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 3, true)

	_, err := d.PromoteHold(context.Background(), "cs_ghost", testNow)
	if !errors.Is(err, ledger.ErrInconsistentState) {
		t.Fatalf("Expected ErrInconsistentState, got %v", err)
	}
}

func TestPromoteLapsedHoldStillHonored(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 3, true)
	ctx := context.Background()

	// The hold expired two minutes ago but the sweeper has not run. A paid
	// outcome still promotes it.
	lapsed := makeHold("cs_lapsed")
	lapsed.ExpiresAt = testNow.Add(-2 * time.Minute)
	if _, err := d.Bun.NewInsert().Model(lapsed).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert lapsed hold: %v", err)
	}

	sale, err := d.PromoteHold(ctx, "cs_lapsed", testNow)
	if err != nil {
		t.Fatalf("Lapsed hold should still promote: %v", err)
	}
	if sale.SessionID != "cs_lapsed" {
		t.Errorf("Expected promoted session cs_lapsed, got %s", sale.SessionID)
	}
}

func TestExpiredHoldDoesNotCountAgainstCapacity(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 1, true)
	ctx := context.Background()

	expired := makeHold("cs_expired")
	expired.ExpiresAt = testNow.Add(-time.Minute)
	if _, err := d.Bun.NewInsert().Model(expired).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert expired hold: %v", err)
	}

	// Capacity 1, but the only competing hold is expired.
	if err := d.CreateHold(ctx, makeHold("cs_fresh"), 5, periodStart, periodEnd, testNow, 0); err != nil {
		t.Fatalf("Expected expired hold to free its slot: %v", err)
	}
}

func TestCancelReleasesCapacity(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 1, true)
	ctx := context.Background()

	if err := d.CreateHold(ctx, makeHold("cs_declined"), 5, periodStart, periodEnd, testNow, 0); err != nil {
		t.Fatalf("Failed to create hold: %v", err)
	}
	if err := d.UpdateHoldStatus(ctx, "cs_declined", models.HoldCancelled); err != nil {
		t.Fatalf("Failed to cancel hold: %v", err)
	}

	// The cancelled hold no longer occupies the single slot.
	if err := d.CreateHold(ctx, makeHold("cs_next"), 5, periodStart, periodEnd, testNow, 0); err != nil {
		t.Fatalf("Expected cancelled hold to release capacity: %v", err)
	}

	// Cancelling again is reported as no rows so the service can treat it as
	// a no-op.
	if err := d.UpdateHoldStatus(ctx, "cs_declined", models.HoldFailedCapacity); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Expected sql.ErrNoRows for already-terminal hold, got %v", err)
	}
}

func TestSweepExpired(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 3, true)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		expired := makeHold(fmt.Sprintf("cs_old_%d", i))
		expired.ExpiresAt = testNow.Add(-time.Minute)
		if _, err := d.Bun.NewInsert().Model(expired).Exec(ctx); err != nil {
			t.Fatalf("Failed to insert expired hold: %v", err)
		}
	}
	if err := d.CreateHold(ctx, makeHold("cs_live"), 5, periodStart, periodEnd, testNow, 0); err != nil {
		t.Fatalf("Failed to create live hold: %v", err)
	}

	swept, err := d.SweepExpired(ctx, testNow)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if swept != 2 {
		t.Errorf("Expected 2 holds swept, got %d", swept)
	}
	if _, err := d.GetHoldBySession(ctx, "cs_live"); err != nil {
		t.Errorf("Live hold should survive the sweep: %v", err)
	}
}

func TestGetActiveDaySchedule(t *testing.T) {
	d := setupTestDB(t)
	seedVenueAndSchedule(t, d, 3, true)
	ctx := context.Background()

	schedule, err := d.GetActiveDaySchedule(ctx, "velvet-room", 5)
	if err != nil {
		t.Fatalf("Failed to get active schedule: %v", err)
	}
	if schedule.SlotsPerPeriod != 3 {
		t.Errorf("Expected 3 slots per period, got %d", schedule.SlotsPerPeriod)
	}

	if _, err := d.GetActiveDaySchedule(ctx, "velvet-room", 1); !errors.Is(err, ledger.ErrScheduleNotConfigured) {
		t.Errorf("Expected ErrScheduleNotConfigured for unconfigured day, got %v", err)
	}
}
