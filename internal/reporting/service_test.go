package reporting_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"ms-queueskip/internal/logger"
	"ms-queueskip/internal/models"
	"ms-queueskip/internal/reporting"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func decimalFromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

func setupTestService(t *testing.T) (*reporting.Service, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.ConfirmedSale)(nil),
		(*models.AuditLogEntry)(nil),
	} {
		if err := bunDB.ResetModel(ctx, model); err != nil {
			t.Fatalf("Failed to create table for %T: %v", model, err)
		}
	}

	t.Cleanup(func() { bunDB.Close() })
	return reporting.NewService(bunDB, logger.NewLogger()), bunDB
}

func seedSale(t *testing.T, db *bun.DB, sessionID, venueID string, amount int64, createdAt time.Time) {
	t.Helper()
	sale := &models.ConfirmedSale{
		SessionID:     sessionID,
		VenueID:       venueID,
		CustomerEmail: "guest@example.com",
		CustomerName:  "Guest",
		AmountTotal:   amount,
		CreatedAt:     createdAt,
	}
	if _, err := db.NewInsert().Model(sale).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to seed sale %s: %v", sessionID, err)
	}
}

var day1 = time.Date(2026, time.June, 5, 22, 0, 0, 0, time.UTC)

func TestListSalesFiltersByVenue(t *testing.T) {
	svc, db := setupTestService(t)

	seedSale(t, db, "cs_1", "velvet-room", 2500, day1)
	seedSale(t, db, "cs_2", "velvet-room", 2500, day1.Add(time.Hour))
	seedSale(t, db, "cs_3", "north-dock", 1850, day1)

	list, err := svc.ListSales(context.Background(), reporting.SaleListOptions{VenueID: "velvet-room"})
	if err != nil {
		t.Fatalf("ListSales failed: %v", err)
	}

	if list.Total != 2 {
		t.Errorf("Expected total 2, got %d", list.Total)
	}
	for _, sale := range list.Sales {
		if sale.VenueID != "velvet-room" {
			t.Errorf("Expected only velvet-room sales, got %s", sale.VenueID)
		}
	}
}

func TestListSalesDateRange(t *testing.T) {
	svc, db := setupTestService(t)

	seedSale(t, db, "cs_1", "velvet-room", 2500, day1)
	seedSale(t, db, "cs_2", "velvet-room", 2500, day1.Add(48*time.Hour))

	list, err := svc.ListSales(context.Background(), reporting.SaleListOptions{
		VenueID: "velvet-room",
		From:    day1.Add(-time.Hour),
		To:      day1.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("ListSales failed: %v", err)
	}

	if list.Total != 1 {
		t.Fatalf("Expected 1 sale in range, got %d", list.Total)
	}
	if list.Sales[0].SessionID != "cs_1" {
		t.Errorf("Expected cs_1, got %s", list.Sales[0].SessionID)
	}
}

func TestListSalesPaginationAndSort(t *testing.T) {
	svc, db := setupTestService(t)

	for i := 0; i < 5; i++ {
		seedSale(t, db, fmt.Sprintf("cs_%d", i), "velvet-room", int64(1000+i*100), day1.Add(time.Duration(i)*time.Hour))
	}

	list, err := svc.ListSales(context.Background(), reporting.SaleListOptions{
		SortBy:   string(reporting.SaleSortByAmount),
		SortDesc: true,
		Limit:    2,
		Offset:   0,
	})
	if err != nil {
		t.Fatalf("ListSales failed: %v", err)
	}

	if list.Total != 5 {
		t.Errorf("Expected total 5 across all pages, got %d", list.Total)
	}
	if len(list.Sales) != 2 {
		t.Fatalf("Expected page of 2, got %d", len(list.Sales))
	}
	if list.Sales[0].AmountTotal != 1400 {
		t.Errorf("Expected highest amount first, got %d", list.Sales[0].AmountTotal)
	}
}

func TestListSalesEmptyResultIsNotNil(t *testing.T) {
	svc, _ := setupTestService(t)

	list, err := svc.ListSales(context.Background(), reporting.SaleListOptions{VenueID: "no-such-venue"})
	if err != nil {
		t.Fatalf("ListSales failed: %v", err)
	}
	if list.Sales == nil {
		t.Error("Expected empty slice, got nil")
	}
	if list.Total != 0 {
		t.Errorf("Expected total 0, got %d", list.Total)
	}
}

func TestListAuditLogFilters(t *testing.T) {
	svc, db := setupTestService(t)

	entries := []*models.AuditLogEntry{
		{SessionID: "cs_1", VenueID: "velvet-room", PaymentStatus: "paid", CreatedAt: day1},
		{SessionID: "cs_1", VenueID: "velvet-room", PaymentStatus: "paid", CreatedAt: day1.Add(time.Minute)},
		{SessionID: "cs_2", VenueID: "velvet-room", PaymentStatus: "failed", CreatedAt: day1},
	}
	for _, e := range entries {
		if _, err := db.NewInsert().Model(e).Exec(context.Background()); err != nil {
			t.Fatalf("Failed to seed audit entry: %v", err)
		}
	}

	bySession, err := svc.ListAuditLog(context.Background(), reporting.AuditListOptions{SessionID: "cs_1"})
	if err != nil {
		t.Fatalf("ListAuditLog failed: %v", err)
	}
	if len(bySession) != 2 {
		t.Errorf("Expected 2 entries for cs_1, got %d", len(bySession))
	}

	byStatus, err := svc.ListAuditLog(context.Background(), reporting.AuditListOptions{Status: "failed"})
	if err != nil {
		t.Fatalf("ListAuditLog failed: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].SessionID != "cs_2" {
		t.Errorf("Expected only the failed cs_2 entry, got %d entries", len(byStatus))
	}
}

func TestGetVenueSummaryAggregatesByDay(t *testing.T) {
	svc, db := setupTestService(t)

	seedSale(t, db, "cs_1", "velvet-room", 2500, day1)
	seedSale(t, db, "cs_2", "velvet-room", 2500, day1.Add(time.Hour))
	seedSale(t, db, "cs_3", "velvet-room", 2500, day1.Add(24*time.Hour))
	seedSale(t, db, "cs_4", "north-dock", 1850, day1)

	summary, err := svc.GetVenueSummary(context.Background(), "velvet-room", day1.Add(-time.Hour), day1.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("GetVenueSummary failed: %v", err)
	}

	if summary.TotalSales != 3 {
		t.Errorf("Expected 3 sales, got %d", summary.TotalSales)
	}
	if !summary.TotalRevenue.Equal(decimalFromCents(7500)) {
		t.Errorf("Expected revenue 75.00, got %s", summary.TotalRevenue)
	}
	if len(summary.Daily) != 2 {
		t.Fatalf("Expected 2 daily rows, got %d", len(summary.Daily))
	}
	if summary.Daily[0].SaleCount != 2 {
		t.Errorf("Expected 2 sales on the first day, got %d", summary.Daily[0].SaleCount)
	}
}
