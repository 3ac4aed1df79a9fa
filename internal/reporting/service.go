// Package reporting serves read-only admin projections over confirmed sales
// and the payment audit log. Nothing here mutates ledger state.
package reporting

import (
	"context"
	"strings"
	"time"

	"ms-queueskip/internal/logger"
	"ms-queueskip/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// SaleSortField defines the valid fields for sorting sales
type SaleSortField string

const (
	SaleSortByAmount    SaleSortField = "amount_total"
	SaleSortByCreatedAt SaleSortField = "created_at"
)

type Service struct {
	db     *bun.DB
	logger *logger.Logger
}

func NewService(db *bun.DB, log *logger.Logger) *Service {
	return &Service{db: db, logger: log}
}

// SaleListOptions contains options for filtering and sorting sales
type SaleListOptions struct {
	VenueID  string
	From     time.Time
	To       time.Time
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// SaleList is one page of confirmed sales plus the unpaginated total.
type SaleList struct {
	Sales []models.ConfirmedSale `json:"sales"`
	Total int                    `json:"total"`
}

// ListSales returns confirmed sales with optional filters and pagination.
func (s *Service) ListSales(ctx context.Context, options SaleListOptions) (*SaleList, error) {
	q := s.db.NewSelect().Model((*models.ConfirmedSale)(nil))

	if options.VenueID != "" {
		q = q.Where("venue_id = ?", options.VenueID)
	}
	if !options.From.IsZero() {
		q = q.Where("created_at >= ?", options.From)
	}
	if !options.To.IsZero() {
		q = q.Where("created_at < ?", options.To)
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}

	direction := "ASC"
	if options.SortDesc {
		direction = "DESC"
	}
	switch SaleSortField(strings.ToLower(options.SortBy)) {
	case SaleSortByAmount:
		q = q.Order("amount_total " + direction)
	case SaleSortByCreatedAt:
		q = q.Order("created_at " + direction)
	default:
		// Default sort by created_at descending (newest first)
		q = q.Order("created_at DESC")
	}

	if options.Limit > 0 {
		q = q.Limit(options.Limit)
	}
	if options.Offset > 0 {
		q = q.Offset(options.Offset)
	}

	var sales []models.ConfirmedSale
	if err := q.Scan(ctx, &sales); err != nil {
		return nil, err
	}
	if sales == nil {
		sales = []models.ConfirmedSale{}
	}
	return &SaleList{Sales: sales, Total: total}, nil
}

// AuditListOptions filters the payment audit log.
type AuditListOptions struct {
	VenueID   string
	SessionID string
	Status    string
	Limit     int
	Offset    int
}

// ListAuditLog returns audit entries, newest first. Every payment outcome the
// system ever received is here, including ones that matched no hold.
func (s *Service) ListAuditLog(ctx context.Context, options AuditListOptions) ([]models.AuditLogEntry, error) {
	q := s.db.NewSelect().Model((*models.AuditLogEntry)(nil))

	if options.VenueID != "" {
		q = q.Where("venue_id = ?", options.VenueID)
	}
	if options.SessionID != "" {
		q = q.Where("session_id = ?", options.SessionID)
	}
	if options.Status != "" {
		q = q.Where("payment_status = ?", options.Status)
	}

	q = q.Order("created_at DESC")
	if options.Limit > 0 {
		q = q.Limit(options.Limit)
	}
	if options.Offset > 0 {
		q = q.Offset(options.Offset)
	}

	var entries []models.AuditLogEntry
	if err := q.Scan(ctx, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.AuditLogEntry{}
	}
	return entries, nil
}

// DailySalesRow represents raw daily sales metrics from the database
type DailySalesRow struct {
	SalesDate    string `bun:"sales_date"`
	RevenueCents int64  `bun:"revenue_cents"`
	SaleCount    int    `bun:"sale_count"`
}

// DailySales is the API shape: revenue reported in currency units.
type DailySales struct {
	Date      string          `json:"date"`
	Revenue   decimal.Decimal `json:"revenue"`
	SaleCount int             `json:"sale_count"`
}

// VenueSummary aggregates a venue's sales over a date range.
type VenueSummary struct {
	VenueID      string          `json:"venue_id"`
	TotalSales   int             `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	Daily        []DailySales    `json:"daily"`
}

// GetVenueSummary computes per-day sale counts and revenue for one venue.
func (s *Service) GetVenueSummary(ctx context.Context, venueID string, from, to time.Time) (*VenueSummary, error) {
	var rows []DailySalesRow
	err := s.db.NewRaw(`
		SELECT
			DATE(created_at) AS sales_date,
			SUM(amount_total) AS revenue_cents,
			COUNT(*) AS sale_count
		FROM
			confirmed_sales
		WHERE
			venue_id = ? AND created_at >= ? AND created_at < ?
		GROUP BY
			DATE(created_at)
		ORDER BY
			DATE(created_at)
	`, venueID, from, to).Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	cents := decimal.NewFromInt(100)
	summary := &VenueSummary{
		VenueID:      venueID,
		TotalRevenue: decimal.Zero,
		Daily:        make([]DailySales, 0, len(rows)),
	}
	for _, row := range rows {
		revenue := decimal.NewFromInt(row.RevenueCents).Div(cents)
		summary.TotalSales += row.SaleCount
		summary.TotalRevenue = summary.TotalRevenue.Add(revenue)
		summary.Daily = append(summary.Daily, DailySales{
			Date:      row.SalesDate,
			Revenue:   revenue,
			SaleCount: row.SaleCount,
		})
	}
	return summary, nil
}
