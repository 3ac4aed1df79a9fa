package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-queueskip/internal/logger"
	"ms-queueskip/internal/metrics"
	"ms-queueskip/internal/models"

	"github.com/google/uuid"
)

// DBLayer is the slice of the store the ledger service needs. *db.DB
// satisfies it; tests substitute a mock.
type DBLayer interface {
	GetActiveDaySchedule(ctx context.Context, venueID string, dayOfWeek int) (*models.DaySchedule, error)
	CreateHold(ctx context.Context, hold *models.PendingHold, dayOfWeek int, periodStart, periodEnd, now time.Time, slotsOverride int) error
	GetHoldBySession(ctx context.Context, sessionID string) (*models.PendingHold, error)
	GetSaleBySession(ctx context.Context, sessionID string) (*models.ConfirmedSale, error)
	PromoteHold(ctx context.Context, sessionID string, now time.Time) (*models.ConfirmedSale, error)
	UpdateHoldStatus(ctx context.Context, sessionID string, status models.HoldStatus) error
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

type Service struct {
	DB      DBLayer
	Logger  *logger.Logger
	HoldTTL time.Duration

	// Now is swappable in tests; defaults to time.Now.
	Now func() time.Time
}

func NewService(db DBLayer, log *logger.Logger, holdTTL time.Duration) *Service {
	return &Service{
		DB:      db,
		Logger:  log,
		HoldTTL: holdTTL,
		Now:     time.Now,
	}
}

// ReserveParams carries everything the transactional reserve needs. Period
// boundaries arrive as UTC instants already computed in venue-local time by
// the availability calculator.
type ReserveParams struct {
	VenueID       string
	SessionID     string
	Customer      models.CustomerInfo
	AmountTotal   int64
	DayOfWeek     int
	PeriodStart   time.Time
	PeriodEnd     time.Time
	SlotsOverride int
}

// Reserve atomically claims one slot for the given period, or reports
// ErrSoldOut / ErrScheduleNotConfigured. The hold it creates expires after
// HoldTTL unless a payment outcome arrives first.
func (s *Service) Reserve(ctx context.Context, p ReserveParams) (*models.PendingHold, error) {
	// Fail fast before the transaction so an impossible request never holds
	// the schedule row lock.
	if _, err := s.DB.GetActiveDaySchedule(ctx, p.VenueID, p.DayOfWeek); err != nil {
		if errors.Is(err, ErrScheduleNotConfigured) {
			metrics.ReservationAttempt(p.VenueID, "no_schedule")
			return nil, err
		}
		return nil, fmt.Errorf("schedule lookup for venue %s: %w", p.VenueID, err)
	}

	now := s.Now()
	hold := &models.PendingHold{
		ID:            uuid.NewString(),
		SessionID:     p.SessionID,
		VenueID:       p.VenueID,
		CustomerEmail: p.Customer.Email,
		CustomerName:  p.Customer.Name,
		AmountTotal:   p.AmountTotal,
		ReceivePromo:  p.Customer.ReceivePromo,
		Status:        models.HoldPending,
		ExpiresAt:     now.Add(s.HoldTTL),
		CreatedAt:     now,
	}

	err := s.DB.CreateHold(ctx, hold, p.DayOfWeek, p.PeriodStart, p.PeriodEnd, now, p.SlotsOverride)
	if err != nil {
		if errors.Is(err, ErrSoldOut) {
			metrics.ReservationAttempt(p.VenueID, "sold_out")
			s.Logger.LogReservation("RESERVE", p.SessionID, fmt.Sprintf("venue %s sold out for period starting %s", p.VenueID, p.PeriodStart.Format(time.RFC3339)))
			return nil, err
		}
		if errors.Is(err, ErrScheduleNotConfigured) {
			metrics.ReservationAttempt(p.VenueID, "no_schedule")
			return nil, err
		}
		return nil, fmt.Errorf("reserve slot for session %s: %w", p.SessionID, err)
	}

	metrics.ReservationAttempt(p.VenueID, "reserved")
	s.Logger.LogReservation("RESERVE", p.SessionID, fmt.Sprintf("hold %s created for venue %s, expires %s", hold.ID, p.VenueID, hold.ExpiresAt.Format(time.RFC3339)))
	return hold, nil
}

// Confirm promotes the pending hold for a session into a confirmed sale.
// Safe to call repeatedly: a session that already promoted returns its sale
// with no second row. A session with neither hold nor sale returns
// ErrInconsistentState for manual review.
func (s *Service) Confirm(ctx context.Context, sessionID string) (*models.ConfirmedSale, error) {
	sale, err := s.DB.PromoteHold(ctx, sessionID, s.Now())
	if err != nil {
		if errors.Is(err, ErrInconsistentState) {
			s.Logger.Error("LEDGER", fmt.Sprintf("confirm for session %s found neither hold nor sale", sessionID))
			return nil, err
		}
		return nil, fmt.Errorf("promote hold for session %s: %w", sessionID, err)
	}
	metrics.ReservationAttempt(sale.VenueID, "confirmed")
	s.Logger.LogReservation("CONFIRM", sessionID, fmt.Sprintf("sale confirmed for venue %s", sale.VenueID))
	return sale, nil
}

// Cancel marks the hold for a session as cancelled (declined payment) or
// failed_inventory_check (failed re-validation), releasing its capacity
// immediately without waiting for expiry. Cancelling a session with no
// pending hold is a no-op; the outcome may arrive after the sweeper already
// reclaimed the row.
func (s *Service) Cancel(ctx context.Context, sessionID string, status models.HoldStatus) error {
	hold, err := s.DB.GetHoldBySession(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		s.Logger.LogReservation("CANCEL", sessionID, "no hold to cancel (already swept or never reserved)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup hold for session %s: %w", sessionID, err)
	}

	err = s.DB.UpdateHoldStatus(ctx, sessionID, status)
	if errors.Is(err, sql.ErrNoRows) {
		s.Logger.LogReservation("CANCEL", sessionID, fmt.Sprintf("hold already terminal (%s)", hold.Status))
		return nil
	}
	if err != nil {
		return fmt.Errorf("cancel hold for session %s: %w", sessionID, err)
	}
	metrics.ReservationAttempt(hold.VenueID, "cancelled")
	s.Logger.LogReservation("CANCEL", sessionID, fmt.Sprintf("hold marked %s", status))
	return nil
}

// SweepExpired reclaims expired holds. Invoked opportunistically before
// availability reads and from the background ticker.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	count, err := s.DB.SweepExpired(ctx, s.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired holds: %w", err)
	}
	if count > 0 {
		metrics.HoldsSwept(count)
		s.Logger.Info("SWEEPER", fmt.Sprintf("reclaimed %d expired holds", count))
	}
	return count, nil
}
