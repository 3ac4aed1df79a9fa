package availability

import (
	"context"
	"fmt"
	"time"

	"ms-queueskip/internal/logger"
	"ms-queueskip/internal/metrics"
	"ms-queueskip/internal/models"
)

type VenueReader interface {
	GetVenue(ctx context.Context, venueID string) (*models.Venue, error)
	GetWeekSchedule(ctx context.Context, venueID string) ([]models.DayScheduleWithHours, error)
}

type CapacityCounter interface {
	CountConfirmedInRange(ctx context.Context, venueID string, periodStart, periodEnd time.Time) (int, error)
	CountPendingInRange(ctx context.Context, venueID string, periodStart, periodEnd, now time.Time) (int, error)
}

type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Snapshots is implemented by *Cache. Nil-able: the service runs without
// Redis, it just recomputes every call.
type Snapshots interface {
	Get(ctx context.Context, venueID string) (*models.Availability, error)
	Set(ctx context.Context, snapshot *models.Availability) error
	Invalidate(ctx context.Context, venueID string) error
}

type Service struct {
	Venues  VenueReader
	Counts  CapacityCounter
	Sweeper Sweeper
	Cache   Snapshots
	Logger  *logger.Logger

	Now func() time.Time
}

func NewService(venues VenueReader, counts CapacityCounter, sweeper Sweeper, cache Snapshots, log *logger.Logger) *Service {
	return &Service{
		Venues:  venues,
		Counts:  counts,
		Sweeper: sweeper,
		Cache:   cache,
		Logger:  log,
		Now:     time.Now,
	}
}

// GetAvailability returns the sweeper-filtered advisory view for a venue:
// whether sales are open this 15-minute period, slots remaining, and the next
// opening otherwise.
func (s *Service) GetAvailability(ctx context.Context, venueID string) (*models.Availability, error) {
	if s.Cache != nil {
		if cached, err := s.Cache.Get(ctx, venueID); err == nil && cached != nil {
			return cached, nil
		}
	}

	snapshot, err := s.computeAvailability(ctx, venueID)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, snapshot); err != nil {
			s.Logger.Warn("AVAILABILITY", fmt.Sprintf("failed to cache snapshot for venue %s: %v", venueID, err))
		}
	}
	return snapshot, nil
}

// ResolveReservationWindow is the checkout-flow entry point: same window
// resolution, but it returns the raw SaleWindow so the caller can hand the
// ledger the exact period and any hour-window capacity override. Never
// cached; a reservation attempt deserves a fresh read.
func (s *Service) ResolveReservationWindow(ctx context.Context, venue *models.Venue) (*SaleWindow, error) {
	week, err := s.Venues.GetWeekSchedule(ctx, venue.ID)
	if err != nil {
		return nil, fmt.Errorf("load week schedule for venue %s: %w", venue.ID, err)
	}
	return ResolveWindow(venue, week, s.Now().UTC())
}

func (s *Service) computeAvailability(ctx context.Context, venueID string) (*models.Availability, error) {
	// Opportunistic reclaim so abandoned holds stop occupying rows. The
	// expires_at filter below is what correctness actually rests on.
	if _, err := s.Sweeper.SweepExpired(ctx); err != nil {
		s.Logger.Warn("AVAILABILITY", fmt.Sprintf("sweep before count failed: %v", err))
	}

	venue, err := s.Venues.GetVenue(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("load venue %s: %w", venueID, err)
	}

	week, err := s.Venues.GetWeekSchedule(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("load week schedule for venue %s: %w", venueID, err)
	}

	now := s.Now().UTC()
	window, err := ResolveWindow(venue, week, now)
	if err != nil {
		return nil, err
	}

	snapshot := &models.Availability{
		VenueID:     venueID,
		IsOpen:      window.Open,
		PeriodStart: window.Period.Start,
		PeriodEnd:   window.Period.End,
	}

	if !window.Open {
		snapshot.NextAvailable = window.Next
		metrics.SlotsRemaining(venueID, 0)
		return snapshot, nil
	}

	confirmed, err := s.Counts.CountConfirmedInRange(ctx, venueID, window.Period.Start, window.Period.End)
	if err != nil {
		return nil, fmt.Errorf("count confirmed sales for venue %s: %w", venueID, err)
	}
	pending, err := s.Counts.CountPendingInRange(ctx, venueID, window.Period.Start, window.Period.End, now)
	if err != nil {
		return nil, fmt.Errorf("count pending holds for venue %s: %w", venueID, err)
	}

	remaining := window.Capacity - confirmed - pending
	if remaining < 0 {
		remaining = 0
	}
	snapshot.SlotsRemaining = remaining

	if remaining == 0 {
		snapshot.NextAvailable = window.Next
	}
	metrics.SlotsRemaining(venueID, remaining)
	return snapshot, nil
}
