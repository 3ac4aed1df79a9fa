// Package schedule is the configuration store for per-venue sale schedules:
// one DaySchedule per (venue, day-of-week) with upsert semantics, hour
// windows beneath it, and the overnight-split policy enforced in exactly one
// place.
package schedule

import (
	"context"
	"fmt"

	"ms-queueskip/internal/availability"
	"ms-queueskip/internal/logger"
	"ms-queueskip/internal/models"
)

type DBLayer interface {
	GetVenue(ctx context.Context, venueID string) (*models.Venue, error)
	ListVenues(ctx context.Context) ([]models.Venue, error)
	GetDaySchedule(ctx context.Context, id int64) (*models.DaySchedule, error)
	UpsertDaySchedule(ctx context.Context, venueID string, dayOfWeek, slotsPerPeriod int, isActive bool) (*models.DaySchedule, error)
	ToggleDayActive(ctx context.Context, id int64, isActive bool) error
	DeleteDaySchedule(ctx context.Context, id int64) error
	UpsertHourWindow(ctx context.Context, window *models.HourWindow) (*models.HourWindow, error)
	GetWeekSchedule(ctx context.Context, venueID string) ([]models.DayScheduleWithHours, error)
}

// CacheInvalidator lets schedule writes drop stale availability snapshots.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, venueID string) error
}

type Service struct {
	DB     DBLayer
	Cache  CacheInvalidator
	Logger *logger.Logger
}

func NewService(db DBLayer, cache CacheInvalidator, log *logger.Logger) *Service {
	return &Service{DB: db, Cache: cache, Logger: log}
}

func (s *Service) GetVenue(ctx context.Context, venueID string) (*models.Venue, error) {
	return s.DB.GetVenue(ctx, venueID)
}

func (s *Service) ListVenues(ctx context.Context) ([]models.Venue, error) {
	return s.DB.ListVenues(ctx)
}

// GetVenueWithSchedule returns a venue and its full weekly configuration,
// the shape the venue detail surface renders.
func (s *Service) GetVenueWithSchedule(ctx context.Context, venueID string) (*models.VenueWithSchedule, error) {
	venue, err := s.DB.GetVenue(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("venue %s not found: %w", venueID, err)
	}
	week, err := s.DB.GetWeekSchedule(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("load schedule for venue %s: %w", venueID, err)
	}
	return &models.VenueWithSchedule{Venue: *venue, Schedules: week}, nil
}

func (s *Service) GetWeekSchedule(ctx context.Context, venueID string) ([]models.DayScheduleWithHours, error) {
	return s.DB.GetWeekSchedule(ctx, venueID)
}

func (s *Service) UpsertDaySchedule(ctx context.Context, venueID string, dayOfWeek, slotsPerPeriod int, isActive bool) (*models.DaySchedule, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, fmt.Errorf("day_of_week must be 0..6, got %d", dayOfWeek)
	}
	if slotsPerPeriod < 0 {
		return nil, fmt.Errorf("slots_per_period must not be negative, got %d", slotsPerPeriod)
	}
	schedule, err := s.DB.UpsertDaySchedule(ctx, venueID, dayOfWeek, slotsPerPeriod, isActive)
	if err != nil {
		return nil, fmt.Errorf("upsert day schedule for venue %s day %d: %w", venueID, dayOfWeek, err)
	}
	s.invalidate(ctx, venueID)
	return schedule, nil
}

// windowHalf is one piece of a possibly-split hour window.
type windowHalf struct {
	dayOffset int
	start     string
	end       string
}

// splitOvernight normalizes a window into same-day halves. A window whose end
// is at or before its start wraps past midnight and becomes [start, 24:00) on
// the given day plus [00:00, end) on the following day, both at the same
// rate. The store never holds a single row crossing midnight.
func splitOvernight(start, end string) ([]windowHalf, error) {
	startMin, err := availability.ParseClock(start)
	if err != nil {
		return nil, err
	}
	endMin, err := availability.ParseClock(end)
	if err != nil {
		return nil, err
	}
	if endMin > startMin {
		return []windowHalf{{dayOffset: 0, start: start, end: end}}, nil
	}
	halves := []windowHalf{{dayOffset: 0, start: start, end: "24:00"}}
	if endMin > 0 {
		halves = append(halves, windowHalf{dayOffset: 1, start: "00:00", end: end})
	}
	return halves, nil
}

// UpsertHourWindow stores a sale window under a day schedule. Overnight input
// is split here, and only here: the second half lands on the next
// day-of-week, whose schedule is upserted at the same rate if missing.
func (s *Service) UpsertHourWindow(ctx context.Context, dayScheduleID int64, startTime, endTime string, slotsOverride int) ([]models.HourWindow, error) {
	day, err := s.DB.GetDaySchedule(ctx, dayScheduleID)
	if err != nil {
		return nil, fmt.Errorf("day schedule %d not found: %w", dayScheduleID, err)
	}

	halves, err := splitOvernight(startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("invalid hour window %s-%s: %w", startTime, endTime, err)
	}

	var stored []models.HourWindow
	for _, half := range halves {
		target := day
		if half.dayOffset > 0 {
			nextDay := (day.DayOfWeek + half.dayOffset) % 7
			target, err = s.DB.UpsertDaySchedule(ctx, day.VenueID, nextDay, day.SlotsPerPeriod, day.IsActive)
			if err != nil {
				return nil, fmt.Errorf("upsert overflow day %d for venue %s: %w", nextDay, day.VenueID, err)
			}
			s.Logger.Info("SCHEDULE", fmt.Sprintf("overnight window split: second half %s-%s moved to day %d for venue %s", half.start, half.end, nextDay, day.VenueID))
		}
		window, err := s.DB.UpsertHourWindow(ctx, &models.HourWindow{
			DayScheduleID: target.ID,
			StartTime:     half.start,
			EndTime:       half.end,
			SlotsOverride: slotsOverride,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert hour window %s-%s: %w", half.start, half.end, err)
		}
		stored = append(stored, *window)
	}

	s.invalidate(ctx, day.VenueID)
	return stored, nil
}

// ApplyTimeSlots is the batch admin operation: upsert a set of (day, window,
// rate) entries for one venue in a single call.
func (s *Service) ApplyTimeSlots(ctx context.Context, venueID string, entries []models.TimeSlotEntry) error {
	for _, entry := range entries {
		day, err := s.UpsertDaySchedule(ctx, venueID, entry.DayOfWeek, entry.SlotsPerPeriod, true)
		if err != nil {
			return err
		}
		if _, err := s.UpsertHourWindow(ctx, day.ID, entry.StartTime, entry.EndTime, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ToggleDayActive(ctx context.Context, dayScheduleID int64, isActive bool) error {
	day, err := s.DB.GetDaySchedule(ctx, dayScheduleID)
	if err != nil {
		return fmt.Errorf("day schedule %d not found: %w", dayScheduleID, err)
	}
	if err := s.DB.ToggleDayActive(ctx, dayScheduleID, isActive); err != nil {
		return fmt.Errorf("toggle day schedule %d: %w", dayScheduleID, err)
	}
	s.invalidate(ctx, day.VenueID)
	return nil
}

func (s *Service) DeleteDaySchedule(ctx context.Context, dayScheduleID int64) error {
	day, err := s.DB.GetDaySchedule(ctx, dayScheduleID)
	if err != nil {
		return fmt.Errorf("day schedule %d not found: %w", dayScheduleID, err)
	}
	if err := s.DB.DeleteDaySchedule(ctx, dayScheduleID); err != nil {
		return fmt.Errorf("delete day schedule %d: %w", dayScheduleID, err)
	}
	s.invalidate(ctx, day.VenueID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, venueID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, venueID); err != nil {
		s.Logger.Warn("SCHEDULE", fmt.Sprintf("failed to invalidate availability cache for venue %s: %v", venueID, err))
	}
}
