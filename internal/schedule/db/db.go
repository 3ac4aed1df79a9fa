package db

import (
	"context"
	"database/sql"
	"time"

	"ms-queueskip/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- VENUES ----------------

func (d *DB) GetVenue(ctx context.Context, venueID string) (*models.Venue, error) {
	var venue models.Venue
	err := d.Bun.NewSelect().
		Model(&venue).
		Where("id = ?", venueID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

func (d *DB) ListVenues(ctx context.Context) ([]models.Venue, error) {
	var venues []models.Venue
	err := d.Bun.NewSelect().
		Model(&venues).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return venues, nil
}

// ---------------- DAY SCHEDULES ----------------

func (d *DB) GetDaySchedule(ctx context.Context, id int64) (*models.DaySchedule, error) {
	var schedule models.DaySchedule
	err := d.Bun.NewSelect().
		Model(&schedule).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (d *DB) GetDayScheduleByVenueAndDay(ctx context.Context, venueID string, dayOfWeek int) (*models.DaySchedule, error) {
	var schedule models.DaySchedule
	err := d.Bun.NewSelect().
		Model(&schedule).
		Where("venue_id = ?", venueID).
		Where("day_of_week = ?", dayOfWeek).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// UpsertDaySchedule updates the existing row for (venue, day) or inserts a
// new one. The unique constraint on the pair means duplicates can never be
// created even under concurrent admin edits.
func (d *DB) UpsertDaySchedule(ctx context.Context, venueID string, dayOfWeek, slotsPerPeriod int, isActive bool) (*models.DaySchedule, error) {
	existing, err := d.GetDayScheduleByVenueAndDay(ctx, venueID, dayOfWeek)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	if existing != nil {
		existing.SlotsPerPeriod = slotsPerPeriod
		existing.IsActive = isActive
		existing.UpdatedAt = time.Now()
		_, err = d.Bun.NewUpdate().
			Model(existing).
			Column("slots_per_period", "is_active", "updated_at").
			Where("id = ?", existing.ID).
			Exec(ctx)
		if err != nil {
			return nil, err
		}
		return existing, nil
	}

	schedule := &models.DaySchedule{
		VenueID:        venueID,
		DayOfWeek:      dayOfWeek,
		SlotsPerPeriod: slotsPerPeriod,
		IsActive:       isActive,
		CreatedAt:      time.Now(),
	}
	_, err = d.Bun.NewInsert().Model(schedule).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// ToggleDayActive flips only the active flag, leaving the hour windows
// untouched.
func (d *DB) ToggleDayActive(ctx context.Context, id int64, isActive bool) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.DaySchedule)(nil)).
		Set("is_active = ?", isActive).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteDaySchedule removes a day schedule and its hour windows. The cascade
// is issued explicitly so it also holds on stores without FK enforcement.
func (d *DB) DeleteDaySchedule(ctx context.Context, id int64) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.HourWindow)(nil)).
			Where("day_schedule_id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		_, err = tx.NewDelete().
			Model((*models.DaySchedule)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
}

// ---------------- HOUR WINDOWS ----------------

func (d *DB) GetHourWindows(ctx context.Context, dayScheduleID int64) ([]models.HourWindow, error) {
	var hours []models.HourWindow
	err := d.Bun.NewSelect().
		Model(&hours).
		Where("day_schedule_id = ?", dayScheduleID).
		Order("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return hours, nil
}

// UpsertHourWindow updates a window with the same start time on the same day
// schedule, or inserts a fresh one.
func (d *DB) UpsertHourWindow(ctx context.Context, window *models.HourWindow) (*models.HourWindow, error) {
	var existing models.HourWindow
	err := d.Bun.NewSelect().
		Model(&existing).
		Where("day_schedule_id = ?", window.DayScheduleID).
		Where("start_time = ?", window.StartTime).
		Limit(1).
		Scan(ctx)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	if err == nil {
		existing.EndTime = window.EndTime
		existing.SlotsOverride = window.SlotsOverride
		existing.UpdatedAt = time.Now()
		_, err = d.Bun.NewUpdate().
			Model(&existing).
			Column("end_time", "slots_override", "updated_at").
			Where("id = ?", existing.ID).
			Exec(ctx)
		if err != nil {
			return nil, err
		}
		return &existing, nil
	}

	window.CreatedAt = time.Now()
	_, err = d.Bun.NewInsert().Model(window).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return window, nil
}

// ---------------- WEEK VIEW ----------------

// GetWeekSchedule loads all day schedules and their windows for a venue in
// two queries, grouped in memory.
func (d *DB) GetWeekSchedule(ctx context.Context, venueID string) ([]models.DayScheduleWithHours, error) {
	var days []models.DaySchedule
	err := d.Bun.NewSelect().
		Model(&days).
		Where("venue_id = ?", venueID).
		Order("day_of_week ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return []models.DayScheduleWithHours{}, nil
	}

	dayIDs := make([]int64, len(days))
	for i, day := range days {
		dayIDs[i] = day.ID
	}

	var hours []models.HourWindow
	err = d.Bun.NewSelect().
		Model(&hours).
		Where("day_schedule_id IN (?)", bun.In(dayIDs)).
		Order("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	hoursByDay := make(map[int64][]models.HourWindow)
	for _, hw := range hours {
		hoursByDay[hw.DayScheduleID] = append(hoursByDay[hw.DayScheduleID], hw)
	}

	result := make([]models.DayScheduleWithHours, len(days))
	for i, day := range days {
		result[i] = models.DayScheduleWithHours{
			DaySchedule: day,
			Hours:       hoursByDay[day.ID],
		}
		if result[i].Hours == nil {
			result[i].Hours = []models.HourWindow{}
		}
	}
	return result, nil
}
