package models

import (
	"time"

	"github.com/uptrace/bun"
)

// DaySchedule configures queue-skip sales for one venue on one day of the
// week (0=Sunday..6=Saturday). At most one row exists per (venue, day); the
// reservation ledger write-locks this row to serialize capacity checks.
type DaySchedule struct {
	bun.BaseModel `bun:"table:day_schedules"`

	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	VenueID        string    `bun:"venue_id" json:"venue_id"`
	DayOfWeek      int       `bun:"day_of_week" json:"day_of_week"`
	SlotsPerPeriod int       `bun:"slots_per_period" json:"slots_per_period"`
	IsActive       bool      `bun:"is_active" json:"is_active"`
	CreatedAt      time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// HourWindow is a child of DaySchedule describing when within that day sales
// are open, as local wall-clock "HH:MM" strings. Containment is half-open:
// a time t is inside the window when start <= t < end. Overnight windows are
// split by the schedule store before they ever reach this table.
type HourWindow struct {
	bun.BaseModel `bun:"table:hour_windows"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	DayScheduleID int64     `bun:"day_schedule_id" json:"day_schedule_id"`
	StartTime     string    `bun:"start_time" json:"start_time"`
	EndTime       string    `bun:"end_time" json:"end_time"`
	SlotsOverride int       `bun:"slots_override,nullzero" json:"slots_override,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

type DayScheduleWithHours struct {
	DaySchedule DaySchedule  `json:"day_schedule"`
	Hours       []HourWindow `json:"hours"`
}

// TimeSlotEntry is the admin-facing shape for batch schedule updates: one
// (day, window, rate) triple per entry.
type TimeSlotEntry struct {
	DayOfWeek      int    `json:"day_of_week"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	SlotsPerPeriod int    `json:"slots_per_period"`
}
