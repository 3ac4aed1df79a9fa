// Package availability computes whether queue-skip sales are open for a
// venue right now and how many slots the current 15-minute period still has.
// The result is advisory, rendered by display surfaces; the ledger's
// transactional reserve is the only authority against overselling.
package availability

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"ms-queueskip/internal/models"
)

// PeriodMinutes is the size of one sale period.
const PeriodMinutes = 15

// Period is one 15-minute capacity-accounting slice, expressed as UTC
// instants whose boundaries were computed on the venue-local clock.
type Period struct {
	Start     time.Time
	End       time.Time
	DayOfWeek int
}

// CurrentPeriod rounds nowUTC down to the start of the venue-local 15-minute
// period. The boundary is anchored by duration arithmetic from the instant
// itself, never by rebuilding the wall clock with time.Date: during a
// fall-back transition the wall clock is ambiguous and reconstruction
// resolves the repeated hour to its first occurrence, which would put the
// period a full hour away from now. The venue-local clock still decides how
// far into the quarter hour we are, so zones with non-hour offsets align
// with the local grid.
func CurrentPeriod(nowUTC time.Time, loc *time.Location) Period {
	local := nowUTC.In(loc)
	intoPeriod := time.Duration(local.Minute()%PeriodMinutes)*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	start := local.Add(-intoPeriod)
	return Period{
		Start:     start,
		End:       start.Add(PeriodMinutes * time.Minute),
		DayOfWeek: int(local.Weekday()),
	}
}

// ParseClock turns "HH:MM" into minutes since local midnight.
func ParseClock(hhmm string) (int, error) {
	parts := strings.SplitN(hhmm, ":", 3)
	if len(parts) < 2 {
		return 0, fmt.Errorf("malformed clock time %q", hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("malformed hour in %q", hhmm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed minute in %q", hhmm)
	}
	// "24:00" is a valid end-of-day terminator for split overnight windows.
	if h == 24 && m != 0 {
		return 0, fmt.Errorf("malformed clock time %q", hhmm)
	}
	return h*60 + m, nil
}

// windowContains reports whether a minute-of-day falls inside the window.
// Containment is half-open [start, end): the end minute belongs to the next
// window, so adjacent windows never double-count a boundary minute.
func windowContains(w models.HourWindow, minuteOfDay int) (bool, error) {
	start, err := ParseClock(w.StartTime)
	if err != nil {
		return false, err
	}
	end, err := ParseClock(w.EndTime)
	if err != nil {
		return false, err
	}
	return minuteOfDay >= start && minuteOfDay < end, nil
}

// SaleWindow is the resolved state of the venue clock: whether sales are open
// this period, at what capacity, and when they next open if not.
type SaleWindow struct {
	Open          bool
	Capacity      int
	SlotsOverride int
	Period        Period
	Next          *models.NextOpening
}

// ResolveWindow evaluates a venue's weekly schedule at nowUTC. week holds at
// most one entry per day-of-week, as the schedule store enforces.
func ResolveWindow(venue *models.Venue, week []models.DayScheduleWithHours, nowUTC time.Time) (*SaleWindow, error) {
	loc, err := venue.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve time zone %q for venue %s: %w", venue.TimeZone, venue.ID, err)
	}

	period := CurrentPeriod(nowUTC, loc)
	local := nowUTC.In(loc)
	minuteOfDay := local.Hour()*60 + local.Minute()

	byDay := make(map[int]models.DayScheduleWithHours, len(week))
	for _, d := range week {
		byDay[d.DaySchedule.DayOfWeek] = d
	}

	window := &SaleWindow{Period: period}

	if today, ok := byDay[period.DayOfWeek]; ok && today.DaySchedule.IsActive {
		for _, hw := range today.Hours {
			inside, err := windowContains(hw, minuteOfDay)
			if err != nil {
				return nil, err
			}
			if inside {
				window.Open = true
				window.Capacity = today.DaySchedule.SlotsPerPeriod
				if hw.SlotsOverride > 0 {
					window.Capacity = hw.SlotsOverride
					window.SlotsOverride = hw.SlotsOverride
				}
				break
			}
		}
	}

	// Next is computed even when open: a sold-out open period reports the
	// following opening too.
	window.Next = nextOpening(byDay, period.DayOfWeek, minuteOfDay)
	return window, nil
}

// nextOpening scans forward from the current local moment for the first
// window start: later windows today first, then the next active day within a
// week. Returns nil when the whole week is dark.
func nextOpening(byDay map[int]models.DayScheduleWithHours, dayOfWeek, minuteOfDay int) *models.NextOpening {
	for offset := 0; offset <= 7; offset++ {
		day := (dayOfWeek + offset) % 7
		sched, ok := byDay[day]
		if !ok || !sched.DaySchedule.IsActive || len(sched.Hours) == 0 {
			continue
		}

		hours := make([]models.HourWindow, len(sched.Hours))
		copy(hours, sched.Hours)
		sort.Slice(hours, func(i, j int) bool { return hours[i].StartTime < hours[j].StartTime })

		for _, hw := range hours {
			start, err := ParseClock(hw.StartTime)
			if err != nil {
				continue
			}
			if offset == 0 && start <= minuteOfDay {
				continue
			}
			return &models.NextOpening{DayOfWeek: day, StartTime: hw.StartTime}
		}
	}
	return nil
}
