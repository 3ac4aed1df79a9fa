package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Venue struct {
	bun.BaseModel `bun:"table:venues"`

	ID        string          `bun:"id,pk" json:"id"`
	Name      string          `bun:"name" json:"name"`
	ImageURL  string          `bun:"image_url" json:"image_url"`
	Price     decimal.Decimal `bun:"price" json:"price"`
	TimeZone  string          `bun:"time_zone" json:"time_zone"`
	CreatedAt time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// Location resolves the venue's IANA time zone. All period math runs in
// venue-local time, never server-local.
func (v *Venue) Location() (*time.Location, error) {
	return time.LoadLocation(v.TimeZone)
}

// PriceCents returns the unit price in integer cents as charged at checkout.
func (v *Venue) PriceCents() int64 {
	return v.Price.Mul(decimal.NewFromInt(100)).IntPart()
}

type VenueWithSchedule struct {
	Venue     Venue                  `json:"venue"`
	Schedules []DayScheduleWithHours `json:"schedules"`
}
