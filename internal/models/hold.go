package models

import (
	"time"

	"github.com/uptrace/bun"
)

type HoldStatus string

const (
	HoldPending        HoldStatus = "pending"
	HoldCancelled      HoldStatus = "cancelled"
	HoldFailedCapacity HoldStatus = "failed_inventory_check"
)

// PendingHold is a provisional reservation of one slot: created when the
// customer is sent to external payment, promoted to a ConfirmedSale on a paid
// outcome, marked cancelled/failed on a declined one, or reclaimed by the
// sweeper once ExpiresAt passes. It counts toward capacity only while
// Status == pending and ExpiresAt is in the future.
type PendingHold struct {
	bun.BaseModel `bun:"table:pending_holds"`

	ID            string     `bun:"id,pk" json:"id"`
	SessionID     string     `bun:"session_id,unique" json:"session_id"`
	VenueID       string     `bun:"venue_id" json:"venue_id"`
	CustomerEmail string     `bun:"customer_email" json:"customer_email"`
	CustomerName  string     `bun:"customer_name" json:"customer_name"`
	AmountTotal   int64      `bun:"amount_total" json:"amount_total"`
	ReceivePromo  bool       `bun:"receive_promo" json:"receive_promo"`
	Status        HoldStatus `bun:"status" json:"status"`
	ExpiresAt     time.Time  `bun:"expires_at" json:"expires_at"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}
