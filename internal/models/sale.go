package models

import (
	"time"

	"github.com/uptrace/bun"
)

const PaymentStatusPaid = "paid"

// ConfirmedSale is one successfully paid purchase. The session id is the
// primary key, so promoting the same checkout session twice is rejected by
// uniqueness rather than by locking. CreatedAt is carried over from the
// originating hold so the sale keeps counting against its reservation period.
type ConfirmedSale struct {
	bun.BaseModel `bun:"table:confirmed_sales"`

	SessionID     string    `bun:"session_id,pk" json:"session_id"`
	VenueID       string    `bun:"venue_id" json:"venue_id"`
	CustomerEmail string    `bun:"customer_email" json:"customer_email"`
	CustomerName  string    `bun:"customer_name" json:"customer_name"`
	AmountTotal   int64     `bun:"amount_total" json:"amount_total"`
	ReceivePromo  bool      `bun:"receive_promo" json:"receive_promo"`
	PaymentStatus string    `bun:"payment_status" json:"payment_status"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// AuditLogEntry records every payment-outcome event received, whether or not
// promotion succeeded. Append-only; never updated or deleted.
type AuditLogEntry struct {
	bun.BaseModel `bun:"table:audit_log"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	SessionID     string    `bun:"session_id" json:"session_id"`
	VenueID       string    `bun:"venue_id" json:"venue_id"`
	CustomerEmail string    `bun:"customer_email" json:"customer_email"`
	CustomerName  string    `bun:"customer_name" json:"customer_name"`
	PaymentStatus string    `bun:"payment_status" json:"payment_status"`
	AmountTotal   int64     `bun:"amount_total" json:"amount_total"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}
