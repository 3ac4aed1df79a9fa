package models

import "time"

type OutcomeStatus string

const (
	OutcomePaid   OutcomeStatus = "paid"
	OutcomeFailed OutcomeStatus = "failed"
)

// PaymentOutcome is the single stable internal shape for an external payment
// result. Provider payloads (Stripe webhooks today) are parsed into it at the
// HTTP boundary; the ledger and reconciler never see raw provider JSON.
type PaymentOutcome struct {
	SessionID     string        `json:"session_id"`
	VenueID       string        `json:"venue_id"`
	Status        OutcomeStatus `json:"status"`
	CustomerEmail string        `json:"customer_email"`
	CustomerName  string        `json:"customer_name"`
	AmountTotal   int64         `json:"amount_total"`
	ReceiptURL    string        `json:"receipt_url,omitempty"`
	ReceivedAt    time.Time     `json:"received_at"`
}

// SaleConfirmedEvent is published to Kafka after a successful promotion so
// downstream consumers (email dispatch, reporting) can react. Publishing is
// best effort and never rolls back the promotion.
type SaleConfirmedEvent struct {
	SessionID     string    `json:"session_id"`
	VenueID       string    `json:"venue_id"`
	CustomerEmail string    `json:"customer_email"`
	CustomerName  string    `json:"customer_name"`
	AmountTotal   int64     `json:"amount_total"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}
