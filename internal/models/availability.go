package models

import "time"

// NextOpening points at the first upcoming moment sales reopen for a venue,
// in venue-local terms.
type NextOpening struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
}

// Availability is the advisory view rendered by display surfaces. It must
// never be trusted as the gate against overselling; the ledger's transactional
// reserve is the authority.
type Availability struct {
	VenueID        string       `json:"venue_id"`
	IsOpen         bool         `json:"is_open"`
	SlotsRemaining int          `json:"slots_remaining"`
	PeriodStart    time.Time    `json:"period_start"`
	PeriodEnd      time.Time    `json:"period_end"`
	NextAvailable  *NextOpening `json:"next_available,omitempty"`
}

// CustomerInfo is what the checkout flow collects before payment.
type CustomerInfo struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	ReceivePromo bool   `json:"receive_promo"`
}
