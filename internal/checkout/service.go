// Package checkout drives the purchase flow: resolve the venue's current
// sale window, open a Stripe Checkout session, and claim a slot in the
// ledger under that session's id. Payment outcomes come back through the
// webhook boundary, which normalizes them before reconciliation.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-queueskip/internal/availability"
	"ms-queueskip/internal/ledger"
	"ms-queueskip/internal/logger"
	"ms-queueskip/internal/models"
)

// ErrSalesClosed means the venue has no open sale window right now. The
// availability surface tells customers when the next one starts.
var ErrSalesClosed = errors.New("queue skip sales are closed for this venue")

type VenueReader interface {
	GetVenue(ctx context.Context, venueID string) (*models.Venue, error)
}

type WindowResolver interface {
	ResolveReservationWindow(ctx context.Context, venue *models.Venue) (*availability.SaleWindow, error)
}

type Reserver interface {
	Reserve(ctx context.Context, p ledger.ReserveParams) (*models.PendingHold, error)
}

// PaymentGateway wraps the Stripe SDK so the reserve flow can be exercised
// without real API calls.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, venue *models.Venue, customer models.CustomerInfo) (*CheckoutSession, error)
	ExpireSession(ctx context.Context, sessionID string) error
}

// OutcomeSink receives normalized payment outcomes from the webhook
// boundary. Wired to the Kafka producer when messaging is enabled, or
// straight to the reconciler otherwise.
type OutcomeSink interface {
	Submit(ctx context.Context, outcome models.PaymentOutcome) error
}

// CheckoutSession is the slice of the Stripe session the flow needs.
type CheckoutSession struct {
	ID  string
	URL string
}

type ReservationResponse struct {
	SessionID   string    `json:"session_id"`
	CheckoutURL string    `json:"checkout_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Service struct {
	Venues       VenueReader
	Availability WindowResolver
	Ledger       Reserver
	Gateway      PaymentGateway
	Outcomes     OutcomeSink
	Logger       *logger.Logger
}

func NewService(venues VenueReader, avail WindowResolver, ledgerSvc Reserver, gateway PaymentGateway, outcomes OutcomeSink, log *logger.Logger) *Service {
	return &Service{
		Venues:       venues,
		Availability: avail,
		Ledger:       ledgerSvc,
		Gateway:      gateway,
		Outcomes:     outcomes,
		Logger:       log,
	}
}

// CreateReservation opens a Stripe Checkout session and places a hold on one
// slot in the current period. The window check here is advisory; the ledger
// re-validates capacity under its transaction, so a sold-out race surfaces as
// ErrSoldOut even after this check passed.
func (s *Service) CreateReservation(ctx context.Context, venueID string, customer models.CustomerInfo) (*ReservationResponse, error) {
	venue, err := s.Venues.GetVenue(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("venue %s not found: %w", venueID, err)
	}

	window, err := s.Availability.ResolveReservationWindow(ctx, venue)
	if err != nil {
		return nil, fmt.Errorf("resolve sale window for venue %s: %w", venueID, err)
	}
	if !window.Open {
		return nil, ErrSalesClosed
	}

	session, err := s.Gateway.CreateCheckoutSession(ctx, venue, customer)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	s.Logger.LogReservation("CHECKOUT", session.ID, fmt.Sprintf("stripe session opened for venue %s", venueID))

	hold, err := s.Ledger.Reserve(ctx, ledger.ReserveParams{
		VenueID:       venueID,
		SessionID:     session.ID,
		Customer:      customer,
		AmountTotal:   venue.PriceCents(),
		DayOfWeek:     window.Period.DayOfWeek,
		PeriodStart:   window.Period.Start,
		PeriodEnd:     window.Period.End,
		SlotsOverride: window.SlotsOverride,
	})
	if err != nil {
		// The session was already opened; expire it so the customer cannot
		// pay for a slot that was never held.
		if expireErr := s.Gateway.ExpireSession(ctx, session.ID); expireErr != nil {
			s.Logger.Warn("CHECKOUT", fmt.Sprintf("failed to expire stripe session %s after reserve failure: %v", session.ID, expireErr))
		}
		return nil, err
	}

	return &ReservationResponse{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
		ExpiresAt:   hold.ExpiresAt,
	}, nil
}

// SubmitOutcome forwards a normalized payment outcome for reconciliation.
func (s *Service) SubmitOutcome(ctx context.Context, outcome models.PaymentOutcome) error {
	return s.Outcomes.Submit(ctx, outcome)
}
