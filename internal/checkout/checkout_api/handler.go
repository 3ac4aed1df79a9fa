package checkout_api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-queueskip/internal/availability"
	"ms-queueskip/internal/checkout"
	"ms-queueskip/internal/config"
	"ms-queueskip/internal/ledger"
	"ms-queueskip/internal/logger"
	"ms-queueskip/internal/models"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	CheckoutService     *checkout.Service
	AvailabilityService *availability.Service
	StripeConfig        config.StripeConfig
	Logger              *logger.Logger
}

func NewHandler(checkoutService *checkout.Service, availabilityService *availability.Service, stripeCfg config.StripeConfig, log *logger.Logger) *Handler {
	return &Handler{
		CheckoutService:     checkoutService,
		AvailabilityService: availabilityService,
		StripeConfig:        stripeCfg,
		Logger:              log,
	}
}

// GetAvailability serves the advisory availability snapshot for a venue.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "venueId")
	h.Logger.Info("API", fmt.Sprintf("GetAvailability: venueId=%s", venueID))

	snapshot, err := h.AvailabilityService.GetAvailability(r.Context(), venueID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetAvailability: failed to compute availability: %v", err))
		http.Error(w, "Failed to retrieve availability: "+err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetAvailability: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("GetAvailability: venue %s open=%t remaining=%d", venueID, snapshot.IsOpen, snapshot.SlotsRemaining))
}

// CreateReservation opens a checkout session and holds a slot.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "venueId")
	h.Logger.Info("API", fmt.Sprintf("CreateReservation: venueId=%s", venueID))

	var req struct {
		Name         string `json:"name"`
		Email        string `json:"email"`
		ReceivePromo bool   `json:"receive_promo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateReservation: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		h.Logger.Warn("API", "CreateReservation: email is required")
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	resp, err := h.CheckoutService.CreateReservation(r.Context(), venueID, models.CustomerInfo{
		Name:         req.Name,
		Email:        req.Email,
		ReceivePromo: req.ReceivePromo,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrSoldOut):
			h.Logger.Warn("API", fmt.Sprintf("CreateReservation: venue %s sold out", venueID))
			http.Error(w, "All slots for this period are taken", http.StatusConflict)
		case errors.Is(err, checkout.ErrSalesClosed):
			h.Logger.Warn("API", fmt.Sprintf("CreateReservation: venue %s sales closed", venueID))
			http.Error(w, "Queue skip sales are closed for this venue", http.StatusConflict)
		case errors.Is(err, ledger.ErrScheduleNotConfigured):
			h.Logger.Warn("API", fmt.Sprintf("CreateReservation: venue %s has no schedule for today", venueID))
			http.Error(w, "Queue skip is not configured for this venue today", http.StatusNotFound)
		case errors.Is(err, sql.ErrNoRows):
			h.Logger.Warn("API", fmt.Sprintf("CreateReservation: venue %s not found", venueID))
			http.Error(w, "Venue not found", http.StatusNotFound)
		default:
			h.Logger.Error("API", fmt.Sprintf("CreateReservation: failed to create reservation: %v", err))
			http.Error(w, "Failed to create reservation: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateReservation: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateReservation: session %s created for venue %s", resp.SessionID, venueID))
}

// StripeWebhook handles webhook events from Stripe
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "StripeWebhook: received webhook event")

	outcome, err := h.CheckoutService.ParseWebhookOutcome(r, h.StripeConfig.WebhookSecret)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("StripeWebhook: failed to process webhook: %v", err))

		var webhookErr *checkout.WebhookError
		if errors.As(err, &webhookErr) {
			h.Logger.Info("API", fmt.Sprintf("StripeWebhook: handling webhook error category=%s, status=%d",
				webhookErr.Category, webhookErr.StatusCode))
			http.Error(w, webhookErr.PublicError, webhookErr.StatusCode)
			return
		}

		http.Error(w, "Webhook processing error", http.StatusBadRequest)
		return
	}

	// Event type the flow does not react to; acknowledge so Stripe stops
	// redelivering it.
	if outcome == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.CheckoutService.SubmitOutcome(r.Context(), *outcome); err != nil {
		h.Logger.Error("API", fmt.Sprintf("StripeWebhook: failed to submit outcome for session %s: %v", outcome.SessionID, err))
		http.Error(w, "Failed to process payment outcome", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	h.Logger.Info("API", fmt.Sprintf("StripeWebhook: outcome for session %s submitted (%s)", outcome.SessionID, outcome.Status))
}
