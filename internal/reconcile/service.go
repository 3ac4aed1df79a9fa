// Package reconcile turns external payment outcomes into ledger state. Every
// outcome is recorded in the audit log first; only paid outcomes promote a
// hold into a confirmed sale. The whole path is idempotent, so redelivered
// webhooks and replayed Kafka messages are safe.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-queueskip/internal/ledger"
	"ms-queueskip/internal/logger"
	"ms-queueskip/internal/metrics"
	"ms-queueskip/internal/models"
)

type Ledger interface {
	Confirm(ctx context.Context, sessionID string) (*models.ConfirmedSale, error)
	Cancel(ctx context.Context, sessionID string, status models.HoldStatus) error
}

type AuditStore interface {
	AppendAudit(ctx context.Context, entry *models.AuditLogEntry) error
}

// Publisher announces confirmed sales downstream. Best effort: a publish
// failure is logged and swallowed, never unwinding the promotion.
type Publisher interface {
	PublishSaleConfirmed(ctx context.Context, event models.SaleConfirmedEvent) error
}

type Service struct {
	Ledger    Ledger
	Audit     AuditStore
	Publisher Publisher
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewService(ledgerSvc Ledger, audit AuditStore, publisher Publisher, log *logger.Logger) *Service {
	return &Service{
		Ledger:    ledgerSvc,
		Audit:     audit,
		Publisher: publisher,
		Logger:    log,
		Now:       time.Now,
	}
}

// OnPaymentOutcome processes one payment result. The audit entry is written
// before touching the ledger so the log captures outcomes even when
// promotion finds nothing to promote.
func (s *Service) OnPaymentOutcome(ctx context.Context, outcome models.PaymentOutcome) error {
	s.Logger.LogReservation("OUTCOME", outcome.SessionID, fmt.Sprintf("payment outcome received: status=%s venue=%s", outcome.Status, outcome.VenueID))
	metrics.PaymentOutcome(string(outcome.Status))

	entry := &models.AuditLogEntry{
		SessionID:     outcome.SessionID,
		VenueID:       outcome.VenueID,
		CustomerEmail: outcome.CustomerEmail,
		CustomerName:  outcome.CustomerName,
		PaymentStatus: string(outcome.Status),
		AmountTotal:   outcome.AmountTotal,
		CreatedAt:     s.Now(),
	}
	if err := s.Audit.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry for session %s: %w", outcome.SessionID, err)
	}

	if outcome.Status != models.OutcomePaid {
		if err := s.Ledger.Cancel(ctx, outcome.SessionID, models.HoldCancelled); err != nil {
			return fmt.Errorf("cancel hold for session %s: %w", outcome.SessionID, err)
		}
		s.Logger.LogReservation("CANCEL", outcome.SessionID, "hold released after non-paid outcome")
		return nil
	}

	sale, err := s.Ledger.Confirm(ctx, outcome.SessionID)
	if err != nil {
		if errors.Is(err, ledger.ErrInconsistentState) {
			// A paid session with neither a hold nor a sale. Recorded in the
			// audit log above; operators chase it from there.
			s.Logger.Error("RECONCILE", fmt.Sprintf("paid outcome for session %s matches no hold and no sale", outcome.SessionID))
			return nil
		}
		return fmt.Errorf("confirm sale for session %s: %w", outcome.SessionID, err)
	}

	s.publishConfirmed(ctx, sale)
	return nil
}

func (s *Service) publishConfirmed(ctx context.Context, sale *models.ConfirmedSale) {
	if s.Publisher == nil {
		return
	}
	event := models.SaleConfirmedEvent{
		SessionID:     sale.SessionID,
		VenueID:       sale.VenueID,
		CustomerEmail: sale.CustomerEmail,
		CustomerName:  sale.CustomerName,
		AmountTotal:   sale.AmountTotal,
		ConfirmedAt:   s.Now(),
	}
	if err := s.Publisher.PublishSaleConfirmed(ctx, event); err != nil {
		s.Logger.Error("RECONCILE", fmt.Sprintf("failed to publish sale confirmed event for session %s: %v", sale.SessionID, err))
	}
}
