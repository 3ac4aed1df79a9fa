package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-queueskip/internal/ledger"
	"ms-queueskip/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- SCHEDULE LOOKUP ----------------

// GetActiveDaySchedule fetches the active schedule row for a venue+day. Used
// as the fail-fast check before opening a reservation transaction.
func (d *DB) GetActiveDaySchedule(ctx context.Context, venueID string, dayOfWeek int) (*models.DaySchedule, error) {
	var schedule models.DaySchedule
	err := d.Bun.NewSelect().
		Model(&schedule).
		Where("venue_id = ?", venueID).
		Where("day_of_week = ?", dayOfWeek).
		Where("is_active = ?", true).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrScheduleNotConfigured
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ---------------- CAPACITY COUNTS ----------------

// CountConfirmedInRange counts paid sales for a venue created in
// [periodStart, periodEnd).
func (d *DB) CountConfirmedInRange(ctx context.Context, venueID string, periodStart, periodEnd time.Time) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.ConfirmedSale)(nil)).
		Where("venue_id = ?", venueID).
		Where("payment_status = ?", models.PaymentStatusPaid).
		Where("created_at >= ?", periodStart).
		Where("created_at < ?", periodEnd).
		Count(ctx)
}

// CountPendingInRange counts holds that still reserve capacity: pending,
// unexpired, created in [periodStart, periodEnd). The expires_at filter is
// what makes lazy sweeping safe.
func (d *DB) CountPendingInRange(ctx context.Context, venueID string, periodStart, periodEnd, now time.Time) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.PendingHold)(nil)).
		Where("venue_id = ?", venueID).
		Where("status = ?", models.HoldPending).
		Where("expires_at > ?", now).
		Where("created_at >= ?", periodStart).
		Where("created_at < ?", periodEnd).
		Count(ctx)
}

// ---------------- RESERVE ----------------

// CreateHold runs the critical section: lock the day-schedule row, re-check
// it is active, count committed capacity for the period, and either insert
// the hold or abort with ErrSoldOut. The row lock forces concurrent attempts
// against the same venue+day to serialize, which is the only thing preventing
// two transactions from both passing the count and jointly overselling.
//
// slotsOverride carries an hour-window override; zero means the day rate
// applies.
func (d *DB) CreateHold(ctx context.Context, hold *models.PendingHold, dayOfWeek int, periodStart, periodEnd, now time.Time, slotsOverride int) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var schedule models.DaySchedule
		q := tx.NewSelect().
			Model(&schedule).
			Where("venue_id = ?", hold.VenueID).
			Where("day_of_week = ?", dayOfWeek).
			Limit(1)
		// SQLite has no FOR UPDATE; its single-writer transaction lock
		// already serializes the section.
		if d.Bun.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ledger.ErrScheduleNotConfigured
			}
			return fmt.Errorf("lock day schedule: %w", err)
		}
		if !schedule.IsActive {
			return ledger.ErrScheduleNotConfigured
		}

		capacity := schedule.SlotsPerPeriod
		if slotsOverride > 0 {
			capacity = slotsOverride
		}

		confirmed, err := tx.NewSelect().
			Model((*models.ConfirmedSale)(nil)).
			Where("venue_id = ?", hold.VenueID).
			Where("payment_status = ?", models.PaymentStatusPaid).
			Where("created_at >= ?", periodStart).
			Where("created_at < ?", periodEnd).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("count confirmed sales: %w", err)
		}

		pending, err := tx.NewSelect().
			Model((*models.PendingHold)(nil)).
			Where("venue_id = ?", hold.VenueID).
			Where("status = ?", models.HoldPending).
			Where("expires_at > ?", now).
			Where("created_at >= ?", periodStart).
			Where("created_at < ?", periodEnd).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("count pending holds: %w", err)
		}

		if confirmed+pending >= capacity {
			return ledger.ErrSoldOut
		}

		if _, err := tx.NewInsert().Model(hold).Exec(ctx); err != nil {
			return fmt.Errorf("insert hold: %w", err)
		}
		return nil
	})
}

// ---------------- HOLD LIFECYCLE ----------------

// GetHoldBySession fetches a hold regardless of status or expiry.
func (d *DB) GetHoldBySession(ctx context.Context, sessionID string) (*models.PendingHold, error) {
	var hold models.PendingHold
	err := d.Bun.NewSelect().
		Model(&hold).
		Where("session_id = ?", sessionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

// GetSaleBySession fetches a confirmed sale by checkout session.
func (d *DB) GetSaleBySession(ctx context.Context, sessionID string) (*models.ConfirmedSale, error) {
	var sale models.ConfirmedSale
	err := d.Bun.NewSelect().
		Model(&sale).
		Where("session_id = ?", sessionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// PromoteHold promotes a pending hold to a confirmed sale in one transaction:
// insert the sale keyed by session id, then delete the hold. Expiry is
// deliberately ignored on the lookup; a hold whose timer lapsed moments
// before the payment cleared is still honored, because the payment really
// happened. Calling PromoteHold again for an already promoted session finds
// the existing sale and returns it unchanged.
func (d *DB) PromoteHold(ctx context.Context, sessionID string, now time.Time) (*models.ConfirmedSale, error) {
	var sale *models.ConfirmedSale
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var hold models.PendingHold
		err := tx.NewSelect().
			Model(&hold).
			Where("session_id = ?", sessionID).
			Where("status = ?", models.HoldPending).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			// Redelivered webhook: success if the sale already exists.
			var existing models.ConfirmedSale
			err := tx.NewSelect().
				Model(&existing).
				Where("session_id = ?", sessionID).
				Limit(1).
				Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return ledger.ErrInconsistentState
			}
			if err != nil {
				return fmt.Errorf("lookup confirmed sale: %w", err)
			}
			sale = &existing
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup pending hold: %w", err)
		}

		// created_at carries over from the hold so the sale stays in the
		// period the capacity was reserved in.
		promoted := &models.ConfirmedSale{
			SessionID:     hold.SessionID,
			VenueID:       hold.VenueID,
			CustomerEmail: hold.CustomerEmail,
			CustomerName:  hold.CustomerName,
			AmountTotal:   hold.AmountTotal,
			ReceivePromo:  hold.ReceivePromo,
			PaymentStatus: models.PaymentStatusPaid,
			CreatedAt:     hold.CreatedAt,
			UpdatedAt:     now,
		}
		_, err = tx.NewInsert().
			Model(promoted).
			On("CONFLICT (session_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert confirmed sale: %w", err)
		}

		_, err = tx.NewDelete().
			Model((*models.PendingHold)(nil)).
			Where("session_id = ?", sessionID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete promoted hold: %w", err)
		}

		sale = promoted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// UpdateHoldStatus moves a hold out of pending (cancelled or
// failed_inventory_check). The row is kept for audit; the status change alone
// releases its capacity.
func (d *DB) UpdateHoldStatus(ctx context.Context, sessionID string, status models.HoldStatus) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.PendingHold)(nil)).
		Set("status = ?", status).
		Where("session_id = ?", sessionID).
		Where("status = ?", models.HoldPending).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ---------------- SWEEPER ----------------

// SweepExpired physically deletes holds whose expiry has passed and returns
// how many were reclaimed. This is an optimization only: the expires_at
// filter on every capacity read is what correctness depends on.
func (d *DB) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.PendingHold)(nil)).
		Where("expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}
