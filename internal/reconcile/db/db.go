package db

import (
	"context"

	"ms-queueskip/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// AppendAudit records one payment outcome as received. The table is
// append-only; duplicate deliveries for a session produce duplicate rows on
// purpose, since the log reflects what the provider actually sent.
func (d *DB) AppendAudit(ctx context.Context, entry *models.AuditLogEntry) error {
	_, err := d.Bun.NewInsert().Model(entry).Exec(ctx)
	return err
}
