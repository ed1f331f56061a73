package repository

import (
	"context"

	"paypal-billing-orchestrator/internal/domain/model"
)

// -----------------------------
// Notification log
// -----------------------------

// NotificationLogRepository is the append-only log of every processor
// notification, written before dispatch so deliveries can be replayed
// and audited regardless of processing outcome.
type NotificationLogRepository interface {
	Append(ctx context.Context, tx Tx, n *model.Notification) error
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.Notification, error)
}
