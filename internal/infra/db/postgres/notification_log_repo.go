package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4/pgxpool"

	"paypal-billing-orchestrator/internal/domain"
	"paypal-billing-orchestrator/internal/domain/model"
	"paypal-billing-orchestrator/internal/domain/ports/repository"
)

var _ repository.NotificationLogRepository = (*notificationLogRepo)(nil)

type notificationLogRepo struct{ pool *pgxpool.Pool }

func NewNotificationLogRepo(pool *pgxpool.Pool) *notificationLogRepo {
	return &notificationLogRepo{pool: pool}
}

func (r *notificationLogRepo) Append(ctx context.Context, tx repository.Tx, n *model.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO notification_log (id, txn_type, payload, received_at) VALUES ($1,$2,$3,$4);`
	if _, err := execSQL(ctx, r.pool, tx, q, n.ID, n.TxnType, payload, n.ReceivedAt); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *notificationLogRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.Notification, error) {
	// ULIDs sort by arrival time, so ordering by id is ordering by receipt.
	const q = `SELECT id, txn_type, payload, received_at FROM notification_log ORDER BY id DESC LIMIT $1;`
	rows, err := pickRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		var payload []byte
		if err := rows.Scan(&n.ID, &n.TxnType, &payload, &n.ReceivedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &n.Payload); err != nil {
				return nil, domain.ErrReadDatabaseRow
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
