package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"paypal-billing-orchestrator/internal/domain/model"
	"paypal-billing-orchestrator/internal/domain/ports/repository"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

// WebhookUseCase reconciles processor notifications with local state.
// It runs on an input stream uncorrelated with the synchronous saga and
// assumes no ordering relative to it; every write it issues is
// conditional, so a late notification can never move a mandate backwards.
type WebhookUseCase interface {
	// Ingest appends the raw payload to the notification log and returns
	// the stored record. Callers must not acknowledge the sender before
	// Ingest succeeds.
	Ingest(ctx context.Context, payload map[string]string) (*model.Notification, error)
	// Process dispatches a logged notification by type. It is safe to
	// call more than once for the same delivery.
	Process(ctx context.Context, n *model.Notification) error
}

type webhookUC struct {
	mandates repository.MandateRepository
	payments repository.PaymentRepository
	notifLog repository.NotificationLogRepository
	log      *zerolog.Logger
}

func NewWebhookUseCase(
	mandates repository.MandateRepository,
	payments repository.PaymentRepository,
	notifLog repository.NotificationLogRepository,
	logger *zerolog.Logger,
) *webhookUC {
	return &webhookUC{mandates: mandates, payments: payments, notifLog: notifLog, log: logger}
}

func (u *webhookUC) Ingest(ctx context.Context, payload map[string]string) (*model.Notification, error) {
	n := &model.Notification{
		ID:         ulid.Make().String(),
		TxnType:    payload["txn_type"],
		Payload:    payload,
		ReceivedAt: time.Now(),
	}
	if err := u.notifLog.Append(ctx, repository.NoTX, n); err != nil {
		return nil, fmt.Errorf("append notification log: %w", err)
	}
	return n, nil
}

func (u *webhookUC) Process(ctx context.Context, n *model.Notification) error {
	switch n.TxnType {
	case model.NotificationMandateUpdate:
		return u.applyMandateUpdate(ctx, n)
	case model.NotificationMandateCancel:
		return u.applyMandateCancel(ctx, n)
	case model.NotificationPaymentComplete:
		return u.applyPaymentComplete(ctx, n)
	default:
		// Unknown types are diagnostics, never failures: the delivery
		// was acknowledged and logged already.
		u.log.Debug().Str("notification_id", n.ID).Str("txn_type", n.TxnType).
			Msg("unhandled notification type")
		return nil
	}
}

// mandateKey resolves the record key the notification addresses: the
// billing agreement id when present, otherwise the checkout token.
func mandateKey(n *model.Notification) string {
	if v := n.Field("mp_id"); v != "" {
		return v
	}
	return n.Field("token")
}

func (u *webhookUC) applyMandateUpdate(ctx context.Context, n *model.Notification) error {
	key := mandateKey(n)
	if key == "" {
		u.log.Warn().Str("notification_id", n.ID).Msg("mandate update without key")
		return nil
	}

	if !n.Approved() {
		matched, err := u.mandates.CancelByKey(ctx, repository.NoTX, key)
		if err != nil {
			return err
		}
		u.log.Info().Str("key", key).Int64("matched", matched).Msg("mandate cancelled by disapproval notification")
		return nil
	}

	upd := repository.MandateUpdate{}
	switch n.Field("status") {
	case "ACTIVE":
		s := model.MandateStatusActive
		upd.Status = &s
	case "CANCELED":
		s := model.MandateStatusCancelled
		upd.Status = &s
	}
	if v := n.Field("sender_email"); v != "" {
		upd.PayerEmail = &v
	}
	if v := n.Field("starting_date"); v != "" {
		upd.ValidFrom = &v
	}
	if v := n.Field("ending_date"); v != "" {
		upd.ValidUntil = &v
	}

	matched, err := u.mandates.ApplyUpdate(ctx, repository.NoTX, key, upd)
	if err != nil {
		return err
	}
	if matched == 0 {
		// Row is terminal or the transition would run backwards; the
		// conditional write turned this delivery into a no-op.
		u.log.Debug().Str("key", key).Msg("mandate update notification no-op")
	}
	return nil
}

func (u *webhookUC) applyMandateCancel(ctx context.Context, n *model.Notification) error {
	key := mandateKey(n)
	if key == "" {
		u.log.Warn().Str("notification_id", n.ID).Msg("mandate cancel without key")
		return nil
	}
	// Multi-row: a billing id can appear on more than one mandate after
	// a retried creation; all of them are terminal now.
	matched, err := u.mandates.CancelByKey(ctx, repository.NoTX, key)
	if err != nil {
		return err
	}
	u.log.Info().Str("key", key).Int64("matched", matched).Msg("mandate cancelled by notification")
	return nil
}

func (u *webhookUC) applyPaymentComplete(ctx context.Context, n *model.Notification) error {
	txnID := n.Field("txn_id")
	if txnID == "" {
		u.log.Warn().Str("notification_id", n.ID).Msg("payment notification without txn_id")
		return nil
	}
	status := n.Field("payment_status")
	if status != "Completed" {
		u.log.Debug().Str("txn_id", txnID).Str("status", status).Msg("ignoring non-terminal payment notification")
		return nil
	}
	// Idempotent upsert: this may arrive before, after, or instead of
	// the synchronous charge flow persisting the payment.
	return u.payments.UpsertStatus(ctx, repository.NoTX, txnID, status)
}
