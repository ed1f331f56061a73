//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"paypal-billing-orchestrator/internal/domain/model"
)

func TestPaymentRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewPaymentRepo(testPool)

	fullPayment := func() *model.Payment {
		return &model.Payment{
			ID:                  "TXN-5",
			BillingAgreementID:  "B-1",
			UserID:              "u1",
			Amount:              10.00,
			Fee:                 0.59,
			CurrencyCode:        "USD",
			Points:              500,
			WalletTransactionID: "T-9",
			Status:              "Completed",
			OccurredAt:          time.Now(),
			CreatedAt:           time.Now(),
		}
	}

	t.Run("save then find round trip", func(t *testing.T) {
		cleanup(t)

		if err := repo.Save(ctx, nil, fullPayment()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := repo.FindByID(ctx, nil, "TXN-5")
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if got.Amount != 10.00 || got.WalletTransactionID != "T-9" || got.Status != "Completed" {
			t.Fatalf("payment = %+v", got)
		}
	})

	t.Run("save fills stub left by an early completion notification", func(t *testing.T) {
		cleanup(t)

		// The notification outran the synchronous flow.
		if err := repo.UpsertStatus(ctx, nil, "TXN-5", "Completed"); err != nil {
			t.Fatalf("UpsertStatus() error = %v", err)
		}

		// The synchronous flow now persists the full record; it must
		// replace the stub's empty columns, not be swallowed by it.
		p := fullPayment()
		p.Status = "Pending"
		p.PendingReason = "echeck"
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := repo.FindByID(ctx, nil, "TXN-5")
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if got.Amount != 10.00 || got.WalletTransactionID != "T-9" || got.UserID != "u1" {
			t.Fatalf("detail columns not filled in: %+v", got)
		}
		// The reconciler already settled this payment; its verdict stays.
		if got.Status != "Completed" {
			t.Fatalf("status = %q, want Completed kept from the notification", got.Status)
		}
	})

	t.Run("notification after save upserts status only", func(t *testing.T) {
		cleanup(t)

		p := fullPayment()
		p.Status = "Pending"
		p.PendingReason = "echeck"
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := repo.UpsertStatus(ctx, nil, "TXN-5", "Completed"); err != nil {
			t.Fatalf("UpsertStatus() error = %v", err)
		}
		// Re-delivery is a no-op.
		if err := repo.UpsertStatus(ctx, nil, "TXN-5", "Completed"); err != nil {
			t.Fatalf("UpsertStatus() re-delivery error = %v", err)
		}

		got, err := repo.FindByID(ctx, nil, "TXN-5")
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if got.Status != "Completed" || got.Amount != 10.00 {
			t.Fatalf("payment = %+v", got)
		}
	})

	t.Run("list by agreement", func(t *testing.T) {
		cleanup(t)

		for _, id := range []string{"TXN-1", "TXN-2"} {
			p := fullPayment()
			p.ID = id
			if err := repo.Save(ctx, nil, p); err != nil {
				t.Fatalf("Save(%s) error = %v", id, err)
			}
		}
		other := fullPayment()
		other.ID = "TXN-3"
		other.BillingAgreementID = "B-2"
		if err := repo.Save(ctx, nil, other); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := repo.ListByAgreement(ctx, nil, "B-1")
		if err != nil {
			t.Fatalf("ListByAgreement() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d payments, want 2", len(got))
		}
	})
}
