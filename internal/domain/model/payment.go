package model

import "time"

// Payment is an immutable record of one charge attempt against a mandate.
// It is keyed by the processor-issued transaction id and is never mutated
// after creation, except that the reconciler may append a terminal status
// reported by an asynchronous notification.
type Payment struct {
	ID                  string // processor transaction id
	BillingAgreementID  string
	UserID              string
	Amount              float64
	Fee                 float64
	CurrencyCode        string
	Points              int
	WalletTransactionID string
	Status              string // processor payment status, e.g. "Completed"
	PendingReason       string
	ReasonCode          string
	OccurredAt          time.Time // processor order time
	CreatedAt           time.Time
}

// Completed reports whether the processor settled the charge synchronously.
func (p *Payment) Completed() bool { return p.Status == "Completed" }
