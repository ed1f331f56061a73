package adapter

import (
	"context"
	"time"

	"paypal-billing-orchestrator/internal/domain/model"
)

// AuthorizationResult is the outcome of establishing a new mandate with
// the processor: a checkout token the payer completes approval against.
type AuthorizationResult struct {
	Token     string
	Timestamp time.Time
}

// MandateDetails reports the processor-side state of a pending mandate.
type MandateDetails struct {
	Token             string
	CheckoutStatus    string
	AgreementAccepted bool
	Payer             model.Payer
}

// ChargeResult is the outcome of a reference transaction against an
// active billing agreement.
type ChargeResult struct {
	TransactionID string
	Status        string // "Completed" | "Pending" | ...
	Amount        float64
	Fee           float64
	CurrencyCode  string
	PendingReason string
	ReasonCode    string
	OrderTime     time.Time
}

// ProcessorGateway is the hex port for the external payment processor.
// Failures carry the processor's diagnostic as *domain.ProcessorError.
type ProcessorGateway interface {
	// Authorize opens a recurring-billing mandate bounded by amount and
	// returns the token the payer approves it with.
	Authorize(ctx context.Context, amount float64, currencyCode, memo, custom, cancelURL, returnURL, notifyURL string) (*AuthorizationResult, error)
	// GetDetails fetches the pending mandate's state and payer identity.
	GetDetails(ctx context.Context, token string) (*MandateDetails, error)
	// MaterializeAgreement converts an accepted token into a durable
	// billing agreement and returns its id.
	MaterializeAgreement(ctx context.Context, token string) (agreementID string, err error)
	// Charge executes one reference transaction against the agreement,
	// tagged with trackingID for traceability.
	Charge(ctx context.Context, agreementID string, amount float64, trackingID, notifyURL string) (*ChargeResult, error)
	// Cancel revokes the billing agreement. Callers treat the
	// "already canceled" processor code as success.
	Cancel(ctx context.Context, agreementID, notifyURL string) error
}
