package model

import (
	"regexp"
	"time"

	"paypal-billing-orchestrator/internal/domain"
)

type MandateStatus string

const (
	MandateStatusPending   MandateStatus = "PENDING"
	MandateStatusActive    MandateStatus = "ACTIVE"
	MandateStatusCancelled MandateStatus = "CANCELED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s MandateStatus) Terminal() bool { return s == MandateStatusCancelled }

// CanTransition enforces the mandate lifecycle: PENDING -> ACTIVE -> CANCELED
// or PENDING -> CANCELED. Status never moves backwards.
func (s MandateStatus) CanTransition(to MandateStatus) bool {
	switch s {
	case MandateStatusPending:
		return to == MandateStatusActive || to == MandateStatusCancelled
	case MandateStatusActive:
		return to == MandateStatusCancelled
	default:
		return false
	}
}

// PurchaseKeyPattern is the catalog prefix this service sells under.
var PurchaseKeyPattern = regexp.MustCompile(`^PPAP_`)

// Payer is a snapshot of the payer's identity captured once, at activation.
type Payer struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Status      string `json:"status"`
	CountryCode string `json:"country_code"`
	Name        string `json:"name"`
}

// Mandate is a recurring-billing authorization (preapproval) created once
// and charged against repeatedly, bounded by a per-charge ceiling.
//
// ID is the processor-issued checkout token and never changes.
// BillingAgreementID is set at activation and becomes the key used for
// charges and cancellation; lookups resolve across both.
type Mandate struct {
	ID                 string
	BillingAgreementID string
	Status             MandateStatus
	UserID             string
	SecondaryID        string // identity passed to the wallet service
	PurchaseKey        string
	Points             int
	MaxAmountPerCharge float64
	CurrentChargeCount int
	CurrentChargeTotal float64
	Payer              *Payer
	// Validity window as reported by the processor, kept verbatim.
	ValidFrom  string
	ValidUntil string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewMandate creates a pending mandate from a processor authorization.
func NewMandate(token, userID, secondaryID, purchaseKey string, points int, maxAmount float64, authorizedAt time.Time) (*Mandate, error) {
	if token == "" || userID == "" || secondaryID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !PurchaseKeyPattern.MatchString(purchaseKey) {
		return nil, domain.ErrInvalidPurchaseKey
	}
	if maxAmount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if authorizedAt.IsZero() {
		authorizedAt = time.Now()
	}
	return &Mandate{
		ID:                 token,
		Status:             MandateStatusPending,
		UserID:             userID,
		SecondaryID:        secondaryID,
		PurchaseKey:        purchaseKey,
		Points:             points,
		MaxAmountPerCharge: maxAmount,
		CreatedAt:          authorizedAt,
		UpdatedAt:          authorizedAt,
	}, nil
}

// ChargeKey returns the identifier charges must reference: the billing
// agreement once one exists, otherwise the token.
func (m *Mandate) ChargeKey() string {
	if m.BillingAgreementID != "" {
		return m.BillingAgreementID
	}
	return m.ID
}

// ClampAmount resolves a requested charge amount against the authorized
// ceiling. A zero or over-ceiling request uses the ceiling itself.
func (m *Mandate) ClampAmount(requested float64) float64 {
	if requested <= 0 || requested > m.MaxAmountPerCharge {
		return m.MaxAmountPerCharge
	}
	return requested
}
