package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrMandateExists      = errors.New("user already has a non-cancelled mandate")
	ErrMandateNotActive   = errors.New("mandate is not active")
	ErrMandateCancelled   = errors.New("mandate has been cancelled")
	ErrInvalidPurchaseKey = errors.New("purchase key is invalid")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidTransition  = errors.New("invalid mandate status transition")

	// Storage-layer errors
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context for query")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

// Processor error codes we act on. Everything else is surfaced to the
// caller unchanged inside a ProcessorError.
const (
	ProcessorCodeAgreementCanceled = "10201"
	ProcessorCodeTokenExpired      = "10411"
)

// ProcessorError carries the payment processor's structured diagnostic
// (short message plus its numeric error code as a string).
type ProcessorError struct {
	Code    string
	Message string
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor error %s: %s", e.Code, e.Message)
}

// AsProcessorError unwraps err into a *ProcessorError if one is present.
func AsProcessorError(err error) (*ProcessorError, bool) {
	var pe *ProcessorError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ChargeStep identifies where a charge saga failed so callers can tell
// "money not charged" apart from "money charged, wallet not credited".
type ChargeStep string

const (
	StepWalletTransaction ChargeStep = "wallet_transaction"
	StepProcessorCharge   ChargeStep = "processor_charge"
	StepPersistPayment    ChargeStep = "persist_payment"
)

// ChargeError wraps a charge failure with the saga step that produced it.
type ChargeError struct {
	Step ChargeStep
	Err  error
}

func (e *ChargeError) Error() string {
	return fmt.Sprintf("charge failed at %s: %v", e.Step, e.Err)
}

func (e *ChargeError) Unwrap() error { return e.Err }
