package model

import "time"

// Notification transaction types delivered by the processor's IPN stream.
const (
	NotificationMandateUpdate   = "mp_signup"
	NotificationMandateCancel   = "mp_cancel"
	NotificationPaymentComplete = "merch_pmt"
)

// Notification is one asynchronous message from the processor: an opaque
// key-value payload plus the type field it is dispatched on. Every
// notification is appended to the log before any processing happens.
type Notification struct {
	ID         string // ULID, assigned at arrival; the log is ordered by it
	TxnType    string
	Payload    map[string]string
	ReceivedAt time.Time
}

// Field returns a payload value, empty when absent.
func (n *Notification) Field(key string) string { return n.Payload[key] }

// Approved reports the mandate-update approval flag.
func (n *Notification) Approved() bool { return n.Payload["approved"] == "true" }
