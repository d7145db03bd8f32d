package domain

import "fmt"

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	s := PaymentStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, raw)
	}
	return s, nil
}

// PaymentInfo holds the references handed back by the payment provider. The provider
// itself is outside this service; these are opaque strings.
type PaymentInfo struct {
	Method    string `json:"method,omitempty"`
	OrderRef  string `json:"orderRef,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
	Signature string `json:"signature,omitempty"`
}
