package enums

import "fmt"

// PaymentStatus tracks the state of a captured charge. Capture is synchronous,
// so succeeded is the only state the engine writes today.
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusSucceeded,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
