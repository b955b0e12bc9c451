package enums

import (
	"fmt"
	"strings"
)

// PaymentType distinguishes order payments from standalone design-session fees.
type PaymentType string

const (
	PaymentTypeSessionFee   PaymentType = "session_fee"
	PaymentTypeOrderPayment PaymentType = "order_payment"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeSessionFee,
	PaymentTypeOrderPayment,
}

// String implements fmt.Stringer.
func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
