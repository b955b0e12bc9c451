package enums

import (
	"fmt"
	"strings"
)

// PrintPlacement says where a custom design is printed on the garment.
type PrintPlacement string

const (
	PrintPlacementFront PrintPlacement = "front"
	PrintPlacementBack  PrintPlacement = "back"
	PrintPlacementBoth  PrintPlacement = "both"
)

var validPrintPlacements = []PrintPlacement{
	PrintPlacementFront,
	PrintPlacementBack,
	PrintPlacementBoth,
}

// String implements fmt.Stringer.
func (p PrintPlacement) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PrintPlacement) IsValid() bool {
	for _, candidate := range validPrintPlacements {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePrintPlacement converts raw input into a PrintPlacement.
func ParsePrintPlacement(value string) (PrintPlacement, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPrintPlacements {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid print placement %q", value)
}
