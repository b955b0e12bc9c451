package checkout

import (
	"regexp"

	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/types"
)

var (
	stateRe = regexp.MustCompile(`^[A-Z]{2}$`)
	zipRe   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// ValidateAddress checks a normalized shipping address. Shipping is US only,
// so state must be a two-letter code and the ZIP a 5 or 5+4 form.
func ValidateAddress(addr types.Address) error {
	var fields []string
	if addr.Street == "" {
		fields = append(fields, "street")
	}
	if addr.City == "" {
		fields = append(fields, "city")
	}
	if !stateRe.MatchString(addr.State) {
		fields = append(fields, "state")
	}
	if !zipRe.MatchString(addr.Zip) {
		fields = append(fields, "zip")
	}
	if addr.Country != "US" {
		fields = append(fields, "country")
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping address").
			WithDetails(map[string]any{"fields": fields})
	}
	return nil
}
