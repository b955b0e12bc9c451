package checkout

import (
	"testing"

	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/types"
)

func validAddress() types.Address {
	return types.Address{
		Street:  "600 Congress Ave",
		City:    "Austin",
		State:   "TX",
		Zip:     "78701",
		Country: "US",
	}
}

func TestValidateAddress(t *testing.T) {
	t.Parallel()

	if err := ValidateAddress(validAddress()); err != nil {
		t.Fatalf("valid address rejected: %v", err)
	}

	mutations := map[string]func(*types.Address){
		"missing street":      func(a *types.Address) { a.Street = "" },
		"missing city":        func(a *types.Address) { a.City = "" },
		"long state":          func(a *types.Address) { a.State = "Texas" },
		"lowercase state":     func(a *types.Address) { a.State = "tx" },
		"short zip":           func(a *types.Address) { a.Zip = "7870" },
		"alpha zip":           func(a *types.Address) { a.Zip = "7870A" },
		"non-us country":      func(a *types.Address) { a.Country = "CA" },
		"empty country":       func(a *types.Address) { a.Country = "" },
		"zip with bad suffix": func(a *types.Address) { a.Zip = "78701-12" },
	}
	for name, mutate := range mutations {
		name, mutate := name, mutate
		t.Run(name, func(t *testing.T) {
			addr := validAddress()
			mutate(&addr)
			err := ValidateAddress(addr)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	t.Run("zip plus four accepted", func(t *testing.T) {
		addr := validAddress()
		addr.Zip = "78701-1234"
		if err := ValidateAddress(addr); err != nil {
			t.Fatalf("zip+4 rejected: %v", err)
		}
	})
}
