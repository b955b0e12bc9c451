package types

import "strings"

// Address is a US shipping address. Orders embed it with a ship_ column
// prefix so the snapshot survives later edits to the customer's profile.
type Address struct {
	Street  string `json:"street" gorm:"column:street"`
	City    string `json:"city" gorm:"column:city"`
	State   string `json:"state" gorm:"column:state"`
	Zip     string `json:"zip" gorm:"column:zip"`
	Country string `json:"country" gorm:"column:country"`
}

// Normalized returns a copy with whitespace trimmed and state/country upcased.
func (a Address) Normalized() Address {
	return Address{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.ToUpper(strings.TrimSpace(a.State)),
		Zip:     strings.TrimSpace(a.Zip),
		Country: strings.ToUpper(strings.TrimSpace(a.Country)),
	}
}
