package types

import "strings"

// ShippingAddress is the delivery destination snapshot stored on an order.
type ShippingAddress struct {
	Details    string `json:"details"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code,omitempty"`
}

// IsZero reports whether no address fields were provided.
func (a ShippingAddress) IsZero() bool {
	return strings.TrimSpace(a.Details) == "" &&
		strings.TrimSpace(a.Phone) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.PostalCode) == ""
}
