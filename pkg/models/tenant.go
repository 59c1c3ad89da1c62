package models

// Tenant is the customer account a request acts for. It is resolved from the
// request credential and never stored locally.
type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
