package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a tenant-scoped person record imported from an external app.
// (CustomerID, ContactID) is unique.
type Contact struct {
	ID         uuid.UUID `json:"_id"`
	CustomerID string    `json:"customerId"`
	ContactID  string    `json:"contactId"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
