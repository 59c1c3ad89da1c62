package models

// Contact webhook events.
const (
	ContactCreated = "contact.created"
	ContactUpdated = "contact.updated"
	ContactDeleted = "contact.deleted"
)

// ContactEvent is an inbound contact mutation after the transport envelope
// has been removed. Record keeps the source's shape.
type ContactEvent struct {
	Event      string
	CustomerID string
	Record     map[string]any
}
