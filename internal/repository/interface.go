package repository

import (
	"context"

	"contact-sync/backend/pkg/models"
)

// ContactStore persists contacts.
type ContactStore interface {
	// UpsertContact inserts the contact or replaces the mutable fields of the
	// one with the same (CustomerID, ContactID). ID and CreatedAt of an
	// existing row are kept.
	UpsertContact(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	// UpsertContactByExternalID is the webhook variant: it matches on
	// ContactID alone and only falls back to an insert keyed by
	// (CustomerID, ContactID) when no row has that ContactID.
	UpsertContactByExternalID(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	// DeleteContactsByExternalID removes every contact with contactID and
	// returns how many were deleted.
	DeleteContactsByExternalID(ctx context.Context, contactID string) (int64, error)
	// ListContacts returns one page of a tenant's contacts, newest first.
	ListContacts(ctx context.Context, query models.ListQuery) (*models.Page[models.Contact], error)
}

// EmployeeStore persists employees.
type EmployeeStore interface {
	// UpsertEmployee inserts the employee or replaces the mutable fields of the
	// one with the same (CustomerID, EmployeeID).
	UpsertEmployee(ctx context.Context, employee *models.Employee) (*models.Employee, error)
	// ListEmployees returns one page of a tenant's employees, newest first.
	ListEmployees(ctx context.Context, query models.ListQuery) (*models.Page[models.Employee], error)
}

// Repository is the full persistence surface used by the services.
type Repository interface {
	ContactStore
	EmployeeStore
	Ping(ctx context.Context) error
}
