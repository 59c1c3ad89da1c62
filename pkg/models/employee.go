package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDependents is stored when an employee row is written without a
// dependents value.
const DefaultDependents = "0"

// Employee is a tenant-scoped HRIS record. (CustomerID, EmployeeID) is unique.
type Employee struct {
	ID         uuid.UUID `json:"_id"`
	CustomerID string    `json:"customerId"`
	EmployeeID string    `json:"employeeId"`
	Name       string    `json:"name"`
	Title      string    `json:"title,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Dependents string    `json:"dependents"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
