package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"contact-sync/backend/pkg/models"
)

// ContactList is one page of contacts.
type ContactList struct {
	Contacts   []models.Contact `json:"contacts"`
	Cursor     *uuid.UUID       `json:"cursor"`
	CustomerID string           `json:"customerId"`
}

// EmployeeList is one page of employees.
type EmployeeList struct {
	Employees  []models.Employee `json:"employees"`
	Cursor     *uuid.UUID        `json:"cursor"`
	CustomerID string            `json:"customerId"`
}

// ListContacts returns a page of the tenant's contacts
// (GET /contacts?cursor&q)
func (h *Handler) ListContacts(c echo.Context) error {
	tenant, err := tenantOf(c)
	if err != nil {
		return err
	}
	page, err := h.records.ListContacts(c.Request().Context(), tenant, c.QueryParam("q"), c.QueryParam("cursor"))
	if err != nil {
		return fail(err, "Failed to fetch contacts")
	}
	return c.JSON(http.StatusOK, ContactList{Contacts: page.Items, Cursor: page.NextCursor, CustomerID: tenant.ID})
}

// ImportContacts pulls every contact from the tenant's first connection
// (POST /contacts)
func (h *Handler) ImportContacts(c echo.Context) error {
	tenant, err := tenantOf(c)
	if err != nil {
		return err
	}
	contacts, err := h.contactImporter.Run(c.Request().Context(), tenant)
	if err != nil {
		return fail(err, "Failed to import contacts")
	}
	return c.JSON(http.StatusOK, map[string]any{"contacts": contacts})
}

// ListEmployees returns a page of the tenant's employees
// (GET /employees?cursor&q)
func (h *Handler) ListEmployees(c echo.Context) error {
	tenant, err := tenantOf(c)
	if err != nil {
		return err
	}
	page, err := h.records.ListEmployees(c.Request().Context(), tenant, c.QueryParam("q"), c.QueryParam("cursor"))
	if err != nil {
		return fail(err, "Failed to fetch employees")
	}
	return c.JSON(http.StatusOK, EmployeeList{Employees: page.Items, Cursor: page.NextCursor, CustomerID: tenant.ID})
}

// ImportEmployees pulls every employee from the tenant's first connection
// (POST /employees)
func (h *Handler) ImportEmployees(c echo.Context) error {
	tenant, err := tenantOf(c)
	if err != nil {
		return err
	}
	employees, err := h.employeeImporter.Run(c.Request().Context(), tenant)
	if err != nil {
		return fail(err, "Failed to import employees")
	}
	return c.JSON(http.StatusOK, map[string]any{"employees": employees})
}
