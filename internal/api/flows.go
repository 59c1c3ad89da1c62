package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"contact-sync/backend/pkg/models"
)

// CreateContactResponse acknowledges a launched contact creation flow.
type CreateContactResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	FlowRunID string `json:"flowRunId"`
}

// FlowOutputResponse carries the output of a finished flow run.
type FlowOutputResponse struct {
	Success bool           `json:"success"`
	Output  map[string]any `json:"output"`
}

// CreateEmployeeResponse reports the settled employee creation flow.
type CreateEmployeeResponse struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	FlowStatus *models.FlowStatus `json:"flowStatus"`
}

// DependentsFlowRequest selects the connection to run the dependents flow on.
type DependentsFlowRequest struct {
	IntegrationKey string `json:"integrationKey" validate:"required"`
}

// CreateContact launches the contact creation flow and returns at once
// (POST /contacts/create)
func (h *Handler) CreateContact(c echo.Context) error {
	tenant, err := tenantOf(c)
	if err != nil {
		return err
	}
	record, err := bindRecord(c)
	if err != nil {
		return err
	}
	runID, err := h.flows.CreateContact(c.Request().Context(), tenant, record)
	if err != nil {
		return fail(err, "Failed to create contact")
	}
	return c.JSON(http.StatusOK, CreateContactResponse{
		Success:   true,
		Message:   "Contact creation initiated",
		FlowRunID: runID,
	})
}

// FlowRunOutput waits for the output of a contact creation run
// (GET /flow-runs/:id/output)
func (h *Handler) FlowRunOutput(c echo.Context) error {
	tenant, err := tenantOf(c)
	if err != nil {
		return err
	}
	out, err := h.flows.AwaitOutput(c.Request().Context(), tenant, c.Param("id"))
	if err != nil {
		return fail(err, "Failed to fetch flow output")
	}
	return c.JSON(http.StatusOK, FlowOutputResponse{Success: true, Output: out})
}

// CreateEmployee launches the employee creation flow and waits for it
// (POST /employees/create)
func (h *Handler) CreateEmployee(c echo.Context) error {
	tenant, err := tenantOf(c)
	if err != nil {
		return err
	}
	record, err := bindRecord(c)
	if err != nil {
		return err
	}
	status, err := h.flows.CreateEmployee(c.Request().Context(), tenant, record)
	if err != nil {
		return fail(err, "Failed to create employee")
	}
	return c.JSON(http.StatusOK, CreateEmployeeResponse{
		Success:    true,
		Message:    "Employee created successfully",
		FlowStatus: status,
	})
}

// RunDependentsFlow starts the dependents flow on a named connection
// (POST /run-dependents-flow)
func (h *Handler) RunDependentsFlow(c echo.Context) error {
	tenant, err := tenantOf(c)
	if err != nil {
		return err
	}
	var req DependentsFlowRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.flows.RunDependentsFlow(c.Request().Context(), tenant, req.IntegrationKey); err != nil {
		return fail(err, "Failed to run dependents flow")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// bindRecord decodes a JSON object body. An empty body yields an empty record.
func bindRecord(c echo.Context) (map[string]any, error) {
	record := map[string]any{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &record); err != nil {
		return nil, err
	}
	return record, nil
}
