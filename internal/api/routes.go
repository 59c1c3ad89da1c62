package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RegisterHandlers mounts the REST API on e. Tenant-scoped routes run behind
// requireAuth; the health check and the inbound webhook do not.
func RegisterHandlers(e *echo.Echo, h *Handler, requireAuth echo.MiddlewareFunc) {
	e.GET("/healthz", h.HandleHealth)
	e.POST("/webhooks/contacts", h.ContactWebhook)

	e.GET("/contacts", h.ListContacts, requireAuth)
	e.POST("/contacts", h.ImportContacts, requireAuth)
	e.POST("/contacts/create", h.CreateContact, requireAuth)
	e.GET("/flow-runs/:id/output", h.FlowRunOutput, requireAuth)

	e.GET("/employees", h.ListEmployees, requireAuth)
	e.POST("/employees", h.ImportEmployees, requireAuth)
	e.POST("/employees/create", h.CreateEmployee, requireAuth)

	e.POST("/run-dependents-flow", h.RunDependentsFlow, requireAuth)
}

// RegisterDocs mounts the OpenAPI document and the Swagger UI.
func RegisterDocs(e *echo.Echo, issuer, clientID string) {
	e.GET("/openapi.yaml", echo.WrapHandler(SpecHandler(issuer)))
	e.GET("/docs", echo.WrapHandler(SwaggerHandler(clientID)))
	e.GET("/docs/oauth2-redirect.html", echo.WrapHandler(http.HandlerFunc(OAuthRedirectHandler)))
}
