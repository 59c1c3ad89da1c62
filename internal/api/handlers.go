// Package api contains the HTTP handlers for the contact sync service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/internal/auth"
	"contact-sync/backend/internal/logging"
	"contact-sync/backend/internal/services"
	"contact-sync/backend/pkg/models"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the handlers delegate to.
type Deps struct {
	Records          *services.RecordService
	ContactImporter  *services.Importer[models.Contact]
	EmployeeImporter *services.Importer[models.Employee]
	Flows            *services.FlowService
	Webhooks         *services.WebhookService
	Store            Pinger
	Logger           *logging.Logger
}

// Handler contains HTTP handlers for the contact sync REST API
type Handler struct {
	records          *services.RecordService
	contactImporter  *services.Importer[models.Contact]
	employeeImporter *services.Importer[models.Employee]
	flows            *services.FlowService
	webhooks         *services.WebhookService
	store            Pinger
	logger           *logging.Logger
}

// NewHandler creates a new Handler with required dependencies
func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		records:          deps.Records,
		contactImporter:  deps.ContactImporter,
		employeeImporter: deps.EmployeeImporter,
		flows:            deps.Flows,
		webhooks:         deps.Webhooks,
		store:            deps.Store,
		logger:           logger.Named("api"),
	}
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth reports liveness and store reachability
// (GET /healthz)
func (h *Handler) HandleHealth(c echo.Context) error {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Service:   "contact-sync",
		Version:   "1.0.0",
	}
	code := http.StatusOK
	if h.store != nil {
		if err := h.store.Ping(c.Request().Context()); err != nil {
			h.logger.Warn("Health check failed", "error", err)
			status.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, status)
}

// tenantOf returns the tenant resolved by the auth middleware.
func tenantOf(c echo.Context) (models.Tenant, error) {
	tenant, ok := auth.TenantFrom(c.Request().Context())
	if !ok {
		return models.Tenant{}, apperr.New(apperr.KindAuth, "api", "Unauthorized")
	}
	return tenant, nil
}
