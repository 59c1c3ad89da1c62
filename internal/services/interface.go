package services

import (
	"context"

	"contact-sync/backend/internal/integration"
	"contact-sync/backend/pkg/models"
)

// Platform is the part of the integration platform the services call.
type Platform interface {
	// ListConnections returns the tenant's connected apps.
	ListConnections(ctx context.Context, tenant models.Tenant) ([]integration.Connection, error)
	// RunAction runs a data action on one connection.
	RunAction(ctx context.Context, tenant models.Tenant, connectionID, actionKey string, input map[string]any) (*integration.ActionResult, error)
	// RunFlow starts a named flow on one connection.
	RunFlow(ctx context.Context, tenant models.Tenant, connectionKey, flowKey string) (map[string]any, error)
}
