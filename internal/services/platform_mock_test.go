package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"contact-sync/backend/internal/integration"
	"contact-sync/backend/pkg/models"
)

type mockPlatform struct {
	mock.Mock
}

func (m *mockPlatform) ListConnections(ctx context.Context, tenant models.Tenant) ([]integration.Connection, error) {
	args := m.Called(ctx, tenant)
	conns, _ := args.Get(0).([]integration.Connection)
	return conns, args.Error(1)
}

func (m *mockPlatform) RunAction(ctx context.Context, tenant models.Tenant, connectionID, actionKey string, input map[string]any) (*integration.ActionResult, error) {
	args := m.Called(ctx, tenant, connectionID, actionKey, input)
	res, _ := args.Get(0).(*integration.ActionResult)
	return res, args.Error(1)
}

func (m *mockPlatform) RunFlow(ctx context.Context, tenant models.Tenant, connectionKey, flowKey string) (map[string]any, error) {
	args := m.Called(ctx, tenant, connectionKey, flowKey)
	out, _ := args.Get(0).(map[string]any)
	return out, args.Error(1)
}

func (m *mockPlatform) SendAppEvent(ctx context.Context, event models.AppEvent) (*integration.AppEventResponse, error) {
	args := m.Called(ctx, event)
	resp, _ := args.Get(0).(*integration.AppEventResponse)
	return resp, args.Error(1)
}

func (m *mockPlatform) NodeRuns(ctx context.Context, tenant models.Tenant, flowRunID, nodeKey string) ([]map[string]any, error) {
	args := m.Called(ctx, tenant, flowRunID, nodeKey)
	items, _ := args.Get(0).([]map[string]any)
	return items, args.Error(1)
}

func (m *mockPlatform) FlowRunOutput(ctx context.Context, tenant models.Tenant, flowRunID, nodeKey string) (map[string]any, error) {
	args := m.Called(ctx, tenant, flowRunID, nodeKey)
	out, _ := args.Get(0).(map[string]any)
	return out, args.Error(1)
}

var (
	acme       = models.Tenant{ID: "cust-1", Name: "Acme"}
	connection = integration.Connection{ID: "conn-1", Name: "HubSpot"}
)

func page(cursor string, records ...map[string]any) *integration.ActionResult {
	out := map[string]any{"records": toAny(records)}
	if cursor != "" {
		out["cursor"] = cursor
	}
	return &integration.ActionResult{Output: out}
}

func toAny(records []map[string]any) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}
