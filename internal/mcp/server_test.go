package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contact-sync/backend/internal/auth"
	"contact-sync/backend/internal/flow"
	"contact-sync/backend/internal/integration"
	"contact-sync/backend/internal/logging"
	"contact-sync/backend/internal/repository/repositorytest"
	"contact-sync/backend/internal/services"
	"contact-sync/backend/pkg/models"
)

type fakePlatform struct {
	connections []integration.Connection
	records     []any
	output      map[string]any
}

func (f *fakePlatform) ListConnections(context.Context, models.Tenant) ([]integration.Connection, error) {
	return f.connections, nil
}

func (f *fakePlatform) RunAction(context.Context, models.Tenant, string, string, map[string]any) (*integration.ActionResult, error) {
	return &integration.ActionResult{Output: map[string]any{"records": f.records}}, nil
}

func (f *fakePlatform) RunFlow(context.Context, models.Tenant, string, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (f *fakePlatform) SendAppEvent(context.Context, models.AppEvent) (*integration.AppEventResponse, error) {
	return &integration.AppEventResponse{LaunchedFlowRunIDs: []string{"run-7"}}, nil
}

func (f *fakePlatform) NodeRuns(context.Context, models.Tenant, string, string) ([]map[string]any, error) {
	return nil, nil
}

func (f *fakePlatform) FlowRunOutput(context.Context, models.Tenant, string, string) (map[string]any, error) {
	return f.output, nil
}

func newTestServer(t *testing.T) (*Server, *fakePlatform, *repositorytest.Store) {
	t.Helper()
	platform := &fakePlatform{
		connections: []integration.Connection{{ID: "conn-1"}},
		records: []any{
			map[string]any{"id": "c-1", "name": "Alice", "primaryEmail": "alice@example.com"},
			map[string]any{"id": "c-2", "name": "Bob"},
		},
		output: map[string]any{"id": "new-1"},
	}
	store := repositorytest.New()
	logger := logging.NewNop()
	poller := flow.NewPoller(flow.Policy{Interval: time.Millisecond, MaxAttempts: 2}, logger, nil)
	flows := services.NewFlowService(platform, flow.NewTrigger(platform), platform, poller, poller,
		services.FlowOptions{NodeKey: "create-data-record"}, logger)

	s := NewServer(
		services.NewRecordService(store),
		services.NewImporter(platform, services.ContactSource(store), services.ImportOptions{}, logger, nil),
		services.NewImporter(platform, services.EmployeeSource(store), services.ImportOptions{}, logger, nil),
		flows,
	)
	return s, platform, store
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

var tenantCtx = auth.WithTenant(context.Background(), models.Tenant{ID: "cust-1", Name: "Acme"})

func TestImportThenListContacts(t *testing.T) {
	s, _, _ := newTestServer(t)

	res, err := s.handleImportContacts(tenantCtx, call(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"imported":2}`, resultText(t, res))

	res, err = s.handleListContacts(tenantCtx, call(map[string]any{"query": "alice"}))
	require.NoError(t, err)
	var page struct {
		Contacts []models.Contact `json:"contacts"`
		Cursor   *string          `json:"cursor"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &page))
	require.Len(t, page.Contacts, 1)
	assert.Equal(t, "alice@example.com", page.Contacts[0].Email)
	assert.Nil(t, page.Cursor)
}

func TestToolsRequireTenant(t *testing.T) {
	s, _, _ := newTestServer(t)

	res, err := s.handleListEmployees(context.Background(), call(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Unauthorized", resultText(t, res))
}

func TestImportWithoutConnection(t *testing.T) {
	s, platform, _ := newTestServer(t)
	platform.connections = nil

	res, err := s.handleImportEmployees(tenantCtx, call(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "No apps connected to import employees from", resultText(t, res))
}

func TestStoreErrorsAreHidden(t *testing.T) {
	s, _, store := newTestServer(t)
	store.Err = assert.AnError

	res, err := s.handleListContacts(tenantCtx, call(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Failed to fetch contacts", resultText(t, res))
}

func TestCreateContactAndOutput(t *testing.T) {
	s, platform, _ := newTestServer(t)

	res, err := s.handleCreateContact(tenantCtx, call(map[string]any{"record": map[string]any{"name": "Ada"}}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"flowRunId":"run-7"}`, resultText(t, res))

	res, err = s.handleCreateContact(tenantCtx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleFlowRunOutput(tenantCtx, call(map[string]any{"flow_run_id": "run-7"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"output":{"id":"new-1"}}`, resultText(t, res))

	platform.output = nil
	res, err = s.handleFlowRunOutput(tenantCtx, call(map[string]any{"flow_run_id": "run-7"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Flow execution timed out", resultText(t, res))
}

func TestToolRegistration(t *testing.T) {
	s, _, _ := newTestServer(t)
	tools := s.GetMCPServer().ListTools()
	for _, name := range []string{"list_contacts", "list_employees", "import_contacts", "import_employees", "create_contact", "get_flow_run_output"} {
		assert.Contains(t, tools, name)
	}

	withoutFlows := NewServer(nil, nil, nil, nil)
	assert.NotContains(t, withoutFlows.GetMCPServer().ListTools(), "create_contact")
}
