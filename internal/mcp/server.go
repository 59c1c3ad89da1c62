// Package mcp exposes the contact and employee operations as MCP tools so
// agents can query and sync a tenant's records.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/internal/auth"
	"contact-sync/backend/internal/services"
	"contact-sync/backend/pkg/models"
)

// Server wraps an MCP server whose tools act on the caller's tenant.
type Server struct {
	mcpServer        *server.MCPServer
	records          *services.RecordService
	contactImporter  *services.Importer[models.Contact]
	employeeImporter *services.Importer[models.Employee]
	flows            *services.FlowService
}

// NewServer registers the tools. flows may be nil, in which case the
// flow-backed tools are not offered.
func NewServer(records *services.RecordService, contacts *services.Importer[models.Contact], employees *services.Importer[models.Employee], flows *services.FlowService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Contact Sync",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		records:          records,
		contactImporter:  contacts,
		employeeImporter: employees,
		flows:            flows,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_contacts",
			mcp.WithDescription("List the tenant's stored contacts, newest first"),
			mcp.WithString("query", mcp.Description("Case-insensitive match on name, email or phone")),
			mcp.WithString("cursor", mcp.Description("Cursor returned by the previous page")),
		),
		s.handleListContacts,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_employees",
			mcp.WithDescription("List the tenant's stored employees, newest first"),
			mcp.WithString("query", mcp.Description("Case-insensitive match on name, email or phone")),
			mcp.WithString("cursor", mcp.Description("Cursor returned by the previous page")),
		),
		s.handleListEmployees,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"import_contacts",
			mcp.WithDescription("Pull every contact from the tenant's connected app into the store"),
		),
		s.handleImportContacts,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"import_employees",
			mcp.WithDescription("Pull every employee from the tenant's connected app into the store"),
		),
		s.handleImportEmployees,
	)

	if s.flows == nil {
		return
	}

	s.mcpServer.AddTool(
		mcp.NewTool(
			"create_contact",
			mcp.WithDescription("Start the contact creation flow and return its flow run id"),
			mcp.WithObject("record", mcp.Required(), mcp.Description("The contact fields to send to the connected app")),
		),
		s.handleCreateContact,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_flow_run_output",
			mcp.WithDescription("Wait for a flow run to produce output and return it"),
			mcp.WithString("flow_run_id", mcp.Required(), mcp.Description("The id returned by create_contact")),
		),
		s.handleFlowRunOutput,
	)
}

func (s *Server) handleListContacts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, ok := auth.TenantFrom(ctx)
	if !ok {
		return mcp.NewToolResultError("Unauthorized"), nil
	}
	page, err := s.records.ListContacts(ctx, tenant, request.GetString("query", ""), request.GetString("cursor", ""))
	if err != nil {
		return toolError(err, "Failed to fetch contacts"), nil
	}
	return jsonResult(map[string]any{"contacts": page.Items, "cursor": page.NextCursor})
}

func (s *Server) handleListEmployees(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, ok := auth.TenantFrom(ctx)
	if !ok {
		return mcp.NewToolResultError("Unauthorized"), nil
	}
	page, err := s.records.ListEmployees(ctx, tenant, request.GetString("query", ""), request.GetString("cursor", ""))
	if err != nil {
		return toolError(err, "Failed to fetch employees"), nil
	}
	return jsonResult(map[string]any{"employees": page.Items, "cursor": page.NextCursor})
}

func (s *Server) handleImportContacts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, ok := auth.TenantFrom(ctx)
	if !ok {
		return mcp.NewToolResultError("Unauthorized"), nil
	}
	contacts, err := s.contactImporter.Run(ctx, tenant)
	if err != nil {
		return toolError(err, "Failed to import contacts"), nil
	}
	return jsonResult(map[string]any{"imported": len(contacts)})
}

func (s *Server) handleImportEmployees(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, ok := auth.TenantFrom(ctx)
	if !ok {
		return mcp.NewToolResultError("Unauthorized"), nil
	}
	employees, err := s.employeeImporter.Run(ctx, tenant)
	if err != nil {
		return toolError(err, "Failed to import employees"), nil
	}
	return jsonResult(map[string]any{"imported": len(employees)})
}

func (s *Server) handleCreateContact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, ok := auth.TenantFrom(ctx)
	if !ok {
		return mcp.NewToolResultError("Unauthorized"), nil
	}
	record, ok := request.GetArguments()["record"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: record"), nil
	}
	runID, err := s.flows.CreateContact(ctx, tenant, record)
	if err != nil {
		return toolError(err, "Failed to create contact"), nil
	}
	return jsonResult(map[string]any{"flowRunId": runID})
}

func (s *Server) handleFlowRunOutput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, ok := auth.TenantFrom(ctx)
	if !ok {
		return mcp.NewToolResultError("Unauthorized"), nil
	}
	runID, err := request.RequireString("flow_run_id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: flow_run_id"), nil
	}
	out, err := s.flows.AwaitOutput(ctx, tenant, runID)
	if err != nil {
		return toolError(err, "Failed to fetch flow run output"), nil
	}
	return jsonResult(map[string]any{"output": out})
}

// toolError reports err to the caller without leaking store internals.
func toolError(err error, fallback string) *mcp.CallToolResult {
	switch apperr.KindOf(err) {
	case apperr.KindStore, apperr.KindInternal:
		return mcp.NewToolResultError(fallback)
	}
	if errors.Is(err, context.Canceled) {
		return mcp.NewToolResultError("Request cancelled")
	}
	return mcp.NewToolResultError(apperr.MessageOf(err, fallback))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// tenantContext carries the tenant resolved by the auth middleware into the
// context the tools run with.
func tenantContext(ctx context.Context, r *http.Request) context.Context {
	if tenant, ok := auth.TenantFrom(r.Context()); ok {
		return auth.WithTenant(ctx, tenant)
	}
	return ctx
}

// MountHTTPHandlers serves the MCP transports on mux: streamable HTTP at /mcp
// and SSE at /mcp/sse with messages posted to /mcp/message. Every endpoint
// runs behind requireAuth.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer, requireAuth func(http.Handler) http.Handler) {
	streamable := server.NewStreamableHTTPServer(mcpServer, server.WithHTTPContextFunc(tenantContext))
	sseServer := server.NewSSEServer(mcpServer,
		server.WithStaticBasePath("/mcp"),
		server.WithSSEContextFunc(tenantContext),
	)

	mux.Handle("/mcp", requireAuth(streamable))
	mux.Handle("/mcp/sse", requireAuth(sseServer))
	mux.Handle("/mcp/message", requireAuth(sseServer))
}
