// Package integration is a client for the third-party integration platform:
// connections, actions, flows and flow-run inspection.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/pkg/models"
)

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 2048

// Connection is an established link between a tenant and one external app.
type Connection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Integration struct {
		Key string `json:"key"`
	} `json:"integration"`
}

// ActionResult is the response of running an action on a connection.
type ActionResult struct {
	Output map[string]any `json:"output"`
}

// AppEventResponse is the acknowledgment of an app-event notification.
type AppEventResponse struct {
	LaunchedFlowRunIDs []string `json:"launchedFlowRunIds"`
}

// Client is an HTTP client for the integration platform.
type Client struct {
	baseURL     string
	appEventURL string
	signer      *TokenSigner
	httpClient  *http.Client
}

// NewClient creates a Client. appEventURL is the platform webhook that
// receives app events and launches flows.
func NewClient(baseURL, appEventURL string, signer *TokenSigner, timeout time.Duration) *Client {
	return &Client{
		baseURL:     baseURL,
		appEventURL: appEventURL,
		signer:      signer,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// session returns an HTTP client that authenticates as tenant.
func (c *Client) session(tenant models.Tenant) *http.Client {
	return &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: c.signer.TokenSource(tenant),
			Base:   c.httpClient.Transport,
		},
	}
}

// ListConnections returns the tenant's connections.
func (c *Client) ListConnections(ctx context.Context, tenant models.Tenant) ([]Connection, error) {
	var resp struct {
		Items []Connection `json:"items"`
	}
	if err := c.do(ctx, c.session(tenant), http.MethodGet, c.baseURL+"/connections", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// RunAction runs actionKey on the connection and returns its result.
func (c *Client) RunAction(ctx context.Context, tenant models.Tenant, connectionID, actionKey string, input map[string]any) (*ActionResult, error) {
	endpoint := fmt.Sprintf("%s/connections/%s/actions/%s/run", c.baseURL, url.PathEscape(connectionID), url.PathEscape(actionKey))
	if input == nil {
		input = map[string]any{}
	}
	var result ActionResult
	if err := c.do(ctx, c.session(tenant), http.MethodPost, endpoint, input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunFlow starts flowKey on the connection identified by connectionKey.
func (c *Client) RunFlow(ctx context.Context, tenant models.Tenant, connectionKey, flowKey string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/connections/%s/flows/%s/run", c.baseURL, url.PathEscape(connectionKey), url.PathEscape(flowKey))
	var result map[string]any
	if err := c.do(ctx, c.session(tenant), http.MethodPost, endpoint, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SendAppEvent posts event to the app-event webhook. The webhook is not
// authenticated; the customer is identified inside the event.
func (c *Client) SendAppEvent(ctx context.Context, event models.AppEvent) (*AppEventResponse, error) {
	var resp AppEventResponse
	if err := c.do(ctx, c.httpClient, http.MethodPost, c.appEventURL, event, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NodeRuns lists the runs of nodeKey within a flow run. Items keep the
// platform's shape; a nil item means the platform returned null.
func (c *Client) NodeRuns(ctx context.Context, tenant models.Tenant, flowRunID, nodeKey string) ([]map[string]any, error) {
	endpoint := fmt.Sprintf("%s/flow-runs/%s/nodes/%s/runs", c.baseURL, url.PathEscape(flowRunID), url.PathEscape(nodeKey))
	var resp struct {
		Items []map[string]any `json:"items"`
	}
	if err := c.do(ctx, c.session(tenant), http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// FlowRunOutput returns the output captured by nodeKey, or nil when the node
// has not produced any yet.
func (c *Client) FlowRunOutput(ctx context.Context, tenant models.Tenant, flowRunID, nodeKey string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/flow-runs/%s/output?nodeKey=%s", c.baseURL, url.PathEscape(flowRunID), url.QueryEscape(nodeKey))
	var out map[string]any
	if err := c.do(ctx, c.session(tenant), http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, endpoint string, body, out any) error {
	op := method + " " + endpoint

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, op, err, "integration platform unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The body goes into the logged cause only; callers see the status.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
		return apperr.Wrap(apperr.KindUpstream, op, cause, fmt.Sprintf("integration platform returned %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, op, err, "failed to read response body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Wrap(apperr.KindUpstream, op, err, "failed to decode response body")
	}
	return nil
}
