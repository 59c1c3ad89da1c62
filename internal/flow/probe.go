package flow

import (
	"context"
	"fmt"

	"contact-sync/backend/pkg/models"
)

// RunInspector reads flow-run state from the integration platform.
type RunInspector interface {
	NodeRuns(ctx context.Context, tenant models.Tenant, flowRunID, nodeKey string) ([]map[string]any, error)
	FlowRunOutput(ctx context.Context, tenant models.Tenant, flowRunID, nodeKey string) (map[string]any, error)
}

// StatusProbe reads the status of the first run of a node.
type StatusProbe struct {
	Inspector RunInspector
	Tenant    models.Tenant
	NodeKey   string
}

// Observe implements Probe.
func (p StatusProbe) Observe(ctx context.Context, runID string) (Observation, error) {
	items, err := p.Inspector.NodeRuns(ctx, p.Tenant, runID, p.NodeKey)
	if err != nil {
		return Observation{}, err
	}
	if len(items) == 0 {
		return Observation{}, nil
	}
	item := items[0]
	if item == nil {
		return Observation{Invalid: true}, nil
	}
	status, _ := item["status"].(string)
	return Observation{Status: status, Payload: item}, nil
}

// OutputProbe reads the output captured by a node. Any output without an
// error means the run completed.
type OutputProbe struct {
	Inspector RunInspector
	Tenant    models.Tenant
	NodeKey   string
}

// Observe implements Probe.
func (p OutputProbe) Observe(ctx context.Context, runID string) (Observation, error) {
	out, err := p.Inspector.FlowRunOutput(ctx, p.Tenant, runID, p.NodeKey)
	if err != nil {
		return Observation{}, err
	}
	if len(out) == 0 {
		return Observation{}, nil
	}
	if msg := errorText(out["error"]); msg != "" {
		return Observation{Status: models.FlowStatusFailed, Payload: out, Err: msg}, nil
	}
	return Observation{Status: models.FlowStatusCompleted, Payload: out}, nil
}

// errorText renders an embedded error. Falsy JSON values (false, 0, "")
// mean there is no error.
func errorText(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case bool:
		if !e {
			return ""
		}
	case float64:
		if e == 0 {
			return ""
		}
	case int:
		if e == 0 {
			return ""
		}
	case string:
		return e
	case map[string]any:
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return fmt.Sprint(v)
}
