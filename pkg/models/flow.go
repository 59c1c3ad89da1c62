package models

// Flow run statuses reported by the integration platform.
const (
	FlowStatusPending   = "pending"
	FlowStatusRunning   = "running"
	FlowStatusCompleted = "completed"
	FlowStatusFailed    = "failed"
)

// AppEvent is the notification sent to the platform's app-event webhook to
// launch a flow.
type AppEvent struct {
	CustomerID string         `json:"customerId"`
	Type       string         `json:"type"`
	Event      string         `json:"event"`
	Record     map[string]any `json:"record"`
}

// FlowStatus is the terminal outcome of a polled flow run.
type FlowStatus struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
}
