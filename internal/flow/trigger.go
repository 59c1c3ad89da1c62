package flow

import (
	"context"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/internal/integration"
	"contact-sync/backend/pkg/models"
)

// Events launched by record creation.
const (
	EventContactCreated  = "contact.created"
	EventEmployeeCreated = "employee.created"
)

// EventSender delivers app events to the integration platform.
type EventSender interface {
	SendAppEvent(ctx context.Context, event models.AppEvent) (*integration.AppEventResponse, error)
}

// Trigger launches flows by sending app events.
type Trigger struct {
	sender EventSender
}

// NewTrigger creates a Trigger.
func NewTrigger(sender EventSender) *Trigger {
	return &Trigger{sender: sender}
}

// Fire sends a "created" event for record on behalf of customerID and returns
// the id of the first flow run it launched.
func (t *Trigger) Fire(ctx context.Context, customerID, event string, record map[string]any) (string, error) {
	const op = "flow.Fire"

	if record == nil {
		record = map[string]any{}
	}
	resp, err := t.sender.SendAppEvent(ctx, models.AppEvent{
		CustomerID: customerID,
		Type:       "created",
		Event:      event,
		Record:     record,
	})
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.LaunchedFlowRunIDs) == 0 || resp.LaunchedFlowRunIDs[0] == "" {
		return "", apperr.New(apperr.KindUpstream, op, "no run id returned")
	}
	return resp.LaunchedFlowRunIDs[0], nil
}
