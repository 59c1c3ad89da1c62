package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/internal/integration"
	"contact-sync/backend/pkg/models"
)

type mockInspector struct {
	mock.Mock
}

func (m *mockInspector) NodeRuns(ctx context.Context, tenant models.Tenant, flowRunID, nodeKey string) ([]map[string]any, error) {
	args := m.Called(ctx, tenant, flowRunID, nodeKey)
	items, _ := args.Get(0).([]map[string]any)
	return items, args.Error(1)
}

func (m *mockInspector) FlowRunOutput(ctx context.Context, tenant models.Tenant, flowRunID, nodeKey string) (map[string]any, error) {
	args := m.Called(ctx, tenant, flowRunID, nodeKey)
	out, _ := args.Get(0).(map[string]any)
	return out, args.Error(1)
}

var tenant = models.Tenant{ID: "cust-1", Name: "Acme"}

func TestStatusProbe(t *testing.T) {
	tests := []struct {
		name  string
		items []map[string]any
		want  Observation
	}{
		{name: "no items", items: nil, want: Observation{}},
		{name: "nil item", items: []map[string]any{nil}, want: Observation{Invalid: true}},
		{
			name:  "running",
			items: []map[string]any{{"status": "running"}},
			want:  Observation{Status: "running", Payload: map[string]any{"status": "running"}},
		},
		{
			name:  "first item wins",
			items: []map[string]any{{"status": "completed"}, {"status": "failed"}},
			want:  Observation{Status: "completed", Payload: map[string]any{"status": "completed"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insp := new(mockInspector)
			insp.On("NodeRuns", mock.Anything, tenant, "run-1", "create-data-record").Return(tt.items, nil)
			probe := StatusProbe{Inspector: insp, Tenant: tenant, NodeKey: "create-data-record"}

			got, err := probe.Observe(context.Background(), "run-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			insp.AssertExpectations(t)
		})
	}
}

func TestOutputProbe(t *testing.T) {
	tests := []struct {
		name string
		out  map[string]any
		want Observation
	}{
		{name: "no output", out: nil, want: Observation{}},
		{name: "empty output", out: map[string]any{}, want: Observation{}},
		{
			name: "string error",
			out:  map[string]any{"error": "duplicate"},
			want: Observation{Status: "failed", Payload: map[string]any{"error": "duplicate"}, Err: "duplicate"},
		},
		{
			name: "object error",
			out:  map[string]any{"error": map[string]any{"message": "bad input"}},
			want: Observation{Status: "failed", Payload: map[string]any{"error": map[string]any{"message": "bad input"}}, Err: "bad input"},
		},
		{
			name: "false error is no error",
			out:  map[string]any{"id": "c-1", "error": false},
			want: Observation{Status: "completed", Payload: map[string]any{"id": "c-1", "error": false}},
		},
		{
			name: "zero error is no error",
			out:  map[string]any{"id": "c-1", "error": float64(0)},
			want: Observation{Status: "completed", Payload: map[string]any{"id": "c-1", "error": float64(0)}},
		},
		{
			name: "empty string error is no error",
			out:  map[string]any{"id": "c-1", "error": ""},
			want: Observation{Status: "completed", Payload: map[string]any{"id": "c-1", "error": ""}},
		},
		{
			name: "true error",
			out:  map[string]any{"error": true},
			want: Observation{Status: "failed", Payload: map[string]any{"error": true}, Err: "true"},
		},
		{
			name: "completed",
			out:  map[string]any{"id": "c-1"},
			want: Observation{Status: "completed", Payload: map[string]any{"id": "c-1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insp := new(mockInspector)
			insp.On("FlowRunOutput", mock.Anything, tenant, "run-1", "create-data-record").Return(tt.out, nil)
			probe := OutputProbe{Inspector: insp, Tenant: tenant, NodeKey: "create-data-record"}

			got, err := probe.Observe(context.Background(), "run-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbePropagatesTransportErrors(t *testing.T) {
	boom := errors.New("boom")
	insp := new(mockInspector)
	insp.On("NodeRuns", mock.Anything, tenant, "run-1", "n").Return(nil, boom)

	_, err := StatusProbe{Inspector: insp, Tenant: tenant, NodeKey: "n"}.Observe(context.Background(), "run-1")
	assert.ErrorIs(t, err, boom)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendAppEvent(ctx context.Context, event models.AppEvent) (*integration.AppEventResponse, error) {
	args := m.Called(ctx, event)
	resp, _ := args.Get(0).(*integration.AppEventResponse)
	return resp, args.Error(1)
}

func TestTriggerFire(t *testing.T) {
	sender := new(mockSender)
	sender.On("SendAppEvent", mock.Anything, models.AppEvent{
		CustomerID: "cust-1",
		Type:       "created",
		Event:      EventContactCreated,
		Record:     map[string]any{"name": "Ada"},
	}).Return(&integration.AppEventResponse{LaunchedFlowRunIDs: []string{"run-1", "run-2"}}, nil)

	runID, err := NewTrigger(sender).Fire(context.Background(), "cust-1", EventContactCreated, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	sender.AssertExpectations(t)
}

func TestTriggerFireWithoutRunID(t *testing.T) {
	sender := new(mockSender)
	sender.On("SendAppEvent", mock.Anything, mock.Anything).Return(&integration.AppEventResponse{}, nil)

	_, err := NewTrigger(sender).Fire(context.Background(), "cust-1", EventEmployeeCreated, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Equal(t, "no run id returned", apperr.MessageOf(err, ""))
}
