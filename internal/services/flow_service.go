package services

import (
	"context"
	"strings"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/internal/flow"
	"contact-sync/backend/internal/logging"
	"contact-sync/backend/pkg/models"
)

// FlowOptions configures a FlowService.
type FlowOptions struct {
	// NodeKey is the flow node whose status and output are polled.
	NodeKey string
	// DependentsFlowKey is the flow run by RunDependentsFlow.
	DependentsFlowKey string
}

// FlowService creates records through remote flows and waits on their runs.
type FlowService struct {
	platform     Platform
	trigger      *flow.Trigger
	inspector    flow.RunInspector
	outputPoller *flow.Poller
	statusPoller *flow.Poller
	opts         FlowOptions
	logger       *logging.Logger
}

// NewFlowService creates a FlowService.
func NewFlowService(platform Platform, trigger *flow.Trigger, inspector flow.RunInspector, outputPoller, statusPoller *flow.Poller, opts FlowOptions, logger *logging.Logger) *FlowService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FlowService{
		platform:     platform,
		trigger:      trigger,
		inspector:    inspector,
		outputPoller: outputPoller,
		statusPoller: statusPoller,
		opts:         opts,
		logger:       logger.Named("flow"),
	}
}

// CreateContact launches the contact creation flow and returns its run id
// without waiting for it.
func (s *FlowService) CreateContact(ctx context.Context, tenant models.Tenant, record map[string]any) (string, error) {
	runID, err := s.trigger.Fire(ctx, tenant.ID, flow.EventContactCreated, record)
	if err != nil {
		return "", err
	}
	s.logger.Info("Contact creation flow launched", "customer_id", tenant.ID, "run_id", runID)
	return runID, nil
}

// AwaitOutput polls the output of a run started by CreateContact.
func (s *FlowService) AwaitOutput(ctx context.Context, tenant models.Tenant, runID string) (map[string]any, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, apperr.New(apperr.KindValidation, "services.AwaitOutput", "Flow run id is required")
	}
	probe := flow.OutputProbe{Inspector: s.inspector, Tenant: tenant, NodeKey: s.opts.NodeKey}
	res, err := s.outputPoller.Await(ctx, runID, probe)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// CreateEmployee launches the employee creation flow and blocks until its
// node run settles. The wait outlives the caller's cancellation.
func (s *FlowService) CreateEmployee(ctx context.Context, tenant models.Tenant, record map[string]any) (*models.FlowStatus, error) {
	runID, err := s.trigger.Fire(ctx, tenant.ID, flow.EventEmployeeCreated, record)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Employee creation flow launched", "customer_id", tenant.ID, "run_id", runID)

	probe := flow.StatusProbe{Inspector: s.inspector, Tenant: tenant, NodeKey: s.opts.NodeKey}
	res, err := s.statusPoller.Await(context.WithoutCancel(ctx), runID, probe)
	if err != nil {
		return nil, err
	}
	return &models.FlowStatus{Status: res.Status, Data: res.Data}, nil
}

// RunDependentsFlow starts the dependents flow on the connection identified
// by integrationKey.
func (s *FlowService) RunDependentsFlow(ctx context.Context, tenant models.Tenant, integrationKey string) error {
	integrationKey = strings.TrimSpace(integrationKey)
	if integrationKey == "" {
		return apperr.New(apperr.KindValidation, "services.RunDependentsFlow", "Integration key is required")
	}
	if _, err := s.platform.RunFlow(ctx, tenant, integrationKey, s.opts.DependentsFlowKey); err != nil {
		return err
	}
	s.logger.Info("Dependents flow started", "customer_id", tenant.ID, "integration_key", integrationKey)
	return nil
}
