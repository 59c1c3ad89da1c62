// Package flow starts remote flow runs on the integration platform and waits
// for them to settle.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/internal/logging"
	"contact-sync/backend/internal/metrics"
	"contact-sync/backend/pkg/models"
)

const tracerName = "contact-sync/flow"

// Policy bounds a poll: at most MaxAttempts probes, Interval apart.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

// OutputPolicy is used when waiting for the output of a fire-and-forget run.
var OutputPolicy = Policy{Interval: 5 * time.Second, MaxAttempts: 12}

// StatusPolicy is used when a request blocks on a node's status.
var StatusPolicy = Policy{Interval: 5 * time.Second, MaxAttempts: 5}

// Observation is what a single probe saw.
type Observation struct {
	// Status is empty while the platform has nothing to report yet.
	Status string
	// Payload is the raw item or output the status was read from.
	Payload map[string]any
	// Err carries an error message embedded in the payload.
	Err string
	// Invalid marks a response that cannot be interpreted.
	Invalid bool
}

// Probe observes a flow run once.
type Probe interface {
	Observe(ctx context.Context, runID string) (Observation, error)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context, runID string) (Observation, error)

// Observe implements Probe.
func (f ProbeFunc) Observe(ctx context.Context, runID string) (Observation, error) {
	return f(ctx, runID)
}

// Result is a settled flow run.
type Result struct {
	RunID    string         `json:"runId"`
	Status   string         `json:"status"`
	Attempts int            `json:"attempts"`
	Data     map[string]any `json:"data"`
}

// errPending signals the run has not settled yet; it never leaves Await.
var errPending = errors.New("flow run not settled")

// Poller repeatedly probes a run until it completes, fails or the policy
// budget runs out.
type Poller struct {
	policy  Policy
	logger  *logging.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// NewPoller creates a Poller. m may be nil.
func NewPoller(policy Policy, logger *logging.Logger, m *metrics.Metrics) *Poller {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Poller{
		policy:  policy,
		logger:  logger.Named("flow"),
		metrics: m,
		tracer:  otel.Tracer(tracerName),
	}
}

// Policy returns the poller's policy.
func (p *Poller) Policy() Policy {
	return p.policy
}

// Await probes runID until it settles.
func (p *Poller) Await(ctx context.Context, runID string, probe Probe) (*Result, error) {
	const op = "flow.Await"

	ctx, span := p.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("flow.run_id", runID),
		attribute.Int("flow.max_attempts", p.policy.MaxAttempts),
	))
	defer span.End()

	attempts := 0
	operation := func() (*Result, error) {
		attempts++
		obs, err := probe.Observe(ctx, runID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		switch {
		case obs.Invalid:
			return nil, backoff.Permanent(apperr.New(apperr.KindUpstream, op, "Invalid flow run response"))
		case obs.Err != "":
			return nil, backoff.Permanent(apperr.New(apperr.KindFlowFailed, op, "Flow error: "+obs.Err))
		case obs.Status == models.FlowStatusFailed:
			return nil, backoff.Permanent(apperr.New(apperr.KindFlowFailed, op, "Flow execution failed"))
		case obs.Status == models.FlowStatusCompleted:
			return &Result{RunID: runID, Status: obs.Status, Attempts: attempts, Data: obs.Payload}, nil
		default:
			return nil, fmt.Errorf("%w: status %q", errPending, obs.Status)
		}
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.policy.Interval), uint64(p.policy.MaxAttempts-1)),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		p.logger.Debug("Flow run not settled, waiting", "run_id", runID, "attempt", attempts, "max_attempts", p.policy.MaxAttempts, "next", next, "reason", err)
	}

	res, err := backoff.RetryNotifyWithData(operation, b, notify)
	if errors.Is(err, errPending) {
		err = apperr.New(apperr.KindPollTimeout, op, "Flow execution timed out")
	}

	outcome := outcomeOf(err)
	span.SetAttributes(attribute.Int("flow.attempts", attempts), attribute.String("flow.outcome", outcome))
	if p.metrics != nil {
		p.metrics.FlowPolls.WithLabelValues(outcome).Inc()
		p.metrics.PollAttempts.WithLabelValues(outcome).Observe(float64(attempts))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Warn("Flow run did not complete", "run_id", runID, "attempts", attempts, "error", err)
		return nil, err
	}
	p.logger.Info("Flow run completed", "run_id", runID, "attempts", attempts)
	return res, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return models.FlowStatusCompleted
	}
	switch apperr.KindOf(err) {
	case apperr.KindPollTimeout:
		return "timeout"
	case apperr.KindFlowFailed:
		return models.FlowStatusFailed
	default:
		return "error"
	}
}
