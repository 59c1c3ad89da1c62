package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/internal/logging"
	"contact-sync/backend/internal/metrics"
	"contact-sync/backend/internal/normalize"
	"contact-sync/backend/internal/repository"
	"contact-sync/backend/pkg/models"
)

// Action keys of the paged list actions on the integration platform.
const (
	ContactsActionKey  = "get-contacts"
	EmployeesActionKey = "list-employees"
)

// Source binds one record kind to its platform action, normalizer and store.
type Source[T any] struct {
	// Kind names the records in messages and metrics, e.g. "contacts".
	Kind       string
	ActionKey  string
	Normalize  func(record normalize.Record, customerID string) T
	ExternalID func(item *T) string
	Upsert     func(ctx context.Context, item *T) (*T, error)
}

// ContactSource imports contacts into store.
func ContactSource(store repository.ContactStore) Source[models.Contact] {
	return Source[models.Contact]{
		Kind:       "contacts",
		ActionKey:  ContactsActionKey,
		Normalize:  normalize.Contact,
		ExternalID: func(c *models.Contact) string { return c.ContactID },
		Upsert:     store.UpsertContact,
	}
}

// EmployeeSource imports employees into store.
func EmployeeSource(store repository.EmployeeStore) Source[models.Employee] {
	return Source[models.Employee]{
		Kind:       "employees",
		ActionKey:  EmployeesActionKey,
		Normalize:  normalize.Employee,
		ExternalID: func(e *models.Employee) string { return e.EmployeeID },
		Upsert:     store.UpsertEmployee,
	}
}

// ImportOptions tunes an Importer.
type ImportOptions struct {
	// PageDelay is the minimum spacing between page fetches. Zero disables it.
	PageDelay time.Duration
	// Concurrency bounds the number of in-flight upserts.
	Concurrency int
}

// Importer walks every page of a tenant's first connection, then normalizes
// and upserts the accumulated records.
type Importer[T any] struct {
	platform Platform
	source   Source[T]
	opts     ImportOptions
	logger   *logging.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// NewImporter creates an Importer. m may be nil.
func NewImporter[T any](platform Platform, source Source[T], opts ImportOptions, logger *logging.Logger, m *metrics.Metrics) *Importer[T] {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Importer[T]{
		platform: platform,
		source:   source,
		opts:     opts,
		logger:   logger.Named("importer").With("kind", source.Kind),
		metrics:  m,
		tracer:   otel.Tracer("contact-sync/services"),
	}
}

// Run imports every record the tenant's source holds and returns the stored
// records in fetch order. Nothing is persisted unless every page was fetched
// and understood; any failed upsert fails the whole run. The run outlives the
// caller's cancellation so a dropped client never leaves it half applied.
func (im *Importer[T]) Run(ctx context.Context, tenant models.Tenant) (items []T, err error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := im.tracer.Start(ctx, "import."+im.source.Kind, trace.WithAttributes(
		attribute.String("tenant.id", tenant.ID),
	))
	defer func() {
		if im.metrics != nil {
			im.metrics.ImportRuns.WithLabelValues(im.source.Kind, metrics.Result(err)).Inc()
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	records, err := im.fetchAll(ctx, tenant)
	if err != nil {
		return nil, err
	}

	pending := make([]T, 0, len(records))
	for _, raw := range records {
		record, ok := raw.(map[string]any)
		if !ok {
			im.skip(tenant, "record is not an object")
			continue
		}
		item := im.source.Normalize(record, tenant.ID)
		if im.source.ExternalID(&item) == "" {
			im.skip(tenant, "record has no id")
			continue
		}
		pending = append(pending, item)
	}

	saved := make([]T, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.opts.Concurrency)
	for i := range pending {
		g.Go(func() error {
			out, err := im.source.Upsert(gctx, &pending[i])
			if err != nil {
				return err
			}
			saved[i] = *out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		im.logger.Error("Import failed while saving records", "customer_id", tenant.ID, "error", err)
		return nil, err
	}

	if im.metrics != nil {
		im.metrics.ImportedRecords.WithLabelValues(im.source.Kind).Add(float64(len(saved)))
	}
	span.SetAttributes(attribute.Int("import.records", len(saved)))
	im.logger.Info("Import completed", "customer_id", tenant.ID, "fetched", len(records), "saved", len(saved))
	return saved, nil
}

// fetchAll follows the cursor chain to the end and returns every record seen.
func (im *Importer[T]) fetchAll(ctx context.Context, tenant models.Tenant) ([]any, error) {
	const op = "services.Import"

	conns, err := im.platform.ListConnections(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return nil, apperr.Newf(apperr.KindNoSource, op, "No apps connected to import %s from", im.source.Kind)
	}
	conn := conns[0]

	limit := rate.Inf
	if im.opts.PageDelay > 0 {
		limit = rate.Every(im.opts.PageDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	var (
		all    []any
		cursor string
		pages  int
	)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		input := map[string]any{}
		if cursor != "" {
			input["cursor"] = cursor
		}
		res, err := im.platform.RunAction(ctx, tenant, conn.ID, im.source.ActionKey, input)
		if err != nil {
			return nil, err
		}
		pages++

		var output map[string]any
		if res != nil {
			output = res.Output
		}
		records, ok := output["records"].([]any)
		if !ok {
			return nil, apperr.Newf(apperr.KindUpstream, op, "Invalid response format from %s API", im.source.Kind)
		}
		all = append(all, records...)
		im.logger.Debug("Fetched page", "customer_id", tenant.ID, "connection", conn.ID, "page", pages, "records", len(records))

		cursor, _ = output["cursor"].(string)
		if cursor == "" {
			return all, nil
		}
	}
}

func (im *Importer[T]) skip(tenant models.Tenant, reason string) {
	im.logger.Warn("Skipping record", "customer_id", tenant.ID, "reason", reason)
	if im.metrics != nil {
		im.metrics.SkippedRecords.WithLabelValues(im.source.Kind).Inc()
	}
}
