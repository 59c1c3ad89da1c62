package services

import (
	"context"
	"time"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/internal/logging"
	"contact-sync/backend/internal/metrics"
	"contact-sync/backend/internal/normalize"
	"contact-sync/backend/internal/repository"
	"contact-sync/backend/pkg/models"
)

var (
	createdTimeRule = normalize.Rule{Field: "createdTime", Paths: []normalize.Path{{"createdTime"}, {"fields", "createdTime"}}}
	updatedTimeRule = normalize.Rule{Field: "updatedTime", Paths: []normalize.Path{{"updatedTime"}, {"fields", "updatedTime"}}}
)

// WebhookService applies inbound contact mutations. It matches contacts by
// external id alone.
type WebhookService struct {
	store   repository.ContactStore
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewWebhookService creates a WebhookService. m may be nil.
func NewWebhookService(store repository.ContactStore, logger *logging.Logger, m *metrics.Metrics) *WebhookService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &WebhookService{store: store, logger: logger.Named("webhook"), metrics: m}
}

// Handle applies ev. For created and updated events it returns the stored
// contact; for deletions it returns nil.
func (s *WebhookService) Handle(ctx context.Context, ev models.ContactEvent) (contact *models.Contact, err error) {
	const op = "services.HandleWebhook"

	defer func() {
		if s.metrics != nil {
			s.metrics.WebhookEvents.WithLabelValues(eventLabel(ev.Event), metrics.Result(err)).Inc()
		}
	}()

	if ev.Event == "" || ev.Record == nil {
		return nil, apperr.New(apperr.KindValidation, op, "Invalid webhook payload")
	}
	externalID := normalize.Resolve(ev.Record, normalize.Rule{Paths: []normalize.Path{{"id"}}})

	switch ev.Event {
	case models.ContactCreated, models.ContactUpdated:
		if externalID == "" {
			return nil, apperr.New(apperr.KindValidation, op, "Invalid webhook payload")
		}
		c := normalize.Contact(ev.Record, ev.CustomerID)
		c.CreatedAt = parseTime(normalize.Resolve(ev.Record, createdTimeRule))
		c.UpdatedAt = parseTime(normalize.Resolve(ev.Record, updatedTimeRule))
		saved, err := s.store.UpsertContactByExternalID(ctx, &c)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Contact saved from webhook", "event", ev.Event, "contact_id", externalID)
		return saved, nil

	case models.ContactDeleted:
		if externalID == "" {
			return nil, apperr.New(apperr.KindValidation, op, "Contact ID not found in delete event")
		}
		n, err := s.store.DeleteContactsByExternalID(ctx, externalID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Contact deleted from webhook", "contact_id", externalID, "deleted", n)
		return nil, nil

	default:
		return nil, apperr.New(apperr.KindValidation, op, "Unsupported event type")
	}
}

// parseTime reads an RFC 3339 timestamp; anything else yields the zero time
// so the store applies its own.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// eventLabel keeps the metric's label set bounded.
func eventLabel(event string) string {
	switch event {
	case models.ContactCreated, models.ContactUpdated, models.ContactDeleted:
		return event
	default:
		return "other"
	}
}
