package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/internal/metrics"
	"contact-sync/backend/internal/repository/repositorytest"
	"contact-sync/backend/pkg/models"
)

func webhookRecord() map[string]any {
	return map[string]any{
		"id":          "ext-1",
		"name":        "Ada Lovelace",
		"createdTime": "2024-03-01T10:00:00Z",
		"updatedTime": "2024-03-02T11:30:00Z",
		"fields": map[string]any{
			"primaryEmail": "ada@example.com",
			"primaryPhone": "+44 20 0000",
			"source":       "hubspot",
		},
	}
}

func TestWebhookCreatedTwiceStoresOneContact(t *testing.T) {
	store := repositorytest.New()
	m := metrics.New()
	svc := NewWebhookService(store, nil, m)
	ev := models.ContactEvent{Event: models.ContactCreated, CustomerID: "cust-1", Record: webhookRecord()}

	first, err := svc.Handle(context.Background(), ev)
	require.NoError(t, err)
	second, err := svc.Handle(context.Background(), ev)
	require.NoError(t, err)

	require.Len(t, store.Contacts(), 1)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "ada@example.com", second.Email)
	assert.Equal(t, "hubspot", second.Source)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), second.CreatedAt)
	assert.Equal(t, time.Date(2024, 3, 2, 11, 30, 0, 0, time.UTC), second.UpdatedAt)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WebhookEvents.WithLabelValues("contact.created", "ok")))
}

func TestWebhookUpdateMatchesByExternalID(t *testing.T) {
	store := repositorytest.New()
	svc := NewWebhookService(store, nil, nil)
	ctx := context.Background()

	_, err := svc.Handle(ctx, models.ContactEvent{Event: models.ContactCreated, CustomerID: "cust-1", Record: webhookRecord()})
	require.NoError(t, err)

	rec := webhookRecord()
	rec["name"] = "Ada King"
	updated, err := svc.Handle(ctx, models.ContactEvent{Event: models.ContactUpdated, Record: rec})
	require.NoError(t, err)

	assert.Equal(t, "Ada King", updated.Name)
	assert.Equal(t, "cust-1", updated.CustomerID)
	assert.Len(t, store.Contacts(), 1)
}

func TestWebhookDelete(t *testing.T) {
	store := repositorytest.New()
	svc := NewWebhookService(store, nil, nil)
	ctx := context.Background()

	_, err := svc.Handle(ctx, models.ContactEvent{Event: models.ContactCreated, CustomerID: "cust-1", Record: webhookRecord()})
	require.NoError(t, err)

	deleted, err := svc.Handle(ctx, models.ContactEvent{Event: models.ContactDeleted, Record: map[string]any{"id": "ext-1"}})
	require.NoError(t, err)
	assert.Nil(t, deleted)
	assert.Empty(t, store.Contacts())
}

func TestWebhookRejectsBadEvents(t *testing.T) {
	svc := NewWebhookService(repositorytest.New(), nil, nil)

	tests := []struct {
		name string
		ev   models.ContactEvent
		msg  string
	}{
		{name: "missing event", ev: models.ContactEvent{Record: webhookRecord()}, msg: "Invalid webhook payload"},
		{name: "missing record", ev: models.ContactEvent{Event: models.ContactCreated}, msg: "Invalid webhook payload"},
		{name: "missing id", ev: models.ContactEvent{Event: models.ContactCreated, Record: map[string]any{"name": "x"}}, msg: "Invalid webhook payload"},
		{name: "delete without id", ev: models.ContactEvent{Event: models.ContactDeleted, Record: map[string]any{}}, msg: "Contact ID not found in delete event"},
		{name: "unknown event", ev: models.ContactEvent{Event: "contact.merged", Record: webhookRecord()}, msg: "Unsupported event type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Handle(context.Background(), tt.ev)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, tt.msg, apperr.MessageOf(err, ""))
		})
	}
}

func TestParseTime(t *testing.T) {
	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("yesterday").IsZero())
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), parseTime("2024-01-02T04:04:05+01:00"))
}
