package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/pkg/models"
)

// ContactWebhook applies a contact mutation pushed by the integration
// platform. It is not tenant authenticated.
// (POST /webhooks/contacts)
func (h *Handler) ContactWebhook(c echo.Context) error {
	var body map[string]any
	if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
		return apperr.Wrap(apperr.KindValidation, "api.ContactWebhook", err, "Invalid webhook payload")
	}
	ev, err := decodeContactWebhook(body)
	if err != nil {
		return err
	}

	contact, err := h.webhooks.Handle(c.Request().Context(), ev)
	if err != nil {
		return fail(err, "Failed to process webhook")
	}
	if contact == nil {
		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "contact": contact})
}

// decodeContactWebhook accepts both the flat {event, record} payload and the
// one nested under data.request.data.
func decodeContactWebhook(body map[string]any) (models.ContactEvent, error) {
	payload := body
	if data, ok := body["data"].(map[string]any); ok {
		if request, ok := data["request"].(map[string]any); ok {
			if inner, ok := request["data"].(map[string]any); ok {
				payload = inner
			}
		}
	}

	event, _ := payload["event"].(string)
	record, _ := payload["record"].(map[string]any)
	if event == "" || record == nil {
		return models.ContactEvent{}, apperr.New(apperr.KindValidation, "api.ContactWebhook", "Invalid webhook payload")
	}

	customerID, _ := payload["customerId"].(string)
	if customerID == "" {
		customerID, _ = body["customerId"].(string)
	}
	return models.ContactEvent{Event: event, CustomerID: customerID, Record: record}, nil
}
