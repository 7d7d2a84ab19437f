package notification

import "context"

// NotificationService delivers events to customer and provider endpoints.
// Delivery is at-most-effort: it may drop or duplicate, and callers must
// stay correct if every push is lost.
type NotificationService interface {
	NotifyCustomer(ctx context.Context, customerID, eventType string, data map[string]string) error
	NotifyProvider(ctx context.Context, providerID, eventType string, data map[string]string) error
}
