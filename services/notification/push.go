package notification

import (
	"context"
	"fmt"

	deviceRepo "homely/database/repository/device"
	"homely/models"
	"homely/utils"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Human-readable titles per event type, shown in the push banner.
var eventTitles = map[string]string{
	models.EventOfferReceived:     "New booking request",
	models.EventBookingAccepted:   "Booking accepted",
	models.EventBookingReassigned: "Booking reassigned",
	models.EventBookingCancelled:  "Booking cancelled",
	models.EventPaymentDue:        "Payment required",
	models.EventPaymentReceived:   "Payment received",
	models.EventJobCompleted:      "Job marked complete",
	models.EventBookingSettled:    "Booking settled",
}

// DefaultNotificationService sends FCM pushes to registered devices.
type DefaultNotificationService struct {
	Tokens deviceRepo.DeviceTokenRepository
	Logger *zap.Logger
}

func NewDefaultNotificationService(tokens deviceRepo.DeviceTokenRepository, logger *zap.Logger) *DefaultNotificationService {
	return &DefaultNotificationService{Tokens: tokens, Logger: logger}
}

func (s *DefaultNotificationService) NotifyCustomer(ctx context.Context, customerID, eventType string, data map[string]string) error {
	return s.send(ctx, customerID, models.RoleCustomer, eventType, data)
}

func (s *DefaultNotificationService) NotifyProvider(ctx context.Context, providerID, eventType string, data map[string]string) error {
	return s.send(ctx, providerID, models.RoleProvider, eventType, data)
}

func (s *DefaultNotificationService) send(ctx context.Context, ownerID, role, eventType string, data map[string]string) error {
	if utils.FCMClient == nil {
		s.Logger.Debug("push delivery disabled, dropping notification",
			zap.String("recipient", ownerID), zap.String("event", eventType))
		return nil
	}

	token, err := s.Tokens.GetToken(ctx, ownerID, role)
	if err != nil {
		return fmt.Errorf("could not resolve device token for %s %s: %w", role, ownerID, err)
	}

	if data == nil {
		data = map[string]string{}
	}
	data["event"] = eventType
	data["role"] = role

	title := eventTitles[eventType]
	if title == "" {
		title = "Booking update"
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  data["body"],
		},
		Data: data,
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send FCM message to %s %s: %w", role, ownerID, err)
	}
	return nil
}

// NoopNotificationService satisfies the interface when push delivery is not
// configured, e.g. in tests or local development.
type NoopNotificationService struct{}

func (NoopNotificationService) NotifyCustomer(context.Context, string, string, map[string]string) error {
	return nil
}

func (NoopNotificationService) NotifyProvider(context.Context, string, string, map[string]string) error {
	return nil
}
