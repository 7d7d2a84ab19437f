package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingRepo "homely/database/repository/booking"
	"homely/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// casAttempts bounds the optimistic-update retry loop. Losing the swap
// this many times in a row means another writer is making progress, so the
// loser re-reads and reports the current truth instead.
const casAttempts = 3

// CreateBooking validates the request, fixes the staged price split, and
// opens the first offer window against the requested provider.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.BookingSnapshot, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	initial, completion := SplitStagedAmounts(in.TotalPrice)
	offerDeadline := now.Add(s.OfferWindow)

	b := &models.Booking{
		ID:                   uuid.New().String(),
		CustomerID:           in.CustomerID,
		ServiceName:          in.ServiceName,
		CurrentProviderID:    in.ProviderID,
		RejectedProviderIDs:  []string{},
		Status:               models.BookingStatusDraft,
		TotalPrice:           in.TotalPrice,
		InitialPaymentAmount: initial,
		CompletionAmount:     completion,
		PaymentMethod:        in.PaymentMethod,
		Schedule:             in.Schedule,
		Details:              in.Details,
		OfferExpiresAt:       &offerDeadline,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := transition(b, models.BookingStatusAwaitingResponse); err != nil {
		return nil, err
	}

	if err := s.Repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	s.refreshSnapshot(ctx, b)

	s.scheduleOfferTimer(b)
	s.notifyProvider(ctx, b.CurrentProviderID, models.EventOfferReceived, s.offerData(b))

	s.Logger.Info("booking created",
		zap.String("booking", b.ID),
		zap.String("provider", b.CurrentProviderID),
		zap.Float64("total", b.TotalPrice))
	return s.buildSnapshot(b), nil
}

func validateCreateInput(in CreateBookingInput) error {
	if strings.TrimSpace(in.CustomerID) == "" {
		return NewBookingError(CodeValidation, "missing customer id")
	}
	if strings.TrimSpace(in.ServiceName) == "" {
		return NewBookingError(CodeValidation, "missing service name")
	}
	if strings.TrimSpace(in.ProviderID) == "" {
		return NewBookingError(CodeValidation, "missing provider id")
	}
	if in.TotalPrice <= 0 {
		return NewBookingError(CodeValidation, "total price must be positive")
	}
	if in.PaymentMethod != "card" && in.PaymentMethod != "cash" {
		return NewBookingError(CodeValidation, "unsupported payment method: %s", in.PaymentMethod)
	}
	switch in.Details.Category {
	case models.ServiceStandard, models.ServiceHourly, models.ServiceCeremonial:
	default:
		return NewBookingError(CodeValidation, "unknown service category: %s", in.Details.Category)
	}
	return nil
}

// ListCustomerBookings returns a customer's bookings, newest first. Listing
// does not apply lazy expiry; countdowns that hit zero are rendered as zero
// and the sweep converges the stored state shortly after.
func (s *DefaultBookingService) ListCustomerBookings(ctx context.Context, customerID string) ([]models.BookingSnapshot, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, NewBookingError(CodeValidation, "missing customer id")
	}
	items, err := s.Repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, NewBookingError(CodeExternalService, "booking store unavailable: %v", err)
	}
	snaps := make([]models.BookingSnapshot, 0, len(items))
	for i := range items {
		snaps = append(snaps, *s.buildSnapshot(&items[i]))
	}
	return snaps, nil
}

// getBooking maps repository errors to coded errors.
func (s *DefaultBookingService) getBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, NewBookingError(CodeNotFound, "booking %s not found", bookingID)
	}
	if err != nil {
		return nil, NewBookingError(CodeExternalService, "booking store unavailable: %v", err)
	}
	return b, nil
}

// buildSnapshot projects a booking for clients, recomputing countdowns
// from the stored deadlines so a slow client cannot drift from the truth.
func (s *DefaultBookingService) buildSnapshot(b *models.Booking) *models.BookingSnapshot {
	now := s.Clock.Now()
	snap := &models.BookingSnapshot{
		BookingID:               b.ID,
		CustomerID:              b.CustomerID,
		CurrentProviderID:       b.CurrentProviderID,
		RejectedProviderIDs:     b.RejectedProviderIDs,
		Status:                  b.Status,
		CancelReason:            b.CancelReason,
		TotalPrice:              b.TotalPrice,
		InitialPaymentAmount:    b.InitialPaymentAmount,
		CompletionAmount:        b.CompletionAmount,
		IsInitialPaid:           b.IsInitialPaid,
		IsCompletionPaid:        b.IsCompletionPaid,
		OfferExpiresAt:          b.OfferExpiresAt,
		InitialPaymentExpiresAt: b.InitialPaymentExpiresAt,
		Version:                 b.Version,
		UpdatedAt:               b.UpdatedAt,
	}
	snap.OfferSecondsLeft = secondsLeft(b.OfferExpiresAt, now)
	snap.PaymentSecondsLeft = secondsLeft(b.InitialPaymentExpiresAt, now)
	return snap
}

func secondsLeft(deadline *time.Time, now time.Time) int64 {
	if deadline == nil {
		return 0
	}
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

// scheduleOfferTimer registers the expiry callback; a lost timer is not
// fatal because the reconciliation sweep applies the same transition.
func (s *DefaultBookingService) scheduleOfferTimer(b *models.Booking) {
	if s.Timers == nil || b.OfferExpiresAt == nil {
		return
	}
	if err := s.Timers.ScheduleOfferExpiry(b.ID, b.CurrentProviderID, *b.OfferExpiresAt); err != nil {
		s.Logger.Warn("failed to schedule offer expiry timer",
			zap.String("booking", b.ID), zap.Error(err))
	}
}

func (s *DefaultBookingService) schedulePaymentTimer(b *models.Booking) {
	if s.Timers == nil || b.InitialPaymentExpiresAt == nil {
		return
	}
	if err := s.Timers.ScheduleInitialPaymentExpiry(b.ID, *b.InitialPaymentExpiresAt); err != nil {
		s.Logger.Warn("failed to schedule payment expiry timer",
			zap.String("booking", b.ID), zap.Error(err))
	}
}

// Push delivery is best-effort: errors are logged and dropped, never
// propagated into a transition.
func (s *DefaultBookingService) notifyCustomer(ctx context.Context, customerID, eventType string, data map[string]string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.NotifyCustomer(ctx, customerID, eventType, data); err != nil {
		s.Logger.Warn("customer push failed",
			zap.String("customer", customerID), zap.String("event", eventType), zap.Error(err))
	}
}

func (s *DefaultBookingService) notifyProvider(ctx context.Context, providerID, eventType string, data map[string]string) {
	if s.Notifier == nil || providerID == "" {
		return
	}
	if err := s.Notifier.NotifyProvider(ctx, providerID, eventType, data); err != nil {
		s.Logger.Warn("provider push failed",
			zap.String("provider", providerID), zap.String("event", eventType), zap.Error(err))
	}
}

func (s *DefaultBookingService) offerData(b *models.Booking) map[string]string {
	data := map[string]string{
		"bookingId": b.ID,
		"service":   b.ServiceName,
		"total":     fmt.Sprintf("%.2f", b.TotalPrice),
	}
	if b.OfferExpiresAt != nil {
		data["offerExpiresAt"] = b.OfferExpiresAt.Format(time.RFC3339)
	}
	return data
}
