package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "homely/database/repository/booking"
	"homely/models"

	"go.uber.org/zap"
)

// CaptureInitial attempts the 25% acceptance-time capture. A declined
// charge leaves the window open until it naturally expires; no extension
// is granted. Capturing after the window closed cancels the booking first
// and reports paymentWindowExpired.
func (s *DefaultBookingService) CaptureInitial(ctx context.Context, bookingID string) (*models.BookingSnapshot, error) {
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if paymentWindowElapsed(b, s.Clock.Now()) {
		if err := s.ExpireInitialPayment(ctx, bookingID); err != nil {
			return nil, err
		}
		return nil, NewBookingError(CodePaymentWindowExpired,
			"initial payment window for booking %s has expired", bookingID)
	}

	switch {
	case b.IsInitialPaid:
		// Duplicate capture: report the settled truth.
		return s.buildSnapshot(b), nil
	case b.Status != models.BookingStatusPendingPayment:
		return nil, NewBookingError(CodeInvalidState,
			"cannot capture initial payment while booking %s is %s", bookingID, b.Status)
	}

	result, err := s.Charger.Charge(ctx, models.ChargeRequest{
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		Stage:      models.StageInitial,
		Amount:     b.InitialPaymentAmount,
		Currency:   s.Currency,
		Method:     b.PaymentMethod,
	})
	if err != nil {
		return nil, NewBookingError(CodePaymentCaptureFailed,
			"initial payment capture for booking %s failed: %v", bookingID, err)
	}
	if !result.Success {
		return nil, NewBookingError(CodePaymentCaptureFailed,
			"initial payment for booking %s was declined", bookingID)
	}

	snap, err := s.recordInitialCapture(ctx, b, result.Reference)
	if err != nil {
		return nil, err
	}

	s.notifyCustomer(ctx, snap.CustomerID, models.EventPaymentReceived, map[string]string{
		"bookingId": snap.BookingID,
		"stage":     string(models.StageInitial),
		"amount":    fmt.Sprintf("%.2f", snap.InitialPaymentAmount),
	})
	s.notifyProvider(ctx, snap.CurrentProviderID, models.EventPaymentReceived, map[string]string{
		"bookingId": snap.BookingID,
		"stage":     string(models.StageInitial),
	})

	s.Logger.Info("initial payment captured",
		zap.String("booking", snap.BookingID),
		zap.Float64("amount", snap.InitialPaymentAmount),
		zap.String("reference", result.Reference))
	return snap, nil
}

// recordInitialCapture persists a successful initial charge. The money has
// already moved, so a lost version swap must never re-run the charge: the
// loop re-reads and either records the capture on the current version,
// accepts that a concurrent capture already recorded the same idempotent
// charge, or refunds the charge when the booking was cancelled underneath
// the gateway call.
func (s *DefaultBookingService) recordInitialCapture(ctx context.Context, b *models.Booking, reference string) (*models.BookingSnapshot, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		if err := transition(b, models.BookingStatusInProgress); err != nil {
			return nil, s.refundStrandedCharge(ctx, reference, b.InitialPaymentAmount, err)
		}
		b.IsInitialPaid = true
		b.InitialChargeRef = reference
		b.InitialPaymentExpiresAt = nil

		err := s.Repo.UpdateVersioned(ctx, b, b.Version)
		if err == nil {
			s.refreshSnapshot(ctx, b)
			return s.buildSnapshot(b), nil
		}
		if !errors.Is(err, bookingRepo.ErrVersionConflict) {
			return nil, err
		}

		if b, err = s.getBooking(ctx, b.ID); err != nil {
			return nil, err
		}
		if b.IsInitialPaid {
			// A concurrent capture recorded the same idempotent charge.
			return s.buildSnapshot(b), nil
		}
	}
	return nil, s.refundStrandedCharge(ctx, reference, b.InitialPaymentAmount,
		NewBookingError(CodeStaleVersion, "booking %s is being updated concurrently, re-read and retry", b.ID))
}

// refundStrandedCharge compensates a capture whose booking can no longer
// record it. The refund is best-effort: a failure is logged for manual
// intervention and the original cause is still surfaced to the caller.
func (s *DefaultBookingService) refundStrandedCharge(ctx context.Context, reference string, amount float64, cause error) error {
	if err := s.Charger.Refund(ctx, reference, amount); err != nil {
		s.Logger.Error("failed to refund stranded charge",
			zap.String("reference", reference),
			zap.Float64("amount", amount),
			zap.Error(err))
		return cause
	}
	s.Logger.Warn("refunded charge captured against a superseded booking",
		zap.String("reference", reference),
		zap.Float64("amount", amount))
	return cause
}

// ExpireInitialPayment is the timer callback for an elapsed initial-payment
// window. No charge was captured, so cancellation needs no refund.
func (s *DefaultBookingService) ExpireInitialPayment(ctx context.Context, bookingID string) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		b, err := s.getBooking(ctx, bookingID)
		if err != nil {
			if IsCode(err, CodeNotFound) {
				return nil
			}
			return err
		}

		if b.Status != models.BookingStatusPendingPayment || b.IsInitialPaid {
			return nil // stale fire
		}
		if !paymentWindowElapsed(b, s.Clock.Now()) {
			return nil
		}

		provider := b.CurrentProviderID
		if err := transition(b, models.BookingStatusCancelled); err != nil {
			return err
		}
		b.CancelReason = "initial payment window expired"
		b.InitialPaymentExpiresAt = nil

		if err := s.Repo.UpdateVersioned(ctx, b, b.Version); err != nil {
			if errors.Is(err, bookingRepo.ErrVersionConflict) {
				continue
			}
			return err
		}
		s.refreshSnapshot(ctx, b)

		data := map[string]string{"bookingId": b.ID, "reason": b.CancelReason}
		s.notifyCustomer(ctx, b.CustomerID, models.EventBookingCancelled, data)
		s.notifyProvider(ctx, provider, models.EventBookingCancelled, data)

		s.Logger.Info("booking cancelled, initial payment window expired",
			zap.String("booking", b.ID))
		return nil
	}
	return nil
}

// paymentWindowElapsed reports whether the initial-payment deadline passed
// while the payment is still outstanding.
func paymentWindowElapsed(b *models.Booking, now time.Time) bool {
	return b.Status == models.BookingStatusPendingPayment && !b.IsInitialPaid &&
		b.InitialPaymentExpiresAt != nil && !now.Before(*b.InitialPaymentExpiresAt)
}

// MarkJobComplete opens the completion-payment obligation. Only the
// assigned provider can mark the job done; the completion window never
// force-cancels an already-performed service.
func (s *DefaultBookingService) MarkJobComplete(ctx context.Context, bookingID, providerID string) (*models.BookingSnapshot, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		b, err := s.getBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}

		if b.Status == models.BookingStatusAwaitingCompletionPayment && b.CurrentProviderID == providerID {
			return s.buildSnapshot(b), nil // duplicate
		}
		if b.Status != models.BookingStatusInProgress {
			return nil, NewBookingError(CodeInvalidState,
				"cannot mark booking %s complete while it is %s", bookingID, b.Status)
		}
		if b.CurrentProviderID != providerID {
			return nil, NewBookingError(CodeInvalidState,
				"only the assigned provider can mark booking %s complete", bookingID)
		}

		if err := transition(b, models.BookingStatusAwaitingCompletionPayment); err != nil {
			return nil, err
		}

		if err := s.Repo.UpdateVersioned(ctx, b, b.Version); err != nil {
			if errors.Is(err, bookingRepo.ErrVersionConflict) {
				continue
			}
			return nil, err
		}
		s.refreshSnapshot(ctx, b)

		s.notifyCustomer(ctx, b.CustomerID, models.EventJobCompleted, map[string]string{
			"bookingId": b.ID,
		})
		s.notifyCustomer(ctx, b.CustomerID, models.EventPaymentDue, map[string]string{
			"bookingId": b.ID,
			"stage":     string(models.StageCompletion),
			"amount":    fmt.Sprintf("%.2f", b.CompletionAmount),
		})

		s.Logger.Info("job marked complete",
			zap.String("booking", b.ID), zap.String("provider", providerID))
		return s.buildSnapshot(b), nil
	}
	return nil, NewBookingError(CodeStaleVersion, "booking %s is being updated concurrently, re-read and retry", bookingID)
}

// CaptureCompletion captures the remaining 75%. The paid flag is checked
// before the gateway call, so racing triggers (server settlement
// confirmation vs client poll) can never capture twice.
func (s *DefaultBookingService) CaptureCompletion(ctx context.Context, bookingID string) (*models.BookingSnapshot, error) {
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.IsCompletionPaid {
		return s.buildSnapshot(b), nil // already settled
	}
	if b.Status != models.BookingStatusAwaitingCompletionPayment {
		return nil, NewBookingError(CodeInvalidState,
			"cannot capture completion payment while booking %s is %s", bookingID, b.Status)
	}

	result, err := s.Charger.Charge(ctx, models.ChargeRequest{
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		Stage:      models.StageCompletion,
		Amount:     b.CompletionAmount,
		Currency:   s.Currency,
		Method:     b.PaymentMethod,
	})
	if err != nil {
		return nil, NewBookingError(CodePaymentCaptureFailed,
			"completion payment capture for booking %s failed: %v", bookingID, err)
	}
	if !result.Success {
		return nil, NewBookingError(CodePaymentCaptureFailed,
			"completion payment for booking %s was declined", bookingID)
	}

	snap, err := s.recordCompletionCapture(ctx, b, result.Reference)
	if err != nil {
		return nil, err
	}

	data := map[string]string{
		"bookingId": snap.BookingID,
		"amount":    fmt.Sprintf("%.2f", snap.CompletionAmount),
	}
	s.notifyCustomer(ctx, snap.CustomerID, models.EventBookingSettled, data)
	s.notifyProvider(ctx, snap.CurrentProviderID, models.EventBookingSettled, data)

	s.Logger.Info("completion payment captured, booking settled",
		zap.String("booking", snap.BookingID),
		zap.Float64("amount", snap.CompletionAmount),
		zap.String("reference", result.Reference))
	return snap, nil
}

// recordCompletionCapture persists a successful completion charge with the
// same no-recharge discipline as recordInitialCapture.
func (s *DefaultBookingService) recordCompletionCapture(ctx context.Context, b *models.Booking, reference string) (*models.BookingSnapshot, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		if err := transition(b, models.BookingStatusCompleted); err != nil {
			return nil, s.refundStrandedCharge(ctx, reference, b.CompletionAmount, err)
		}
		b.IsCompletionPaid = true
		b.FinalChargeRef = reference

		err := s.Repo.UpdateVersioned(ctx, b, b.Version)
		if err == nil {
			s.refreshSnapshot(ctx, b)
			return s.buildSnapshot(b), nil
		}
		if !errors.Is(err, bookingRepo.ErrVersionConflict) {
			return nil, err
		}

		if b, err = s.getBooking(ctx, b.ID); err != nil {
			return nil, err
		}
		if b.IsCompletionPaid {
			return s.buildSnapshot(b), nil
		}
	}
	return nil, s.refundStrandedCharge(ctx, reference, b.CompletionAmount,
		NewBookingError(CodeStaleVersion, "booking %s is being updated concurrently, re-read and retry", b.ID))
}

// CancelBooking applies an explicit customer or provider cancellation from
// any non-terminal state. Refunds are decided by what was actually
// captured, not by status.
func (s *DefaultBookingService) CancelBooking(ctx context.Context, bookingID, cancelledBy, reason string) (*models.BookingSnapshot, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		b, err := s.getBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}

		if b.Status.IsTerminal() {
			if b.Status == models.BookingStatusCancelled {
				return s.buildSnapshot(b), nil // duplicate cancel
			}
			return nil, NewBookingError(CodeInvalidState,
				"booking %s is already %s", bookingID, b.Status)
		}

		provider := b.CurrentProviderID
		if reason == "" {
			reason = "cancelled by " + cancelledBy
		}
		if err := transition(b, models.BookingStatusCancelled); err != nil {
			return nil, err
		}
		b.CancelReason = reason
		b.OfferExpiresAt = nil
		b.InitialPaymentExpiresAt = nil

		if err := s.Repo.UpdateVersioned(ctx, b, b.Version); err != nil {
			if errors.Is(err, bookingRepo.ErrVersionConflict) {
				continue
			}
			return nil, err
		}
		s.refreshSnapshot(ctx, b)

		if b.IsInitialPaid && !b.IsCompletionPaid {
			if err := s.Charger.Refund(ctx, b.InitialChargeRef, b.InitialPaymentAmount); err != nil {
				// The cancellation stands; the refund becomes a manual
				// intervention item rather than un-cancelling the booking.
				s.Logger.Error("refund failed after cancellation",
					zap.String("booking", b.ID), zap.Error(err))
			}
		}

		data := map[string]string{"bookingId": b.ID, "reason": reason}
		s.notifyCustomer(ctx, b.CustomerID, models.EventBookingCancelled, data)
		s.notifyProvider(ctx, provider, models.EventBookingCancelled, data)

		s.Logger.Info("booking cancelled",
			zap.String("booking", b.ID),
			zap.String("by", cancelledBy),
			zap.String("reason", reason))
		return s.buildSnapshot(b), nil
	}
	return nil, NewBookingError(CodeStaleVersion, "booking %s is being updated concurrently, re-read and retry", bookingID)
}
