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

// ResolveOffer applies a provider's accept or reject to the open offer.
// Duplicate deliveries of an already-applied resolution return the current
// snapshot without error; a resolution from a provider who never held the
// offer fails with a staleOffer conflict ("booking already taken").
func (s *DefaultBookingService) ResolveOffer(ctx context.Context, bookingID, providerID string, outcome models.OfferOutcome) (*models.BookingSnapshot, error) {
	if outcome != models.OfferAccepted && outcome != models.OfferRejected {
		return nil, NewBookingError(CodeValidation, "unknown offer outcome: %s", outcome)
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		b, err := s.getBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}

		// An elapsed window resolves exactly like a reject. The first
		// observer applies it; a loser of the swap just re-reads.
		if offerElapsed(b, s.Clock.Now()) {
			if err := s.rejectCurrentProvider(ctx, b); err != nil {
				if errors.Is(err, bookingRepo.ErrVersionConflict) {
					continue
				}
				return nil, err
			}
			b, err = s.getBooking(ctx, bookingID)
			if err != nil {
				return nil, err
			}
		}

		holdsOffer := b.Status == models.BookingStatusAwaitingResponse && b.CurrentProviderID == providerID
		if !holdsOffer {
			return s.resolveStale(b, providerID, outcome)
		}

		if outcome == models.OfferAccepted {
			snap, err := s.acceptOffer(ctx, b)
			if errors.Is(err, bookingRepo.ErrVersionConflict) {
				continue
			}
			return snap, err
		}

		if err := s.rejectCurrentProvider(ctx, b); err != nil {
			if errors.Is(err, bookingRepo.ErrVersionConflict) {
				continue
			}
			return nil, err
		}
		b, err = s.getBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		return s.buildSnapshot(b), nil
	}

	return nil, NewBookingError(CodeStaleVersion, "booking %s is being updated concurrently, re-read and retry", bookingID)
}

// resolveStale decides whether a non-matching resolution is a duplicate of
// something already applied (idempotent no-op) or a genuine conflict.
func (s *DefaultBookingService) resolveStale(b *models.Booking, providerID string, outcome models.OfferOutcome) (*models.BookingSnapshot, error) {
	switch {
	case outcome == models.OfferRejected && b.HasRejected(providerID):
		return s.buildSnapshot(b), nil
	case outcome == models.OfferAccepted && b.CurrentProviderID == providerID && b.Status != models.BookingStatusAwaitingResponse:
		return s.buildSnapshot(b), nil
	default:
		return nil, NewBookingError(CodeStaleOffer, "booking already taken or offer superseded")
	}
}

// offerElapsed reports whether the active offer window has run out.
func offerElapsed(b *models.Booking, now time.Time) bool {
	return b.Status == models.BookingStatusAwaitingResponse &&
		b.OfferExpiresAt != nil && !now.Before(*b.OfferExpiresAt)
}

// acceptOffer moves the booking into the initial-payment window. The offer
// timer is invalidated by the same write that opens the payment window, so
// at most one deadline is ever active.
func (s *DefaultBookingService) acceptOffer(ctx context.Context, b *models.Booking) (*models.BookingSnapshot, error) {
	now := s.Clock.Now()
	paymentDeadline := now.Add(s.InitialPaymentWindow)

	if err := transition(b, models.BookingStatusPendingPayment); err != nil {
		return nil, err
	}
	b.OfferExpiresAt = nil
	b.InitialPaymentExpiresAt = &paymentDeadline

	if err := s.Repo.UpdateVersioned(ctx, b, b.Version); err != nil {
		return nil, err
	}
	s.refreshSnapshot(ctx, b)

	s.schedulePaymentTimer(b)
	s.notifyCustomer(ctx, b.CustomerID, models.EventBookingAccepted, map[string]string{
		"bookingId": b.ID,
		"provider":  b.CurrentProviderID,
	})
	s.notifyCustomer(ctx, b.CustomerID, models.EventPaymentDue, map[string]string{
		"bookingId": b.ID,
		"stage":     string(models.StageInitial),
		"amount":    fmt.Sprintf("%.2f", b.InitialPaymentAmount),
	})

	s.Logger.Info("offer accepted",
		zap.String("booking", b.ID), zap.String("provider", b.CurrentProviderID))
	return s.buildSnapshot(b), nil
}

// rejectCurrentProvider records the current provider as rejected and either
// re-offers to the next candidate or cancels when none remain. Returns
// ErrVersionConflict when another writer resolved the offer first.
func (s *DefaultBookingService) rejectCurrentProvider(ctx context.Context, b *models.Booking) error {
	rejected := b.CurrentProviderID
	b.RejectedProviderIDs = append(b.RejectedProviderIDs, rejected)
	b.CurrentProviderID = ""
	b.OfferExpiresAt = nil

	next, err := s.selectNext(ctx, b)
	if err != nil {
		// Directory outage: leave the stored booking untouched so a later
		// retry (sweep or explicit) can still reassign.
		return err
	}

	now := s.Clock.Now()
	if next == nil {
		if err := transition(b, models.BookingStatusCancelled); err != nil {
			return err
		}
		b.CancelReason = "no providers available"
	} else {
		offerDeadline := now.Add(s.OfferWindow)
		b.CurrentProviderID = next.ProviderID
		b.OfferExpiresAt = &offerDeadline
	}

	if err := s.Repo.UpdateVersioned(ctx, b, b.Version); err != nil {
		return err
	}
	s.refreshSnapshot(ctx, b)

	if next == nil {
		s.notifyCustomer(ctx, b.CustomerID, models.EventBookingCancelled, map[string]string{
			"bookingId": b.ID,
			"reason":    b.CancelReason,
			"code":      CodeNoProvidersAvailable,
		})
		s.Logger.Info("booking cancelled, provider pool exhausted",
			zap.String("booking", b.ID), zap.String("lastRejected", rejected))
		return nil
	}

	s.scheduleOfferTimer(b)
	s.notifyProvider(ctx, b.CurrentProviderID, models.EventOfferReceived, s.offerData(b))
	s.notifyCustomer(ctx, b.CustomerID, models.EventBookingReassigned, map[string]string{
		"bookingId": b.ID,
		"provider":  b.CurrentProviderID,
	})
	s.Logger.Info("booking reassigned",
		zap.String("booking", b.ID),
		zap.String("rejected", rejected),
		zap.String("next", b.CurrentProviderID))
	return nil
}

// ExpireOffer is the timer callback for an elapsed offer window. A fire
// against a superseded state (offer already resolved, booking reassigned,
// window restarted) is detected and dropped.
func (s *DefaultBookingService) ExpireOffer(ctx context.Context, bookingID, providerID string) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		b, err := s.getBooking(ctx, bookingID)
		if err != nil {
			if IsCode(err, CodeNotFound) {
				return nil
			}
			return err
		}

		if b.Status != models.BookingStatusAwaitingResponse || b.CurrentProviderID != providerID {
			return nil // stale fire
		}
		if b.OfferExpiresAt == nil || s.Clock.Now().Before(*b.OfferExpiresAt) {
			return nil // window was restarted, a newer timer owns it
		}

		err = s.rejectCurrentProvider(ctx, b)
		if errors.Is(err, bookingRepo.ErrVersionConflict) {
			continue
		}
		return err
	}
	return nil
}
