package booking

import (
	"context"
	"encoding/json"
	"time"

	"homely/models"

	"go.uber.org/zap"
)

// GetBookingSnapshot returns the authoritative projection of a booking.
// It is the read path for both UIs and the reconciliation poller: an
// elapsed window observed here is resolved before answering, so a reader
// converges to the same state a timer fire would have produced.
func (s *DefaultBookingService) GetBookingSnapshot(ctx context.Context, bookingID string) (*models.BookingSnapshot, error) {
	if snap := s.cachedSnapshot(ctx, bookingID); snap != nil {
		return snap, nil
	}

	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	if offerElapsed(b, now) {
		if err := s.ExpireOffer(ctx, b.ID, b.CurrentProviderID); err != nil {
			return nil, err
		}
		if b, err = s.getBooking(ctx, bookingID); err != nil {
			return nil, err
		}
	}
	if paymentWindowElapsed(b, now) {
		if err := s.ExpireInitialPayment(ctx, b.ID); err != nil {
			return nil, err
		}
		if b, err = s.getBooking(ctx, bookingID); err != nil {
			return nil, err
		}
	}

	snap := s.buildSnapshot(b)
	s.storeSnapshot(ctx, snap)
	return snap, nil
}

// cachedSnapshot serves a recent snapshot from the cache. A cached entry
// whose deadline has since passed is ignored so the lazy expiry still
// runs; countdowns are recomputed from the stored deadlines, never
// replayed.
func (s *DefaultBookingService) cachedSnapshot(ctx context.Context, bookingID string) *models.BookingSnapshot {
	if s.Cache == nil {
		return nil
	}

	raw, err := s.Cache.Get(ctx, bookingID)
	if err != nil || raw == nil {
		return nil
	}

	var snap models.BookingSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil
	}

	now := s.Clock.Now()
	if deadlinePassed(snap.OfferExpiresAt, now) || deadlinePassed(snap.InitialPaymentExpiresAt, now) {
		return nil
	}

	snap.OfferSecondsLeft = secondsLeft(snap.OfferExpiresAt, now)
	snap.PaymentSecondsLeft = secondsLeft(snap.InitialPaymentExpiresAt, now)
	return &snap
}

func deadlinePassed(deadline *time.Time, now time.Time) bool {
	return deadline != nil && !now.Before(*deadline)
}

// storeSnapshot publishes a projection under its version. The cache
// rejects the write when it already holds a newer version, so a slow
// writer cannot roll the cache back for other instances.
func (s *DefaultBookingService) storeSnapshot(ctx context.Context, snap *models.BookingSnapshot) {
	if s.Cache == nil || s.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := s.Cache.SetIfNewer(ctx, snap.BookingID, snap.Version, raw, s.CacheTTL); err != nil {
		s.Logger.Debug("snapshot cache write failed",
			zap.String("booking", snap.BookingID), zap.Error(err))
	}
}

// refreshSnapshot writes the projection of a just-committed booking
// through to the cache so pollers pick up the new version immediately
// instead of waiting out the TTL.
func (s *DefaultBookingService) refreshSnapshot(ctx context.Context, b *models.Booking) {
	s.storeSnapshot(ctx, s.buildSnapshot(b))
}
