package booking

import (
	"context"
	"time"

	"homely/clock"
	bookingRepo "homely/database/repository/booking"
	"homely/models"

	"go.uber.org/zap"
)

// Poller is the reconciliation safety net. Push and timer delivery are
// both unreliable, so the poller periodically re-derives state from the
// Booking Record Store and applies any transition whose deadline already
// passed. It runs the same idempotent operations the timers run: whoever
// wins the version swap performs the side effect, everyone else no-ops.
type Poller struct {
	Svc      BookingService
	Repo     bookingRepo.BookingRepository
	Clock    clock.Clock
	Interval time.Duration
	Logger   *zap.Logger
}

// Run sweeps until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.Logger.Info("reconciliation poller started", zap.Duration("interval", p.Interval))
	for {
		select {
		case <-ctx.Done():
			p.Logger.Info("reconciliation poller stopped")
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep applies expiry transitions for every booking whose active window
// has elapsed. A failed item is left for the next tick; the store is the
// single source of truth, so retrying is always safe.
func (p *Poller) Sweep(ctx context.Context) {
	due, err := p.Repo.ListDeadlinesPassed(ctx, p.Clock.Now())
	if err != nil {
		p.Logger.Warn("reconciliation sweep failed to list bookings", zap.Error(err))
		return
	}

	for i := range due {
		b := &due[i]
		switch b.Status {
		case models.BookingStatusAwaitingResponse:
			if err := p.Svc.ExpireOffer(ctx, b.ID, b.CurrentProviderID); err != nil {
				p.Logger.Warn("sweep could not expire offer",
					zap.String("booking", b.ID), zap.Error(err))
			}
		case models.BookingStatusPendingPayment:
			if err := p.Svc.ExpireInitialPayment(ctx, b.ID); err != nil {
				p.Logger.Warn("sweep could not expire payment window",
					zap.String("booking", b.ID), zap.Error(err))
			}
		}
	}
}
