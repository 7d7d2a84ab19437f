package booking

import (
	"context"
	"testing"
	"time"

	"homely/models"

	"go.uber.org/zap"
)

func newTestPoller(env *testEnv) *Poller {
	return &Poller{
		Svc:      env.svc,
		Repo:     env.repo,
		Clock:    env.clock,
		Interval: time.Minute,
		Logger:   zap.NewNop(),
	}
}

func TestSweepExpiresOfferWindows(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.dir.quotes = []models.ProviderQuote{
		{ProviderID: "prov-a", Price: 900},
		{ProviderID: "prov-b", Price: 950},
	}
	snap := mustCreate(t, env, "prov-a", 1200)

	env.clock.Advance(4 * time.Minute)
	newTestPoller(env).Sweep(context.Background())

	b, _ := env.repo.GetByID(context.Background(), snap.BookingID)
	if b.CurrentProviderID != "prov-b" || !b.HasRejected("prov-a") {
		t.Fatalf("sweep did not reassign: %+v", b)
	}

	// The sweep walks the booking all the way to cancelled once the pool
	// is exhausted, one window at a time.
	env.clock.Advance(4 * time.Minute)
	newTestPoller(env).Sweep(context.Background())

	b, _ = env.repo.GetByID(context.Background(), snap.BookingID)
	if b.Status != models.BookingStatusCancelled || b.CancelReason != "no providers available" {
		t.Fatalf("sweep did not exhaust the pool: %+v", b)
	}
}

func TestSweepExpiresPaymentWindows(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	id := acceptedBooking(t, env, 2000)

	env.clock.Advance(4 * time.Minute)
	newTestPoller(env).Sweep(context.Background())

	b, _ := env.repo.GetByID(context.Background(), id)
	if b.Status != models.BookingStatusCancelled || b.CancelReason != "initial payment window expired" {
		t.Fatalf("sweep did not close the payment window: %+v", b)
	}
}

func TestSweepLeavesLiveWindowsAlone(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	snap := mustCreate(t, env, "prov-a", 1200)

	env.clock.Advance(time.Minute)
	newTestPoller(env).Sweep(context.Background())

	b, _ := env.repo.GetByID(context.Background(), snap.BookingID)
	if b.Status != models.BookingStatusAwaitingResponse || b.Version != snap.Version {
		t.Fatalf("sweep touched a live booking: %+v", b)
	}
}
