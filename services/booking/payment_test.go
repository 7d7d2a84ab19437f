package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"homely/models"
)

// acceptedBooking creates a booking and drives it to pending_payment.
func acceptedBooking(t *testing.T, env *testEnv, total float64) string {
	t.Helper()
	snap := mustCreate(t, env, "prov-a", total)
	if _, err := env.svc.ResolveOffer(context.Background(), snap.BookingID, "prov-a", models.OfferAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	return snap.BookingID
}

// inProgressBooking additionally captures the initial payment.
func inProgressBooking(t *testing.T, env *testEnv, total float64) string {
	t.Helper()
	id := acceptedBooking(t, env, total)
	if _, err := env.svc.CaptureInitial(context.Background(), id); err != nil {
		t.Fatalf("capture initial: %v", err)
	}
	return id
}

func TestCaptureInitial(t *testing.T) {
	t.Parallel()

	t.Run("captures the 25 percent installment", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := acceptedBooking(t, env, 2000)

		snap, err := env.svc.CaptureInitial(context.Background(), id)
		if err != nil {
			t.Fatalf("CaptureInitial: %v", err)
		}
		if snap.Status != models.BookingStatusInProgress || !snap.IsInitialPaid {
			t.Fatalf("unexpected state: %+v", snap)
		}
		if snap.InitialPaymentExpiresAt != nil {
			t.Fatal("payment deadline must be cleared by the capturing write")
		}
		if got := env.charger.attempts[0].Amount; got != 500 {
			t.Fatalf("charged %v, want 500", got)
		}
		if !env.notify.customerGot("cust-1", models.EventPaymentReceived) ||
			!env.notify.providerGot("prov-a", models.EventPaymentReceived) {
			t.Fatal("both parties should hear about the capture")
		}
	})

	t.Run("duplicate capture does not charge twice", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := inProgressBooking(t, env, 2000)

		snap, err := env.svc.CaptureInitial(context.Background(), id)
		if err != nil {
			t.Fatalf("duplicate capture: %v", err)
		}
		if snap.Status != models.BookingStatusInProgress {
			t.Fatalf("status = %s", snap.Status)
		}
		if n := env.charger.stageAttempts(models.StageInitial); n != 1 {
			t.Fatalf("gateway hit %d times, want 1", n)
		}
	})

	t.Run("declined charge keeps the window open", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.charger.decline[models.StageInitial] = true
		id := acceptedBooking(t, env, 2000)

		_, err := env.svc.CaptureInitial(context.Background(), id)
		if !IsCode(err, CodePaymentCaptureFailed) {
			t.Fatalf("err = %v, want paymentCaptureFailed", err)
		}

		b, _ := env.repo.GetByID(context.Background(), id)
		if b.Status != models.BookingStatusPendingPayment || b.IsInitialPaid {
			t.Fatalf("decline must not move the booking: %+v", b)
		}
		if b.InitialPaymentExpiresAt == nil {
			t.Fatal("window must stay open for a retry")
		}

		// Retry within the window succeeds.
		env.charger.decline[models.StageInitial] = false
		snap, err := env.svc.CaptureInitial(context.Background(), id)
		if err != nil {
			t.Fatalf("retry after decline: %v", err)
		}
		if snap.Status != models.BookingStatusInProgress {
			t.Fatalf("status = %s, want in_progress", snap.Status)
		}
	})

	t.Run("gateway error reports paymentCaptureFailed", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.charger.failErr = errors.New("gateway timeout")
		id := acceptedBooking(t, env, 2000)

		if _, err := env.svc.CaptureInitial(context.Background(), id); !IsCode(err, CodePaymentCaptureFailed) {
			t.Fatalf("err = %v, want paymentCaptureFailed", err)
		}
	})

	t.Run("elapsed window cancels and reports expiry", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := acceptedBooking(t, env, 2000)
		env.clock.Advance(3*time.Minute + time.Second)

		_, err := env.svc.CaptureInitial(context.Background(), id)
		if !IsCode(err, CodePaymentWindowExpired) {
			t.Fatalf("err = %v, want paymentWindowExpired", err)
		}

		b, _ := env.repo.GetByID(context.Background(), id)
		if b.Status != models.BookingStatusCancelled {
			t.Fatalf("status = %s, want cancelled", b.Status)
		}
		if n := env.charger.stageAttempts(models.StageInitial); n != 0 {
			t.Fatalf("gateway hit %d times after expiry, want 0", n)
		}

		// A second late attempt sees the terminal state.
		if _, err := env.svc.CaptureInitial(context.Background(), id); !IsCode(err, CodeInvalidState) {
			t.Fatalf("late retry: err = %v, want invalidState", err)
		}
	})

	t.Run("cancel landing during the gateway call refunds the capture", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := acceptedBooking(t, env, 2000)

		// The customer cancels after the charge is sent but before its
		// result is persisted. The captured money must come back.
		env.charger.onCharge = func() {
			env.charger.onCharge = nil
			if _, err := env.svc.CancelBooking(context.Background(), id, "cust-1", "changed plans"); err != nil {
				t.Errorf("cancel during capture: %v", err)
			}
		}

		_, err := env.svc.CaptureInitial(context.Background(), id)
		if !IsCode(err, CodeInvalidState) {
			t.Fatalf("err = %v, want invalidState", err)
		}

		b, _ := env.repo.GetByID(context.Background(), id)
		if b.Status != models.BookingStatusCancelled || b.IsInitialPaid {
			t.Fatalf("cancellation must stand: %+v", b)
		}
		if n := env.charger.stageAttempts(models.StageInitial); n != 1 {
			t.Fatalf("gateway hit %d times, want 1", n)
		}
		want := "ch_" + id + "_" + string(models.StageInitial)
		if len(env.charger.refunds) != 1 || env.charger.refunds[0] != want {
			t.Fatalf("refunds = %v, want [%s]", env.charger.refunds, want)
		}
	})

	t.Run("concurrent capture recording is accepted as the same charge", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := acceptedBooking(t, env, 2000)

		// Another instance records the idempotent capture first; losing
		// the version swap is then a no-op, not a refund.
		env.charger.onCharge = func() {
			env.charger.onCharge = nil
			b, err := env.repo.GetByID(context.Background(), id)
			if err != nil {
				t.Errorf("read during capture: %v", err)
				return
			}
			b.Status = models.BookingStatusInProgress
			b.IsInitialPaid = true
			b.InitialChargeRef = "ch_" + id + "_" + string(models.StageInitial)
			b.InitialPaymentExpiresAt = nil
			if err := env.repo.UpdateVersioned(context.Background(), b, b.Version); err != nil {
				t.Errorf("concurrent record: %v", err)
			}
		}

		snap, err := env.svc.CaptureInitial(context.Background(), id)
		if err != nil {
			t.Fatalf("CaptureInitial: %v", err)
		}
		if snap.Status != models.BookingStatusInProgress || !snap.IsInitialPaid {
			t.Fatalf("unexpected state: %+v", snap)
		}
		if len(env.charger.refunds) != 0 {
			t.Fatalf("refunds = %v, the charge was recorded, not stranded", env.charger.refunds)
		}
	})
}

func TestExpireInitialPayment(t *testing.T) {
	t.Parallel()

	t.Run("cancels without refund", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := acceptedBooking(t, env, 2000)
		env.clock.Advance(4 * time.Minute)

		if err := env.svc.ExpireInitialPayment(context.Background(), id); err != nil {
			t.Fatalf("ExpireInitialPayment: %v", err)
		}
		b, _ := env.repo.GetByID(context.Background(), id)
		if b.Status != models.BookingStatusCancelled || b.CancelReason != "initial payment window expired" {
			t.Fatalf("unexpected state: %+v", b)
		}
		if len(env.charger.refunds) != 0 {
			t.Fatal("nothing was captured, nothing to refund")
		}
		if !env.notify.providerGot("prov-a", models.EventBookingCancelled) {
			t.Fatal("provider should hear the job fell through")
		}
	})

	t.Run("stale fire after capture is dropped", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := inProgressBooking(t, env, 2000)
		env.clock.Advance(4 * time.Minute)

		if err := env.svc.ExpireInitialPayment(context.Background(), id); err != nil {
			t.Fatalf("stale fire: %v", err)
		}
		b, _ := env.repo.GetByID(context.Background(), id)
		if b.Status != models.BookingStatusInProgress {
			t.Fatalf("stale fire moved the booking: %+v", b)
		}
	})

	t.Run("fire before the deadline is dropped", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := acceptedBooking(t, env, 2000)

		if err := env.svc.ExpireInitialPayment(context.Background(), id); err != nil {
			t.Fatalf("early fire: %v", err)
		}
		b, _ := env.repo.GetByID(context.Background(), id)
		if b.Status != models.BookingStatusPendingPayment {
			t.Fatalf("early fire moved the booking: %+v", b)
		}
	})
}

func TestMarkJobComplete(t *testing.T) {
	t.Parallel()

	t.Run("opens the completion obligation", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := inProgressBooking(t, env, 2000)

		snap, err := env.svc.MarkJobComplete(context.Background(), id, "prov-a")
		if err != nil {
			t.Fatalf("MarkJobComplete: %v", err)
		}
		if snap.Status != models.BookingStatusAwaitingCompletionPayment {
			t.Fatalf("status = %s", snap.Status)
		}
		if !env.notify.customerGot("cust-1", models.EventJobCompleted) {
			t.Fatal("customer should hear the job is done")
		}

		// Duplicate report is a no-op.
		again, err := env.svc.MarkJobComplete(context.Background(), id, "prov-a")
		if err != nil {
			t.Fatalf("duplicate mark: %v", err)
		}
		if again.Version != snap.Version {
			t.Fatal("duplicate mark must not bump the version")
		}
	})

	t.Run("only the assigned provider may mark", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := inProgressBooking(t, env, 2000)

		if _, err := env.svc.MarkJobComplete(context.Background(), id, "prov-x"); !IsCode(err, CodeInvalidState) {
			t.Fatalf("err = %v, want invalidState", err)
		}
	})

	t.Run("cannot mark before initial payment", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := acceptedBooking(t, env, 2000)

		if _, err := env.svc.MarkJobComplete(context.Background(), id, "prov-a"); !IsCode(err, CodeInvalidState) {
			t.Fatalf("err = %v, want invalidState", err)
		}
	})
}

func TestCaptureCompletion(t *testing.T) {
	t.Parallel()

	t.Run("settles the booking", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := inProgressBooking(t, env, 2000)
		if _, err := env.svc.MarkJobComplete(context.Background(), id, "prov-a"); err != nil {
			t.Fatalf("mark complete: %v", err)
		}

		snap, err := env.svc.CaptureCompletion(context.Background(), id)
		if err != nil {
			t.Fatalf("CaptureCompletion: %v", err)
		}
		if snap.Status != models.BookingStatusCompleted || !snap.IsCompletionPaid {
			t.Fatalf("unexpected state: %+v", snap)
		}
		last := env.charger.attempts[len(env.charger.attempts)-1]
		if last.Stage != models.StageCompletion || last.Amount != 1500 {
			t.Fatalf("charged %+v, want completion/1500", last)
		}
		if !env.notify.customerGot("cust-1", models.EventBookingSettled) ||
			!env.notify.providerGot("prov-a", models.EventBookingSettled) {
			t.Fatal("both parties should hear about settlement")
		}

		// Racing duplicate sees the paid flag and never reaches the gateway.
		if _, err := env.svc.CaptureCompletion(context.Background(), id); err != nil {
			t.Fatalf("duplicate completion capture: %v", err)
		}
		if n := env.charger.stageAttempts(models.StageCompletion); n != 1 {
			t.Fatalf("gateway hit %d times, want 1", n)
		}
	})

	t.Run("requires the job to be marked complete", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := inProgressBooking(t, env, 2000)

		if _, err := env.svc.CaptureCompletion(context.Background(), id); !IsCode(err, CodeInvalidState) {
			t.Fatalf("err = %v, want invalidState", err)
		}
	})

	t.Run("cancel landing during the gateway call refunds the capture", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := inProgressBooking(t, env, 2000)
		if _, err := env.svc.MarkJobComplete(context.Background(), id, "prov-a"); err != nil {
			t.Fatalf("mark complete: %v", err)
		}

		env.charger.onCharge = func() {
			env.charger.onCharge = nil
			if _, err := env.svc.CancelBooking(context.Background(), id, "cust-1", "dispute"); err != nil {
				t.Errorf("cancel during capture: %v", err)
			}
		}

		_, err := env.svc.CaptureCompletion(context.Background(), id)
		if !IsCode(err, CodeInvalidState) {
			t.Fatalf("err = %v, want invalidState", err)
		}

		b, _ := env.repo.GetByID(context.Background(), id)
		if b.Status != models.BookingStatusCancelled || b.IsCompletionPaid {
			t.Fatalf("cancellation must stand: %+v", b)
		}
		// The cancel refunds the initial installment, the stranded
		// completion charge comes back as well.
		wantCompletion := "ch_" + id + "_" + string(models.StageCompletion)
		if len(env.charger.refunds) != 2 || env.charger.refunds[1] != wantCompletion {
			t.Fatalf("refunds = %v, want initial then %s", env.charger.refunds, wantCompletion)
		}
	})
}

func TestCancelBooking(t *testing.T) {
	t.Parallel()

	t.Run("before initial payment refunds nothing", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := acceptedBooking(t, env, 2000)

		snap, err := env.svc.CancelBooking(context.Background(), id, "cust-1", "changed my mind")
		if err != nil {
			t.Fatalf("CancelBooking: %v", err)
		}
		if snap.Status != models.BookingStatusCancelled || snap.CancelReason != "changed my mind" {
			t.Fatalf("unexpected state: %+v", snap)
		}
		if snap.OfferExpiresAt != nil || snap.InitialPaymentExpiresAt != nil {
			t.Fatal("cancellation must clear every deadline")
		}
		if len(env.charger.refunds) != 0 {
			t.Fatal("no capture happened, no refund expected")
		}
	})

	t.Run("after initial payment refunds the installment", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := inProgressBooking(t, env, 2000)

		if _, err := env.svc.CancelBooking(context.Background(), id, "cust-1", ""); err != nil {
			t.Fatalf("CancelBooking: %v", err)
		}
		if len(env.charger.refunds) != 1 {
			t.Fatalf("refunds = %v, want exactly one", env.charger.refunds)
		}
	})

	t.Run("duplicate cancel is a no-op", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := acceptedBooking(t, env, 2000)

		if _, err := env.svc.CancelBooking(context.Background(), id, "cust-1", "x"); err != nil {
			t.Fatalf("first cancel: %v", err)
		}
		snap, err := env.svc.CancelBooking(context.Background(), id, "cust-1", "x")
		if err != nil {
			t.Fatalf("duplicate cancel: %v", err)
		}
		if snap.Status != models.BookingStatusCancelled {
			t.Fatalf("status = %s", snap.Status)
		}
	})

	t.Run("completed booking cannot be cancelled", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		id := inProgressBooking(t, env, 2000)
		if _, err := env.svc.MarkJobComplete(context.Background(), id, "prov-a"); err != nil {
			t.Fatalf("mark complete: %v", err)
		}
		if _, err := env.svc.CaptureCompletion(context.Background(), id); err != nil {
			t.Fatalf("capture completion: %v", err)
		}

		if _, err := env.svc.CancelBooking(context.Background(), id, "cust-1", ""); !IsCode(err, CodeInvalidState) {
			t.Fatalf("err = %v, want invalidState", err)
		}
	})
}
