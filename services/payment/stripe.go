package payment

import (
	"context"
	"fmt"
	"math"

	"homely/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"go.uber.org/zap"
)

// StripeCharger captures staged payments through Stripe PaymentIntents.
// Each (booking, stage) pair maps to one idempotency key, so a retried
// capture can never charge twice on the processor side either.
type StripeCharger struct {
	Logger *zap.Logger
}

func NewStripeCharger(logger *zap.Logger) *StripeCharger {
	return &StripeCharger{Logger: logger}
}

func (s *StripeCharger) Charge(ctx context.Context, req models.ChargeRequest) (*models.ChargeResult, error) {
	if req.Method == "cash" {
		// Cash is collected in person; record the obligation only.
		ref := fmt.Sprintf("cash_%s_%s", req.BookingID, req.Stage)
		s.Logger.Info("Cash payment recorded",
			zap.String("booking", req.BookingID), zap.String("stage", string(req.Stage)))
		return &models.ChargeResult{Success: true, Reference: ref}, nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(req.Amount * 100))),
		Currency: stripe.String(req.Currency),
		Confirm:  stripe.Bool(true),
		Params: stripe.Params{
			Context: ctx,
			Metadata: map[string]string{
				"booking_id":  req.BookingID,
				"customer_id": req.CustomerID,
				"stage":       string(req.Stage),
			},
		},
	}
	params.SetIdempotencyKey(fmt.Sprintf("%s:%s", req.BookingID, req.Stage))

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe charge for booking %s (%s) failed: %w", req.BookingID, req.Stage, err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		s.Logger.Warn("Stripe payment intent not settled",
			zap.String("booking", req.BookingID),
			zap.String("intent", pi.ID),
			zap.String("status", string(pi.Status)))
		return &models.ChargeResult{Success: false, Reference: pi.ID}, nil
	}

	s.Logger.Info("Stripe payment captured",
		zap.String("booking", req.BookingID),
		zap.String("intent", pi.ID),
		zap.Float64("amount", req.Amount))
	return &models.ChargeResult{Success: true, Reference: pi.ID}, nil
}

func (s *StripeCharger) Refund(ctx context.Context, reference string, amount float64) error {
	if reference == "" {
		return fmt.Errorf("cannot refund without a charge reference")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(reference),
		Amount:        stripe.Int64(int64(math.Round(amount * 100))),
		Params:        stripe.Params{Context: ctx},
	}
	params.SetIdempotencyKey("refund:" + reference)

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("stripe refund for %s failed: %w", reference, err)
	}
	s.Logger.Info("Stripe refund issued", zap.String("reference", reference), zap.Float64("amount", amount))
	return nil
}
