package payment

import (
	"context"

	"homely/models"
)

// Charger is the payment-capture collaborator. The orchestrator decides
// when a charge is attempted and for how much; execution (card networks,
// wallets) lives behind this interface.
type Charger interface {
	Charge(ctx context.Context, req models.ChargeRequest) (*models.ChargeResult, error)
	// Refund reverses an earlier capture identified by its reference.
	Refund(ctx context.Context, reference string, amount float64) error
}
