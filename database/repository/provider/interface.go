package providerRepo

import (
	"context"

	"homely/models"
)

// ProviderDirectory is the external directory contract consumed by the
// reassignment selector. Implementations must return a stable ordering for
// identical inputs so tie-breaks stay deterministic.
type ProviderDirectory interface {
	FindProviders(ctx context.Context, serviceName string) ([]models.ProviderQuote, error)
}
