package booking

import (
	"context"
	"time"

	"homely/models"

	"go.uber.org/zap"
)

const (
	directoryAttempts    = 3
	directoryBackoffBase = 100 * time.Millisecond
	directoryBackoffCap  = 1 * time.Second
)

// selectNext asks the provider directory for candidates and returns the
// first one not already in the booking's rejected set, or nil when the
// pool is exhausted. The directory returns quotes ordered cheapest-first
// with deterministic tie-breaks, so the selector only filters.
func (s *DefaultBookingService) selectNext(ctx context.Context, b *models.Booking) (*models.ProviderQuote, error) {
	var quotes []models.ProviderQuote
	var err error

	backoff := directoryBackoffBase
	for attempt := 1; attempt <= directoryAttempts; attempt++ {
		quotes, err = s.Directory.FindProviders(ctx, b.ServiceName)
		if err == nil {
			break
		}
		s.Logger.Warn("provider directory lookup failed",
			zap.String("booking", b.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == directoryAttempts {
			return nil, NewBookingError(CodeExternalService,
				"provider directory unavailable for booking %s: %v", b.ID, err)
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > directoryBackoffCap {
			backoff = directoryBackoffCap
		}
	}

	for i := range quotes {
		if !b.HasRejected(quotes[i].ProviderID) {
			return &quotes[i], nil
		}
	}
	return nil, nil
}
