package bookingRepo

import (
	"context"
	"errors"
	"time"

	"homely/models"
)

var (
	// ErrNotFound is returned when no booking matches the given ID.
	ErrNotFound = errors.New("booking not found")
	// ErrVersionConflict is returned when a versioned update loses the
	// compare-and-swap; the caller must re-read and re-evaluate.
	ErrVersionConflict = errors.New("booking version conflict")
)

// BookingRepository is the durable Booking Record Store. Updates are
// optimistic: UpdateVersioned only commits if the stored version still
// matches the version the caller read.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
	// UpdateVersioned persists the booking if its stored version equals
	// expectedVersion, bumping the version by one. Returns
	// ErrVersionConflict when another writer got there first.
	UpdateVersioned(ctx context.Context, booking *models.Booking, expectedVersion int64) error
	// ListDeadlinesPassed returns bookings whose active offer or initial
	// payment window expired at or before now. Used by the sweep.
	ListDeadlinesPassed(ctx context.Context, now time.Time) ([]models.Booking, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.Booking, error)
	EnsureIndexes(ctx context.Context) error
}
