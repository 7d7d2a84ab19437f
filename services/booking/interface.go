package booking

import (
	"context"
	"time"

	"homely/clock"
	bookingRepo "homely/database/repository/booking"
	providerRepo "homely/database/repository/provider"
	"homely/models"
	"homely/services/notification"
	"homely/services/payment"

	"go.uber.org/zap"
)

// CreateBookingInput is the customer-facing request to start a booking.
type CreateBookingInput struct {
	CustomerID    string                 `json:"customerId"`
	ServiceName   string                 `json:"serviceName"`
	ProviderID    string                 `json:"providerId"`
	TotalPrice    float64                `json:"totalPrice"`
	PaymentMethod string                 `json:"paymentMethod"`
	Schedule      models.BookingSchedule `json:"schedule"`
	Details       models.ServiceDetails  `json:"details"`
}

// BookingService drives a booking through its lifecycle. All mutating
// operations on one booking serialize through a compare-and-swap on the
// record's version; duplicate deliveries of the same logical transition
// converge on one outcome.
type BookingService interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (*models.BookingSnapshot, error)
	ResolveOffer(ctx context.Context, bookingID, providerID string, outcome models.OfferOutcome) (*models.BookingSnapshot, error)
	CaptureInitial(ctx context.Context, bookingID string) (*models.BookingSnapshot, error)
	MarkJobComplete(ctx context.Context, bookingID, providerID string) (*models.BookingSnapshot, error)
	CaptureCompletion(ctx context.Context, bookingID string) (*models.BookingSnapshot, error)
	CancelBooking(ctx context.Context, bookingID, cancelledBy, reason string) (*models.BookingSnapshot, error)
	GetBookingSnapshot(ctx context.Context, bookingID string) (*models.BookingSnapshot, error)
	ListCustomerBookings(ctx context.Context, customerID string) ([]models.BookingSnapshot, error)

	// Timer callbacks. Both are idempotent: a fire against a superseded
	// state is detected and dropped.
	ExpireOffer(ctx context.Context, bookingID, providerID string) error
	ExpireInitialPayment(ctx context.Context, bookingID string) error
}

// TimerScheduler registers expiry callbacks for the two booking windows.
type TimerScheduler interface {
	ScheduleOfferExpiry(bookingID, providerID string, fireAt time.Time) error
	ScheduleInitialPaymentExpiry(bookingID string, fireAt time.Time) error
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Repo      bookingRepo.BookingRepository
	Directory providerRepo.ProviderDirectory
	Charger   payment.Charger
	Notifier  notification.NotificationService
	Timers    TimerScheduler
	Clock     clock.Clock
	Logger    *zap.Logger

	// Cache is optional; when set, snapshots are served through a
	// version-guarded cache so reconciliation polls do not hit Mongo
	// every tick.
	Cache    SnapshotCache
	CacheTTL time.Duration

	OfferWindow          time.Duration
	InitialPaymentWindow time.Duration
	Currency             string
}
