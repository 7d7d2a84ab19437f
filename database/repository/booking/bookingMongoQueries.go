package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"homely/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListDeadlinesPassed finds bookings whose active window has elapsed. The
// sweep re-applies the same transitions a timer callback would, so a match
// here is only a candidate: the versioned update decides the winner.
func (repo *MongoBookingRepo) ListDeadlinesPassed(ctx context.Context, now time.Time) ([]models.Booking, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"$or": bson.A{
			bson.M{
				"status":           models.BookingStatusAwaitingResponse,
				"offer_expires_at": bson.M{"$lte": now},
			},
			bson.M{
				"status":                     models.BookingStatusPendingPayment,
				"initial_payment_expires_at": bson.M{"$lte": now},
			},
		},
	}

	cursor, err := repo.coll.Find(ctxWithTimeout, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing expired bookings: %w", err)
	}
	defer cursor.Close(ctxWithTimeout)

	var bookings []models.Booking
	if err := cursor.All(ctxWithTimeout, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding expired bookings: %w", err)
	}
	return bookings, nil
}

// ListByCustomer returns all bookings belonging to one customer, most
// recent first.
func (repo *MongoBookingRepo) ListByCustomer(ctx context.Context, customerID string) ([]models.Booking, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := repo.coll.Find(ctxWithTimeout, bson.M{"customer_id": customerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings for customer %s: %w", customerID, err)
	}
	defer cursor.Close(ctxWithTimeout)

	var bookings []models.Booking
	if err := cursor.All(ctxWithTimeout, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings for customer %s: %w", customerID, err)
	}
	return bookings, nil
}
