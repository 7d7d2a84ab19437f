package models

import "time"

// Push event types emitted by the orchestrator. Delivery is best-effort;
// the reconciliation poller is the guaranteed convergence path.
const (
	EventOfferReceived     = "offer_received"
	EventBookingAccepted   = "booking_accepted"
	EventBookingReassigned = "booking_reassigned"
	EventBookingCancelled  = "booking_cancelled"
	EventPaymentDue        = "payment_due"
	EventPaymentReceived   = "payment_received"
	EventJobCompleted      = "job_completed"
	EventBookingSettled    = "booking_settled"
)

// Recipient roles for push delivery.
const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
)

// DeviceToken links an account to its FCM registration token.
type DeviceToken struct {
	OwnerID   string    `bson:"owner_id" json:"ownerId"`
	Role      string    `bson:"role" json:"role"` // "customer" or "provider"
	FCMToken  string    `bson:"fcm_token" json:"fcmToken"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
