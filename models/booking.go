package models

import "time"

// BookingStatus enumerates the booking lifecycle.
type BookingStatus string

const (
	BookingStatusDraft                      BookingStatus = "draft"
	BookingStatusAwaitingResponse           BookingStatus = "awaiting_response"
	BookingStatusPendingPayment             BookingStatus = "pending_payment"
	BookingStatusInProgress                 BookingStatus = "in_progress"
	BookingStatusAwaitingCompletionPayment  BookingStatus = "awaiting_completion_payment"
	BookingStatusCompleted                  BookingStatus = "completed"
	BookingStatusCancelled                  BookingStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// BookingSchedule captures the requested service time.
type BookingSchedule struct {
	Date  string `bson:"date" json:"date"`   // "YYYY-MM-DD"
	Start int    `bson:"start" json:"start"` // minutes from midnight
	Hours int    `bson:"hours" json:"hours"` // billed hours for time-billed services, 0 otherwise
}

// Booking is the single source of truth for one service request.
// All mutations go through the orchestrator with a compare-and-swap on Version.
type Booking struct {
	ID          string `bson:"id" json:"id"`
	CustomerID  string `bson:"customer_id" json:"customerId"`
	ServiceName string `bson:"service_name" json:"serviceName"`

	// CurrentProviderID holds the provider of the active offer (or, once
	// accepted, the assigned provider). Empty before the first offer and
	// between reassignments.
	CurrentProviderID   string   `bson:"current_provider_id,omitempty" json:"currentProviderId,omitempty"`
	RejectedProviderIDs []string `bson:"rejected_provider_ids" json:"rejectedProviderIds"`

	Status       BookingStatus `bson:"status" json:"status"`
	CancelReason string        `bson:"cancel_reason,omitempty" json:"cancelReason,omitempty"`

	TotalPrice           float64 `bson:"total_price" json:"totalPrice"`
	InitialPaymentAmount float64 `bson:"initial_payment_amount" json:"initialPaymentAmount"`
	CompletionAmount     float64 `bson:"completion_amount" json:"completionAmount"`
	PaymentMethod        string  `bson:"payment_method" json:"paymentMethod"` // "card" or "cash"

	IsInitialPaid    bool   `bson:"is_initial_paid" json:"isInitialPaid"`
	IsCompletionPaid bool   `bson:"is_completion_paid" json:"isCompletionPaid"`
	InitialChargeRef string `bson:"initial_charge_ref,omitempty" json:"-"`
	FinalChargeRef   string `bson:"final_charge_ref,omitempty" json:"-"`

	Schedule BookingSchedule `bson:"schedule" json:"schedule"`
	Details  ServiceDetails  `bson:"details" json:"details"`

	// At most one of these deadlines is set at any instant.
	OfferExpiresAt          *time.Time `bson:"offer_expires_at,omitempty" json:"offerExpiresAt,omitempty"`
	InitialPaymentExpiresAt *time.Time `bson:"initial_payment_expires_at,omitempty" json:"initialPaymentExpiresAt,omitempty"`

	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasRejected reports whether the provider already declined or timed out
// on this booking.
func (b *Booking) HasRejected(providerID string) bool {
	for _, id := range b.RejectedProviderIDs {
		if id == providerID {
			return true
		}
	}
	return false
}

// BookingSnapshot is the client-facing projection of a booking. Countdowns
// are derived from the stored deadlines at read time, never decremented
// client-side.
type BookingSnapshot struct {
	BookingID           string        `json:"bookingId"`
	CustomerID          string        `json:"customerId"`
	CurrentProviderID   string        `json:"currentProviderId,omitempty"`
	RejectedProviderIDs []string      `json:"rejectedProviderIds"`
	Status              BookingStatus `json:"status"`
	CancelReason        string        `json:"cancelReason,omitempty"`

	TotalPrice           float64 `json:"totalPrice"`
	InitialPaymentAmount float64 `json:"initialPaymentAmount"`
	CompletionAmount     float64 `json:"completionAmount"`
	IsInitialPaid        bool    `json:"isInitialPaid"`
	IsCompletionPaid     bool    `json:"isCompletionPaid"`

	OfferExpiresAt          *time.Time `json:"offerExpiresAt,omitempty"`
	InitialPaymentExpiresAt *time.Time `json:"initialPaymentExpiresAt,omitempty"`
	OfferSecondsLeft        int64      `json:"offerSecondsLeft"`
	PaymentSecondsLeft      int64      `json:"paymentSecondsLeft"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OfferOutcome is a provider's answer to an open offer.
type OfferOutcome string

const (
	OfferAccepted OfferOutcome = "accept"
	OfferRejected OfferOutcome = "reject"
)
