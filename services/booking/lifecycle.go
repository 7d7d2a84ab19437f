package booking

import "homely/models"

// transitions lists every legal state change. Anything not present here is
// rejected with an invalidState error before any side effect runs.
var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingStatusDraft: {
		models.BookingStatusAwaitingResponse,
	},
	models.BookingStatusAwaitingResponse: {
		models.BookingStatusAwaitingResponse, // reassignment to a new provider
		models.BookingStatusPendingPayment,   // provider accepted
		models.BookingStatusCancelled,        // no candidates left, or explicit cancel
	},
	models.BookingStatusPendingPayment: {
		models.BookingStatusInProgress, // initial payment captured
		models.BookingStatusCancelled,  // window expired or explicit cancel
	},
	models.BookingStatusInProgress: {
		models.BookingStatusAwaitingCompletionPayment, // provider marked complete
		models.BookingStatusCancelled,                 // explicit cancel
	},
	models.BookingStatusAwaitingCompletionPayment: {
		models.BookingStatusCompleted, // completion payment captured
		models.BookingStatusCancelled, // explicit cancel
	},
}

// canTransition reports whether from -> to is a legal lifecycle move.
func canTransition(from, to models.BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves b to the given status, failing on an illegal move.
func transition(b *models.Booking, to models.BookingStatus) error {
	if !canTransition(b.Status, to) {
		return NewBookingError(CodeInvalidState,
			"booking %s cannot move from %s to %s", b.ID, b.Status, to)
	}
	b.Status = to
	return nil
}
