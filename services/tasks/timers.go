package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types handled by the timer worker.
const (
	TypeOfferExpire          = "booking:offer:expire"
	TypeInitialPaymentExpire = "booking:payment:initial:expire"
)

// OfferExpiryPayload identifies the offer a timer fire targets. The
// provider ID lets the handler detect a stale fire: if the booking has
// moved on, the fire no-ops.
type OfferExpiryPayload struct {
	BookingID  string `json:"bookingId"`
	ProviderID string `json:"providerId"`
}

// PaymentExpiryPayload identifies the initial-payment window being closed.
type PaymentExpiryPayload struct {
	BookingID string `json:"bookingId"`
}

func NewOfferExpiryTask(bookingID, providerID string, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(OfferExpiryPayload{BookingID: bookingID, ProviderID: providerID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeOfferExpire, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt), asynq.MaxRetry(3)}
	return task, opts, nil
}

func NewInitialPaymentExpiryTask(bookingID string, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(PaymentExpiryPayload{BookingID: bookingID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeInitialPaymentExpire, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt), asynq.MaxRetry(3)}
	return task, opts, nil
}

// TimerClient schedules expiry callbacks on the asynq queue. Fired tasks
// call back into the orchestrator, whose versioned updates make a
// superseded timer harmless.
type TimerClient struct {
	Client *asynq.Client
}

func NewTimerClient(client *asynq.Client) *TimerClient {
	return &TimerClient{Client: client}
}

func (t *TimerClient) ScheduleOfferExpiry(bookingID, providerID string, fireAt time.Time) error {
	task, opts, err := NewOfferExpiryTask(bookingID, providerID, fireAt)
	if err != nil {
		return fmt.Errorf("failed to build offer expiry task: %w", err)
	}
	if _, err := t.Client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue offer expiry for booking %s: %w", bookingID, err)
	}
	return nil
}

func (t *TimerClient) ScheduleInitialPaymentExpiry(bookingID string, fireAt time.Time) error {
	task, opts, err := NewInitialPaymentExpiryTask(bookingID, fireAt)
	if err != nil {
		return fmt.Errorf("failed to build payment expiry task: %w", err)
	}
	if _, err := t.Client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue payment expiry for booking %s: %w", bookingID, err)
	}
	return nil
}
