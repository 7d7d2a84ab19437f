package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"homely/config"
	"homely/services/booking"
	"homely/services/tasks"

	"github.com/hibiken/asynq"
)

// InitTimerWorker runs the async timer worker in background. Fired tasks
// call back into the orchestrator; a fire against a superseded state is a
// no-op there, so at-least-once delivery from the queue is safe.
func InitTimerWorker(svc booking.BookingService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTimerQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeOfferExpire, handleOfferExpiry(svc))
	mux.HandleFunc(tasks.TypeInitialPaymentExpire, handlePaymentExpiry(svc))

	// Start async worker with retry logic
	go func() {
		log.Println("[TimerWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[TimerWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[TimerWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleOfferExpiry(svc booking.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.OfferExpiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[TimerWorker] invalid offer expiry payload: %v", err)
			return err
		}
		return svc.ExpireOffer(ctx, p.BookingID, p.ProviderID)
	}
}

func handlePaymentExpiry(svc booking.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.PaymentExpiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[TimerWorker] invalid payment expiry payload: %v", err)
			return err
		}
		return svc.ExpireInitialPayment(ctx, p.BookingID)
	}
}
