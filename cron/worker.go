package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"venuepilot/config"
	eventRepo "venuepilot/database/repository/event"
	"venuepilot/models"
	"venuepilot/services/engine"
	"venuepilot/services/mailer"
	"venuepilot/services/notification"
	"venuepilot/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeCloseStale = "events:close_stale"

// InitWorkers runs the asynq worker and the periodic scheduler in the
// background: mail delivery, manager alerts and the staleness sweep.
func InitWorkers(delivery *mailer.DeliveryWorker, events eventRepo.EventRepository, resolver *engine.ConflictResolver) {
	redisOpts := utils.QueueRedisOpt()

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"mail":    2,
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(mailer.TypeMailDeliver, delivery.HandleDeliver)
	mux.HandleFunc(notification.TypeManagerAlert, handleManagerAlert)
	mux.HandleFunc(TypeCloseStale, handleCloseStale(events, resolver))

	go func() {
		log.Println("[Worker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[Worker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[Worker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()

	scheduler := asynq.NewScheduler(redisOpts, nil)
	if _, err := scheduler.Register("@daily", asynq.NewTask(TypeCloseStale, nil)); err != nil {
		log.Printf("[Worker] failed to register staleness sweep: %v", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Printf("[Worker] scheduler stopped: %v", err)
		}
	}()
}

// handleManagerAlert surfaces queued alerts on the manager log channel.
// A real deployment would fan out to email or chat here.
func handleManagerAlert(ctx context.Context, t *asynq.Task) error {
	var payload notification.AlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	utils.GetLogger().Warn("MANAGER ALERT",
		zap.String("kind", payload.Kind),
		zap.String("event", payload.EventID),
		zap.String("message", payload.Message))
	return nil
}

// handleCloseStale cancels conversations with no inbound activity beyond
// the configured window. The window is deployment policy, not engine
// logic.
func handleCloseStale(events eventRepo.EventRepository, resolver *engine.ConflictResolver) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		logger := utils.GetLogger()
		cutoff := time.Now().AddDate(0, 0, -config.AppConfig.StaleAfterDays)

		stale, err := events.ListStale(ctx, cutoff)
		if err != nil {
			return err
		}
		for i := range stale {
			ev := &stale[i]
			if err := resolver.ReleaseEvent(ctx, ev.ID); err != nil {
				logger.Error("failed to release claims of stale event",
					zap.String("event", ev.ID), zap.Error(err))
				continue
			}
			ev.Status = models.StatusCancelled
			if err := events.Update(ctx, ev); err != nil {
				logger.Error("failed to close stale event",
					zap.String("event", ev.ID), zap.Error(err))
				continue
			}
			logger.Info("closed stale conversation", zap.String("event", ev.ID))
		}
		return nil
	}
}
