package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task type for outbound delivery. One task per approved turn; the HIL
// gate's CAS guarantees a turn is enqueued at most once.
const TypeMailDeliver = "mail:deliver"

// DeliverPayload is the JSON payload of a delivery task.
type DeliverPayload struct {
	TurnID string `json:"turn_id"`
}

// AsynqDeliverer implements the engine's Deliverer boundary by queueing
// delivery tasks.
type AsynqDeliverer struct {
	Queue *asynq.Client
	Log   *zap.Logger
}

func (d *AsynqDeliverer) EnqueueDelivery(ctx context.Context, turnID string) error {
	data, err := json.Marshal(DeliverPayload{TurnID: turnID})
	if err != nil {
		return fmt.Errorf("failed to marshal delivery payload: %w", err)
	}
	task := asynq.NewTask(TypeMailDeliver, data)
	if _, err := d.Queue.Enqueue(task, asynq.MaxRetry(10), asynq.Queue("mail")); err != nil {
		return fmt.Errorf("failed to enqueue delivery for turn %s: %w", turnID, err)
	}
	d.log().Info("delivery queued", zap.String("turn", turnID))
	return nil
}

func (d *AsynqDeliverer) log() *zap.Logger {
	if d.Log != nil {
		return d.Log
	}
	return zap.L()
}
