package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"venuepilot/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task type for manager alerts, consumed by the background worker.
const TypeManagerAlert = "notify:manager"

// AlertPayload is the JSON payload of a manager alert task.
type AlertPayload struct {
	Kind    string `json:"kind"` // soft_conflict | ambiguous | extraction_conflict | unmatched
	EventID string `json:"event_id,omitempty"`
	Message string `json:"message"`

	// Two-sided claim info for conflicts.
	HeldClaim     *models.RoomClaim `json:"held_claim,omitempty"`
	IncomingClaim *models.RoomClaim `json:"incoming_claim,omitempty"`
}

// DefaultNotificationService enqueues manager alerts on the task queue.
type DefaultNotificationService struct {
	Queue *asynq.Client
	Log   *zap.Logger
}

func (s *DefaultNotificationService) enqueue(payload AlertPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}
	task := asynq.NewTask(TypeManagerAlert, data)
	if _, err := s.Queue.Enqueue(task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("failed to enqueue manager alert: %w", err)
	}
	s.log().Info("manager alert queued",
		zap.String("kind", payload.Kind), zap.String("event", payload.EventID))
	return nil
}

func (s *DefaultNotificationService) NotifySoftConflict(ctx context.Context, held, incoming models.RoomClaim) error {
	return s.enqueue(AlertPayload{
		Kind: "soft_conflict",
		Message: fmt.Sprintf("room %s on %s is optioned by two clients; pick one",
			held.RoomID, held.Date),
		HeldClaim:     &held,
		IncomingClaim: &incoming,
	})
}

func (s *DefaultNotificationService) NotifyAmbiguous(ctx context.Context, eventID, message string) error {
	return s.enqueue(AlertPayload{Kind: "ambiguous", EventID: eventID, Message: message})
}

func (s *DefaultNotificationService) NotifyExtractionConflict(ctx context.Context, eventID, detail string) error {
	return s.enqueue(AlertPayload{Kind: "extraction_conflict", EventID: eventID, Message: detail})
}

func (s *DefaultNotificationService) NotifyUnmatched(ctx context.Context, msg models.UnmatchedMessage) error {
	return s.enqueue(AlertPayload{
		Kind:    "unmatched",
		Message: fmt.Sprintf("unassigned inbound mail from %s: %s", msg.From, msg.Subject),
	})
}

func (s *DefaultNotificationService) log() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.L()
}
