package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	clientRepo "venuepilot/database/repository/client"
	eventRepo "venuepilot/database/repository/event"
	turnRepo "venuepilot/database/repository/turn"
	"venuepilot/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Transport is the actual email sending boundary (SMTP relay, provider
// API). Implementations live outside the engine; LogTransport is the
// development default.
type Transport interface {
	Send(ctx context.Context, to string, turn models.ConversationTurn) error
}

// LogTransport logs outbound mail instead of sending it.
type LogTransport struct {
	Log *zap.Logger
}

func (t *LogTransport) Send(ctx context.Context, to string, turn models.ConversationTurn) error {
	t.Log.Info("outbound mail",
		zap.String("to", to),
		zap.String("turn", turn.ID),
		zap.String("subject", turn.Subject),
		zap.Int("attachment_bytes", len(turn.Attachment)))
	return nil
}

// DeliveryWorker consumes delivery tasks and pushes sent turns out through
// the transport.
type DeliveryWorker struct {
	Turns     turnRepo.TurnRepository
	Events    eventRepo.EventRepository
	Clients   clientRepo.ClientRepository
	Transport Transport
	Log       *zap.Logger
}

// HandleDeliver processes one delivery task. Only turns in sent state go
// out; drafts or discarded turns are a bug upstream and are skipped.
func (w *DeliveryWorker) HandleDeliver(ctx context.Context, t *asynq.Task) error {
	var payload DeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid delivery payload: %w", err)
	}

	turn, err := w.Turns.GetByID(ctx, payload.TurnID)
	if err != nil {
		return err
	}
	if turn.Status != models.TurnSent {
		w.Log.Warn("skipping delivery of turn not in sent state",
			zap.String("turn", turn.ID), zap.String("status", string(turn.Status)))
		return nil
	}

	ev, err := w.Events.GetByID(ctx, turn.EventID)
	if err != nil {
		return err
	}
	client, err := w.Clients.GetByID(ctx, ev.ClientID)
	if err != nil {
		return err
	}

	if err := w.Transport.Send(ctx, client.Email, *turn); err != nil {
		return fmt.Errorf("transport send failed for turn %s: %w", turn.ID, err)
	}
	w.Log.Info("turn delivered", zap.String("turn", turn.ID), zap.String("to", client.Email))
	return nil
}
