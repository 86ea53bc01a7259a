package engine

import (
	"context"
	"time"

	"venuepilot/models"

	"go.uber.org/zap"
)

// Detector classifies an inbound message against the current step, using
// the packet's anchor to resolve short replies. Implementations must return
// RouteAmbiguous rather than guess when no anchor exists.
type Detector interface {
	Detect(ctx context.Context, packet models.ContextPacket) (models.RouteResult, error)
}

// Extractor turns a message plus existing facts into a delta: only fields
// the message newly asserts, never a guessed complete record.
type Extractor interface {
	Extract(ctx context.Context, packet models.ContextPacket) (models.EventDelta, error)
}

// Polisher optionally rephrases template output. Factual fields must
// survive verbatim; the verbalizer validates that and falls back to the
// template when they don't.
type Polisher interface {
	Polish(ctx context.Context, text string, language string) (string, error)
}

// Notifier delivers manager-facing alerts.
type Notifier interface {
	NotifySoftConflict(ctx context.Context, held, incoming models.RoomClaim) error
	NotifyAmbiguous(ctx context.Context, eventID, message string) error
	NotifyExtractionConflict(ctx context.Context, eventID, detail string) error
	NotifyUnmatched(ctx context.Context, msg models.UnmatchedMessage) error
}

// Deliverer hands an approved turn to the email transport. Called exactly
// once per turn, guarded by the HIL gate's CAS.
type Deliverer interface {
	EnqueueDelivery(ctx context.Context, turnID string) error
}

// withRetries runs an idempotent provider call with bounded retries on
// ProviderFailure. Ambiguous or low-confidence output is never retried;
// that is routed to HIL instead.
func withRetries[T any](ctx context.Context, log *zap.Logger, maxRetries int, name string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
			log.Warn("retrying provider call",
				zap.String("call", name),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
		}
		out, err := call(ctx)
		if err == nil {
			return out, nil
		}
		if !IsProviderFailure(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}
