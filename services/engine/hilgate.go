package engine

import (
	"context"
	"fmt"
	"time"

	eventRepo "venuepilot/database/repository/event"
	turnRepo "venuepilot/database/repository/turn"
	"venuepilot/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HILGate owns the draft -> sent/discarded transition of outbound turns.
// While HIL is required, every AI-authored turn passes through Approve; no
// other path sends a draft. Transitions are one-way and exactly-once: the
// repo's status-filtered update is the CAS, a duplicate approval matches
// nothing and becomes a no-op.
type HILGate struct {
	Turns     turnRepo.TurnRepository
	Events    eventRepo.EventRepository
	Deliverer Deliverer
	Policy    Policy
	Log       *zap.Logger
}

// Submit stores an AI-authored outbound turn as a draft. When the HIL
// policy is off it is approved immediately through the same gate, so the
// exactly-once guarantee holds either way.
func (g *HILGate) Submit(ctx context.Context, eventID string, r Rendered, attachment []byte, attachmentName string) (*models.ConversationTurn, error) {
	turn := &models.ConversationTurn{
		ID:             uuid.New().String(),
		EventID:        eventID,
		Direction:      models.DirectionOutbound,
		Status:         models.TurnDraft,
		Author:         models.AuthorAI,
		RawText:        r.Text,
		Question:       r.Question,
		Attachment:     attachment,
		AttachmentName: attachmentName,
	}
	if err := g.Turns.Insert(ctx, turn); err != nil {
		return nil, err
	}
	g.log().Debug("draft submitted", zap.String("turn", turn.ID), zap.String("event", eventID))

	if !g.Policy.HILRequired {
		if err := g.Approve(ctx, turn.ID, ""); err != nil {
			return nil, err
		}
	}
	return turn, nil
}

// Approve transitions the draft to sent and enqueues delivery. An edited
// text from the manager replaces the draft before the transition and does
// not re-trigger generation. Approving an already-approved turn does
// nothing.
func (g *HILGate) Approve(ctx context.Context, turnID, editedText string) error {
	turn, err := g.Turns.GetByID(ctx, turnID)
	if err != nil {
		return err
	}

	finalText := turn.RawText
	if editedText != "" {
		finalText = editedText
	}

	sent, err := g.Turns.MarkSent(ctx, turnID, finalText)
	if err != nil {
		return err
	}
	if !sent {
		// Already sent or discarded; exactly-once means this is a no-op.
		g.log().Info("duplicate approval ignored", zap.String("turn", turnID))
		return nil
	}

	if err := g.Deliverer.EnqueueDelivery(ctx, turnID); err != nil {
		// A sent turn with no queued task would never reach the client.
		// Put it back in draft so the manager can approve again.
		if _, revertErr := g.Turns.RevertToDraft(ctx, turnID); revertErr != nil {
			g.log().Error("failed to revert undeliverable turn",
				zap.String("turn", turnID), zap.Error(revertErr))
		}
		g.log().Error("failed to enqueue delivery", zap.String("turn", turnID), zap.Error(err))
		return fmt.Errorf("failed to enqueue delivery for turn %s: %w", turnID, err)
	}

	// The sent question becomes the event's anchor for routing the next
	// reply.
	if turn.Question != "" {
		if err := g.Events.SetAnchor(ctx, turn.EventID, turn.Question); err != nil {
			g.log().Error("failed to update anchor", zap.String("event", turn.EventID), zap.Error(err))
		}
	}
	g.log().Info("turn approved and queued for delivery",
		zap.String("turn", turnID), zap.String("event", turn.EventID))
	return nil
}

// Discard transitions the draft to discarded. Idempotent the same way
// Approve is.
func (g *HILGate) Discard(ctx context.Context, turnID string) error {
	discarded, err := g.Turns.MarkDiscarded(ctx, turnID)
	if err != nil {
		return err
	}
	if !discarded {
		g.log().Info("duplicate discard ignored", zap.String("turn", turnID))
	}
	return nil
}

// Edit updates the text of a pending draft without sending it.
func (g *HILGate) Edit(ctx context.Context, turnID, text string) error {
	return g.Turns.UpdateDraftText(ctx, turnID, text)
}

func (g *HILGate) log() *zap.Logger {
	if g.Log != nil {
		return g.Log
	}
	return zap.L()
}

// RecordInbound stores a sanitized inbound turn for an event.
func RecordInbound(ctx context.Context, turns turnRepo.TurnRepository, eventID string, mail models.InboundEmail, sanitized string) (*models.ConversationTurn, error) {
	turn := &models.ConversationTurn{
		ID:            uuid.New().String(),
		EventID:       eventID,
		Direction:     models.DirectionInbound,
		Status:        models.TurnReceived,
		Author:        models.AuthorClient,
		Subject:       SanitizeSubject(mail.Subject),
		RawText:       mail.Text,
		SanitizedText: sanitized,
		CreatedAt:     time.Now(),
	}
	if err := turns.Insert(ctx, turn); err != nil {
		return nil, err
	}
	return turn, nil
}
