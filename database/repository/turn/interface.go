package turnRepo

import (
	"context"

	"venuepilot/models"
)

// TurnRepository persists conversation turns and the unmatched-mail queue.
type TurnRepository interface {
	Insert(ctx context.Context, turn *models.ConversationTurn) error
	GetByID(ctx context.Context, id string) (*models.ConversationTurn, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.ConversationTurn, error)
	ListDrafts(ctx context.Context) ([]models.ConversationTurn, error)
	// UpdateDraftText replaces the text of a turn that is still in draft.
	UpdateDraftText(ctx context.Context, id, text string) error
	// MarkSent transitions draft -> sent with the final text. It returns
	// false when the turn was not in draft (already sent or discarded), so
	// duplicate approvals are detected, not re-sent.
	MarkSent(ctx context.Context, id, finalText string) (bool, error)
	// MarkDiscarded transitions draft -> discarded; false when not in draft.
	MarkDiscarded(ctx context.Context, id string) (bool, error)
	// RevertToDraft undoes MarkSent for a turn whose delivery could not be
	// queued; false when the turn is not in sent.
	RevertToDraft(ctx context.Context, id string) (bool, error)

	InsertUnmatched(ctx context.Context, msg *models.UnmatchedMessage) error
	ListUnmatched(ctx context.Context) ([]models.UnmatchedMessage, error)
	AssignUnmatched(ctx context.Context, id, eventID string) (*models.UnmatchedMessage, error)
}
