package eventRepo

import (
	"context"
	"time"

	"venuepilot/models"
)

// EventRepository is the state store adapter for workflow events.
type EventRepository interface {
	Create(ctx context.Context, ev *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	GetByThreadKey(ctx context.Context, threadKey string) (*models.Event, error)
	// Update saves the event with compare-and-swap semantics on the version
	// field. It returns ErrVersionConflict when the stored version moved.
	Update(ctx context.Context, ev *models.Event) error
	// SetAnchor records the last verbalized question for the event.
	SetAnchor(ctx context.Context, eventID, question string) error
	ListByClient(ctx context.Context, clientID string) ([]models.Event, error)
	// ListStale returns non-terminal events with no inbound activity since
	// the given time.
	ListStale(ctx context.Context, before time.Time) ([]models.Event, error)
}
