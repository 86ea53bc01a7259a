package claimRepo

import (
	"context"

	"venuepilot/models"
)

// ClaimRepository persists room claims. All mutation goes through the
// conflict resolver, which serializes callers per (room, date) key.
type ClaimRepository interface {
	Insert(ctx context.Context, claim *models.RoomClaim) error
	GetByID(ctx context.Context, id string) (*models.RoomClaim, error)
	// ListActive returns non-released claims for the given room and date.
	ListActive(ctx context.Context, roomID, date string) ([]models.RoomClaim, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.RoomClaim, error)
	// ListContended returns active claims on keys held by more than one event.
	ListContended(ctx context.Context) ([]models.RoomClaim, error)
	SetStrength(ctx context.Context, id string, strength models.ClaimStrength) error
	Release(ctx context.Context, id string) error
}
