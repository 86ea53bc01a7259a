package notification

import (
	"context"

	"venuepilot/models"
)

// NotificationService delivers manager-facing alerts: conflicting room
// claims with both sides' info, messages held for review, and unmatched
// inbound mail.
type NotificationService interface {
	NotifySoftConflict(ctx context.Context, held, incoming models.RoomClaim) error
	NotifyAmbiguous(ctx context.Context, eventID, message string) error
	NotifyExtractionConflict(ctx context.Context, eventID, detail string) error
	NotifyUnmatched(ctx context.Context, msg models.UnmatchedMessage) error
}
