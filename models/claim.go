package models

import "time"

// ClaimStrength is the strength of a room claim. Multiple option claims on
// the same room/date may coexist; at most one confirmed claim may exist.
type ClaimStrength string

const (
	ClaimOption    ClaimStrength = "option"
	ClaimConfirmed ClaimStrength = "confirmed"
)

// RoomClaim ties a room and a date to an event at a given strength.
type RoomClaim struct {
	ID       string        `bson:"id" json:"id"`
	RoomID   string        `bson:"room_id" json:"room_id"`
	Date     string        `bson:"date" json:"date"` // "YYYY-MM-DD"
	EventID  string        `bson:"event_id" json:"event_id"`
	ClientID string        `bson:"client_id" json:"client_id"`
	Strength ClaimStrength `bson:"strength" json:"strength"`
	Released bool          `bson:"released" json:"released"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ClaimKey returns the contention key a claim is serialized on.
func (c RoomClaim) ClaimKey() string {
	return c.RoomID + "|" + c.Date
}
