package models

import "time"

// DepositStatus tracks payment of the offer deposit. It is mutated only by
// manager action, never inferred from conversation content.
type DepositStatus string

const (
	DepositPending DepositStatus = "pending"
	DepositPaid    DepositStatus = "paid"
)

// Offer holds the derived quote facts attached to an event once the offer
// step has run.
type Offer struct {
	RoomID          string        `bson:"room_id" json:"room_id"`
	Date            string        `bson:"date" json:"date"`
	Guests          int           `bson:"guests" json:"guests"`
	TotalPrice      float64       `bson:"total_price" json:"total_price"`
	Currency        string        `bson:"currency" json:"currency"`
	DepositRequired bool          `bson:"deposit_required" json:"deposit_required"`
	DepositPercent  float64       `bson:"deposit_percent" json:"deposit_percent"`
	DepositAmount   float64       `bson:"deposit_amount" json:"deposit_amount"`
	DepositStatus   DepositStatus `bson:"deposit_status" json:"deposit_status"`
	Confirmed       bool          `bson:"confirmed" json:"confirmed"`
	CreatedAt       time.Time     `bson:"created_at" json:"created_at"`
}
