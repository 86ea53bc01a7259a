package models

// Room is one bookable space in the venue catalogue.
type Room struct {
	ID            string  `bson:"id" json:"id"`
	Name          string  `bson:"name" json:"name"`
	Type          string  `bson:"type" json:"type"` // e.g. "hall", "conference", "salon"
	Capacity      int     `bson:"capacity" json:"capacity"`
	BasePrice     float64 `bson:"base_price" json:"base_price"`
	PricePerGuest float64 `bson:"price_per_guest" json:"price_per_guest"`
	Currency      string  `bson:"currency" json:"currency"`
}
